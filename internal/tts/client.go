package tts

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/chapterlyapp/chapterly-server/internal/config"
	"github.com/chapterlyapp/chapterly-server/internal/domain"
	"github.com/chapterlyapp/chapterly-server/internal/errors"
	"github.com/chapterlyapp/chapterly-server/internal/ratelimit"
)

// Client calls an ElevenLabs-style text-to-speech API.
// Outbound calls are rate limited per voice because the provider throttles
// per-voice concurrency, and each call carries the configured chunk timeout.
type Client struct {
	cfg        config.SynthesisConfig
	httpClient *http.Client
	limiter    *ratelimit.KeyedRateLimiter
	logger     *slog.Logger
}

// synthesizeRequest is the provider request payload.
type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// NewClient creates a synthesis client from config.
func NewClient(cfg config.SynthesisConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		limiter:    ratelimit.New(cfg.ProviderRPS, cfg.ProviderBurst),
		logger:     logger,
	}
}

// voiceID maps the abstract voice profile to a provider voice identifier.
func (c *Client) voiceID(voice domain.VoiceProfile) string {
	if voice == domain.VoiceMale {
		return c.cfg.MaleVoiceID
	}
	return c.cfg.FemaleVoiceID
}

// ContentType reports the MIME type of synthesized audio.
func (c *Client) ContentType() string {
	return "audio/mpeg"
}

// Synthesize voices one chunk of text. Single-shot: a provider error or
// timeout is returned as a synthesis error and the caller decides whether
// the job fails.
func (c *Client) Synthesize(ctx context.Context, text string, voice domain.VoiceProfile) ([]byte, error) {
	voiceID := c.voiceID(voice)

	if err := c.limiter.Wait(ctx, voiceID); err != nil {
		return nil, errors.Wrap(err, errors.CodeSynthesis, "rate limit wait interrupted")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ChunkTimeout)
	defer cancel()

	body, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "marshal synthesis request")
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.cfg.ProviderURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create synthesis request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", c.ContentType())
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSynthesis, "synthesis request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a bounded slice of the body for diagnostics.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Synthesisf("provider returned status %d: %s", resp.StatusCode, detail)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSynthesis, "read synthesis response")
	}
	if len(audio) == 0 {
		return nil, errors.Synthesis("provider returned empty audio")
	}

	c.logger.Debug("chunk synthesized",
		slog.String("voice_id", voiceID),
		slog.Int("text_chars", len(text)),
		slog.Int("audio_bytes", len(audio)))

	return audio, nil
}
