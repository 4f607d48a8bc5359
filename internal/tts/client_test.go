package tts

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapterlyapp/chapterly-server/internal/config"
	"github.com/chapterlyapp/chapterly-server/internal/domain"
	"github.com/chapterlyapp/chapterly-server/internal/errors"
)

func testConfig(url string) config.SynthesisConfig {
	return config.SynthesisConfig{
		ProviderURL:   url,
		APIKey:        "test-key",
		MaleVoiceID:   "voice-m",
		FemaleVoiceID: "voice-f",
		ChunkTimeout:  2 * time.Second,
		ProviderRPS:   100,
		ProviderBurst: 100,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSynthesize_Success(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "Hello world.")

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("MP3DATA"))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), discardLogger())

	audio, err := c.Synthesize(context.Background(), "Hello world.", domain.VoiceFemale)
	require.NoError(t, err)
	assert.Equal(t, []byte("MP3DATA"), audio)
	assert.Equal(t, "/v1/text-to-speech/voice-f", gotPath)
	assert.Equal(t, "test-key", gotKey)
}

func TestSynthesize_VoiceProfileMapping(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("MP3DATA"))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), discardLogger())

	_, err := c.Synthesize(context.Background(), "text", domain.VoiceMale)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(gotPath, "/voice-m"))

	// Unknown profile defaults to female.
	_, err = c.Synthesize(context.Background(), "text", domain.ParseVoiceProfile("unknown"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(gotPath, "/voice-f"))
}

func TestSynthesize_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "voice overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), discardLogger())

	_, err := c.Synthesize(context.Background(), "text", domain.VoiceFemale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSynthesis), "expected synthesis error, got %v", err)
}

func TestSynthesize_EmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), discardLogger())

	_, err := c.Synthesize(context.Background(), "text", domain.VoiceFemale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSynthesis))
}

func TestSynthesize_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.ChunkTimeout = 20 * time.Millisecond
	c := NewClient(cfg, discardLogger())

	_, err := c.Synthesize(context.Background(), "text", domain.VoiceFemale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSynthesis), "timeout should surface as synthesis error, got %v", err)
}
