// Package tts adapts the external speech-synthesis provider.
package tts

import (
	"context"

	"github.com/chapterlyapp/chapterly-server/internal/domain"
)

// Synthesizer converts one text chunk into audio bytes.
// Implementations are stateless and single-shot: no internal retry, no local
// state mutation beyond the remote call. The caller owns chunk indexing and
// error classification.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice domain.VoiceProfile) ([]byte, error)

	// ContentType reports the MIME type of the returned audio.
	ContentType() string
}
