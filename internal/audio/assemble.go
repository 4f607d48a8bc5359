// Package audio reassembles per-chunk synthesis output into one artifact.
package audio

import (
	"bytes"

	"github.com/chapterlyapp/chapterly-server/internal/errors"
)

// bitrateKbps is the nominal bitrate of provider output, used to estimate
// playback duration from the artifact size. Good enough for progress bars;
// real duration comes from the player.
const bitrateKbps = 128

// Assemble concatenates chunk audio in index order into a single artifact
// and estimates its playback duration in whole seconds.
//
// Every part must be present and non-empty. A missing part means a chunk
// never produced audio, and a partial narration must never be published.
func Assemble(parts [][]byte) ([]byte, int, error) {
	if len(parts) == 0 {
		return nil, 0, errors.IncompleteSynthesis("no audio parts to assemble")
	}

	total := 0
	for i, part := range parts {
		if len(part) == 0 {
			return nil, 0, errors.IncompleteSynthesis("missing audio for chunk").
				WithDetails(map[string]any{"chunk_index": i})
		}
		total += len(part)
	}

	var buf bytes.Buffer
	buf.Grow(total)
	for _, part := range parts {
		buf.Write(part)
	}

	return buf.Bytes(), estimateDuration(total), nil
}

// estimateDuration derives whole seconds from byte size at the nominal
// bitrate, rounding up so short artifacts never report zero.
func estimateDuration(sizeBytes int) int {
	bytesPerSecond := bitrateKbps * 1000 / 8
	seconds := (sizeBytes + bytesPerSecond - 1) / bytesPerSecond
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
