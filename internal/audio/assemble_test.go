package audio

import (
	"bytes"
	"testing"

	"github.com/chapterlyapp/chapterly-server/internal/errors"
)

func TestAssemble_OrderPreserved(t *testing.T) {
	parts := [][]byte{
		[]byte("AAA"),
		[]byte("BBB"),
		[]byte("CCC"),
	}

	artifact, _, err := Assemble(parts)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if !bytes.Equal(artifact, []byte("AAABBBCCC")) {
		t.Errorf("artifact = %q, want parts concatenated in order", artifact)
	}
}

func TestAssemble_NoParts(t *testing.T) {
	_, _, err := Assemble(nil)
	if !errors.Is(err, errors.ErrIncompleteSynthesis) {
		t.Errorf("expected incomplete synthesis error, got %v", err)
	}
}

func TestAssemble_MissingPart(t *testing.T) {
	parts := [][]byte{
		[]byte("AAA"),
		nil,
		[]byte("CCC"),
	}

	_, _, err := Assemble(parts)
	if !errors.Is(err, errors.ErrIncompleteSynthesis) {
		t.Fatalf("expected incomplete synthesis error, got %v", err)
	}

	var domainErr *errors.Error
	if !errors.As(err, &domainErr) {
		t.Fatal("expected *errors.Error")
	}
	details, ok := domainErr.Details.(map[string]any)
	if !ok || details["chunk_index"] != 1 {
		t.Errorf("details should identify the missing chunk, got %v", domainErr.Details)
	}
}

func TestAssemble_DurationEstimate(t *testing.T) {
	// 128 kbps = 16000 bytes per second.
	tests := []struct {
		name      string
		sizeBytes int
		want      int
	}{
		{"tiny artifact rounds to one second", 100, 1},
		{"exactly one second", 16000, 1},
		{"just over one second rounds up", 16001, 2},
		{"ten seconds", 160000, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, seconds, err := Assemble([][]byte{make([]byte, tt.sizeBytes)})
			if err != nil {
				t.Fatalf("Assemble failed: %v", err)
			}
			if seconds != tt.want {
				t.Errorf("duration = %d, want %d", seconds, tt.want)
			}
		})
	}
}
