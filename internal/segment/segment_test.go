package segment

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/chapterlyapp/chapterly-server/internal/errors"
)

// stripSpace removes all whitespace so reconstruction checks can ignore
// the joining spaces inserted at chunk and fragment boundaries.
func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func joinChunks(chunks []Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}

func TestSplit_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t  \n"} {
		_, err := Split(input, 100, 100)
		if err == nil {
			t.Errorf("Split(%q) expected validation error", input)
			continue
		}
		if !errors.Is(err, errors.ErrValidation) {
			t.Errorf("Split(%q) error = %v, want validation", input, err)
		}
	}
}

func TestSplit_BadLimits(t *testing.T) {
	if _, err := Split("hello", 0, 100); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("zero chunk ceiling: err = %v, want validation", err)
	}
	if _, err := Split("hello", 100, 2); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("tiny fragment ceiling: err = %v, want validation", err)
	}
}

func TestSplit_TwoSentences(t *testing.T) {
	chunks, err := Split("Hello world. This is a test.", 15, 100)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	want := []string{"Hello world.", "This is a test."}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks %v, want %d", len(chunks), chunks, len(want))
	}
	for i, w := range want {
		if chunks[i].Text != w {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i].Text, w)
		}
		if chunks[i].Index != i {
			t.Errorf("chunk %d has index %d", i, chunks[i].Index)
		}
	}
}

func TestSplit_SingleChunkWhenItFits(t *testing.T) {
	text := "Hello world. This is a test."
	chunks, err := Split(text, 1000, 1000)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("chunk = %q, want %q", chunks[0].Text, text)
	}
}

func TestSplit_NormalizesWhitespace(t *testing.T) {
	// Newlines between sentences become single joining spaces, and interior
	// runs collapse when a sentence is split on word boundaries. No words
	// are lost, but the original whitespace is not reproduced.
	text := "First line.\n\nSecond   long line over the limit.\nThird."
	chunks, err := Split(text, 100, 16)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	got := joinChunks(chunks)
	want := "First line. Second long line over the limit. Third."
	if got != want {
		t.Errorf("joined chunks = %q, want %q", got, want)
	}
	if stripSpace(got) != stripSpace(text) {
		t.Errorf("words changed: %q vs %q", stripSpace(got), stripSpace(text))
	}
}

func TestSplit_NoTerminalPunctuation(t *testing.T) {
	// One giant "sentence" must still split via the fragment path.
	words := make([]string, 100)
	for i := range words {
		words[i] = "lorem"
	}
	text := strings.Join(words, " ")

	chunks, err := Split(text, 50, 40)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if utf8.RuneCountInString(c.Text) > 50 {
			t.Errorf("chunk %d exceeds ceiling: %d chars", c.Index, utf8.RuneCountInString(c.Text))
		}
		if c.Text == "" {
			t.Errorf("chunk %d is empty", c.Index)
		}
	}
	if stripSpace(joinChunks(chunks)) != stripSpace(text) {
		t.Error("reconstruction mismatch")
	}
}

func TestSplit_ForceSplitLongWord(t *testing.T) {
	run := strings.Repeat("x", 50)

	chunks, err := Split(run, 100, 16)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	frags := splitFragments(run, 16)
	if len(frags) < 2 {
		t.Fatalf("expected >=2 fragments, got %d", len(frags))
	}
	for i, f := range frags {
		if len(f) > 16 {
			t.Errorf("fragment %d exceeds byte ceiling: %d bytes", i, len(f))
		}
	}
	if strings.Join(frags, "") != run {
		t.Errorf("fragment concatenation != original run")
	}

	if stripSpace(joinChunks(chunks)) != run {
		t.Error("chunk reconstruction mismatch for forced split")
	}
}

func TestCutBytes_NeverSplitsRune(t *testing.T) {
	// 2-byte runes with a 5-byte ceiling: pieces hold 2 runes (4 bytes) each.
	word := strings.Repeat("é", 10)
	pieces := cutBytes(word, 5)

	for i, p := range pieces {
		if len(p) > 5 {
			t.Errorf("piece %d exceeds ceiling: %d bytes", i, len(p))
		}
		if !utf8.ValidString(p) {
			t.Errorf("piece %d is not valid UTF-8: %q", i, p)
		}
	}
	if strings.Join(pieces, "") != word {
		t.Error("pieces do not reconstruct the word")
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"No terminal punctuation here", []string{"No terminal punctuation here"}},
		{"Trailing fragment. without punctuation", []string{"Trailing fragment.", "without punctuation"}},
		{"Wait... what?!", []string{"Wait...", "what?!"}},
	}

	for _, tt := range tests {
		got := splitSentences(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitSentences(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitSentences(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog. " +
		strings.Repeat("Pack my box with five dozen liquor jugs. ", 20) +
		"Sphinx of black quartz judge my vow"

	first, err := Split(text, 120, 60)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for range 5 {
		again, err := Split(text, 120, 60)
		if err != nil {
			t.Fatalf("Split: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("chunk count changed between runs: %d vs %d", len(again), len(first))
		}
		for i := range again {
			if again[i] != first[i] {
				t.Fatalf("chunk %d changed between runs", i)
			}
		}
	}
}

func TestSplit_LosslessAcrossInputs(t *testing.T) {
	inputs := []string{
		"Hello world. This is a test.",
		"über die Brücke. Städte wie München glänzen! Schön?",
		strings.Repeat("verylongunbrokenrunoftext", 20),
		"Mixed: short. " + strings.Repeat("wordy ", 200) + "end",
		"日本語のテキストです。これは長い章の一部です。終わり",
	}

	for _, text := range inputs {
		chunks, err := Split(text, 30, 25)
		if err != nil {
			t.Errorf("Split(%q...): %v", text[:min(20, len(text))], err)
			continue
		}
		for _, c := range chunks {
			if c.Text == "" {
				t.Error("empty chunk produced")
			}
			if utf8.RuneCountInString(c.Text) > 30 {
				t.Errorf("chunk %d over ceiling: %q", c.Index, c.Text)
			}
		}
		if stripSpace(joinChunks(chunks)) != stripSpace(text) {
			t.Errorf("reconstruction mismatch for input starting %q", text[:min(20, len(text))])
		}
	}
}
