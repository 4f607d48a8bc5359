// Package segment splits chapter text into synthesis-safe chunks.
//
// The speech provider imposes two ceilings: a per-fragment byte limit on the
// text it will voice in one piece, and a larger request-sized character limit
// per call. Splitting prefers sentence boundaries, falls back to word
// boundaries, and only force-cuts inside a word when a single word alone
// exceeds the byte ceiling. The output is deterministic: the same text and
// limits always yield the same chunk sequence, in original order, with no
// words lost or duplicated. Whitespace is normalized, not preserved:
// sentences are trimmed and rejoined with single spaces, so newlines and
// interior whitespace runs collapse.
package segment

import (
	"strings"
	"unicode/utf8"

	"github.com/chapterlyapp/chapterly-server/internal/errors"
)

// Chunk is an ordered, zero-indexed fragment of chapter text sized for one
// synthesis request. Chunks exist only for the lifetime of a job.
type Chunk struct {
	Index int
	Text  string
}

// Split segments text into chunks of at most maxChunkChars characters, built
// from fragments of at most maxFragmentBytes UTF-8 bytes each.
func Split(text string, maxChunkChars, maxFragmentBytes int) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Validation("chapter text is empty")
	}
	if maxChunkChars < 1 {
		return nil, errors.Validationf("invalid chunk character ceiling: %d", maxChunkChars)
	}
	// Below utf8.UTFMax a single code point may not fit in a fragment.
	if maxFragmentBytes < utf8.UTFMax {
		return nil, errors.Validationf("fragment byte ceiling too small: %d", maxFragmentBytes)
	}

	var fragments []string
	for _, sentence := range splitSentences(text) {
		fragments = append(fragments, splitFragments(sentence, maxFragmentBytes)...)
	}

	return pack(fragments, maxChunkChars), nil
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitSentences cuts text after runs of terminal punctuation (., !, ?).
// A trailing run without terminal punctuation is its own sentence.
func splitSentences(text string) []string {
	runes := []rune(text)

	var sentences []string
	start := 0
	for i, r := range runes {
		// Cut after the last terminator in a run, so "..." and "?!" stay
		// attached to their sentence.
		if isTerminal(r) && (i+1 == len(runes) || !isTerminal(runes[i+1])) {
			if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// splitFragments returns the sentence whole if it fits the byte ceiling,
// otherwise splits it greedily on whitespace into the largest word-aligned
// pieces that stay under the ceiling. A single word exceeding the ceiling is
// force-cut at rune boundaries.
func splitFragments(sentence string, maxBytes int) []string {
	if len(sentence) <= maxBytes {
		return []string{sentence}
	}

	var frags []string
	var b strings.Builder
	for _, word := range strings.Fields(sentence) {
		if len(word) > maxBytes {
			if b.Len() > 0 {
				frags = append(frags, b.String())
				b.Reset()
			}
			frags = append(frags, cutBytes(word, maxBytes)...)
			continue
		}

		if b.Len() > 0 && b.Len()+1+len(word) > maxBytes {
			frags = append(frags, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	if b.Len() > 0 {
		frags = append(frags, b.String())
	}
	return frags
}

// cutBytes force-splits s into pieces of at most maxBytes bytes, never
// splitting a multi-byte UTF-8 sequence. This is the only path that may
// produce a fragment not aligned to a linguistic boundary.
func cutBytes(s string, maxBytes int) []string {
	var pieces []string
	var b strings.Builder
	for _, r := range s {
		if b.Len()+utf8.RuneLen(r) > maxBytes {
			pieces = append(pieces, b.String())
			b.Reset()
		}
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		pieces = append(pieces, b.String())
	}
	return pieces
}

// cutRunes force-splits s into pieces of at most maxChars code points.
func cutRunes(s string, maxChars int) []string {
	var pieces []string
	var b strings.Builder
	count := 0
	for _, r := range s {
		if count == maxChars {
			pieces = append(pieces, b.String())
			b.Reset()
			count = 0
		}
		b.WriteRune(r)
		count++
	}
	if b.Len() > 0 {
		pieces = append(pieces, b.String())
	}
	return pieces
}

// pack greedily fills chunks up to maxChars characters, joining fragments
// with a single space and never reordering.
func pack(fragments []string, maxChars int) []Chunk {
	var chunks []Chunk
	var b strings.Builder
	count := 0

	flush := func() {
		if b.Len() > 0 {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: b.String()})
			b.Reset()
			count = 0
		}
	}

	for _, frag := range fragments {
		fragChars := utf8.RuneCountInString(frag)

		// A fragment is bounded in bytes, not characters, so it can still
		// exceed a small chunk ceiling on its own.
		if fragChars > maxChars {
			flush()
			for _, piece := range cutRunes(frag, maxChars) {
				chunks = append(chunks, Chunk{Index: len(chunks), Text: piece})
			}
			continue
		}

		need := fragChars
		if count > 0 {
			need++ // joining space
		}
		if count+need > maxChars {
			flush()
		}
		if count > 0 {
			b.WriteByte(' ')
			count++
		}
		b.WriteString(frag)
		count += fragChars
	}
	flush()

	return chunks
}
