package rag

import (
	"strings"
	"unicode/utf8"
)

// defaultSeparators order chunk boundaries from most to least natural:
// paragraph breaks, line breaks, sentence punctuation, words, and finally
// individual characters as a last resort.
var defaultSeparators = []string{"\n\n", "\n", ".", "?", "!", " ", ""}

// Splitter splits text into overlapping chunks for embedding.
//
// It splits recursively: the text is cut on the coarsest separator that
// occurs in it, oversized pieces are re-split with the remaining finer
// separators, and adjacent small pieces are merged back together up to the
// chunk size, carrying overlap across chunk boundaries. Sizes are measured
// in runes, not bytes.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewSplitter creates a Splitter. chunkSize must be positive and
// chunkOverlap smaller than chunkSize (config validation enforces this).
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

// Split splits text into chunks. Whitespace-only chunks are dropped.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	// Pick the coarsest separator present in the text. The final "" always
	// matches, so the loop cannot fall through without a choice.
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	if separator == "" {
		return s.splitRunes(text)
	}

	// Keep the separator attached to the piece that follows it, so merged
	// chunks retain their punctuation and spacing.
	parts := strings.Split(text, separator)
	pieces := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = separator + part
		}
		if part != "" {
			pieces = append(pieces, part)
		}
	}

	var chunks []string
	var small []string
	for _, piece := range pieces {
		if utf8.RuneCountInString(piece) < s.chunkSize {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			chunks = append(chunks, s.merge(small)...)
			small = nil
		}
		if len(remaining) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, remaining)...)
		}
	}
	if len(small) > 0 {
		chunks = append(chunks, s.merge(small)...)
	}
	return chunks
}

// merge greedily joins consecutive pieces up to the chunk size. When a chunk
// is emitted, pieces are dropped from the front until at most chunkOverlap
// runes carry over into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	flush := func() {
		if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n > s.chunkSize && len(window) > 0 {
			flush()
			for total > s.chunkOverlap || (total+n > s.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n
	}
	flush()
	return chunks
}

// splitRunes is the last-resort character split: fixed windows of chunkSize
// runes advancing by chunkSize-chunkOverlap.
func (s *Splitter) splitRunes(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.chunkOverlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
