// Package text splits documents into bounded-size chunks suitable for
// per-chunk speech synthesis.
package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// lookaheadSlack is how far past the chunk bound the segmenter searches for a
// sentence ending, so sentences that just cross the boundary stay intact.
const lookaheadSlack = 50

// sentenceEnders are the punctuation marks treated as sentence boundaries.
var sentenceEnders = []byte{'.', '?', '!'}

// Segment splits text into ordered chunks of at most maxLen bytes.
// Paragraphs (blank-line separated) are kept whole when they fit; longer
// paragraphs are cut at the right-most valid sentence ending within the
// bound plus a small lookahead, falling back to a hard cut at maxLen.
// Chunks are trimmed of surrounding whitespace and never empty.
//
// Empty or whitespace-only input yields an empty slice. For any other input
// at least one chunk is returned: if splitting somehow produces nothing,
// the whole trimmed text comes back as a single chunk.
func Segment(text string, maxLen int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []string
	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if len(paragraph) <= maxLen {
			chunks = append(chunks, paragraph)
			continue
		}
		chunks = append(chunks, splitParagraph(paragraph, maxLen)...)
	}

	// Splitting must never silently drop all content.
	if len(chunks) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return chunks
}

// splitParagraph cuts one over-long paragraph into bounded chunks.
func splitParagraph(paragraph string, maxLen int) []string {
	var chunks []string
	start := 0
	for start < len(paragraph) {
		end := start + maxLen

		if best := bestSentenceBreak(paragraph, start, end); best != -1 {
			end = best + 1 // include the punctuation in this chunk
		} else if end >= len(paragraph) {
			end = len(paragraph)
		} else {
			// Hard cut at maxLen; back off to a rune start so multi-byte
			// characters are never split.
			for end > start && !utf8.RuneStart(paragraph[end]) {
				end--
			}
			if end == start {
				end = start + maxLen
			}
		}

		if chunk := strings.TrimSpace(paragraph[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end
	}
	return chunks
}

// bestSentenceBreak returns the right-most index of a valid sentence-ending
// punctuation in paragraph within (start, min(end+lookaheadSlack, len)), or
// -1 when none exists.
func bestSentenceBreak(paragraph string, start, end int) int {
	limit := end + lookaheadSlack
	if limit > len(paragraph) {
		limit = len(paragraph)
	}

	for p := limit - 1; p > start; p-- {
		if !isSentenceEnder(paragraph[p]) {
			continue
		}
		if validSentenceEnd(paragraph, p) {
			return p
		}
	}
	return -1
}

func isSentenceEnder(c byte) bool {
	for _, punct := range sentenceEnders {
		if c == punct {
			return true
		}
	}
	return false
}

// validSentenceEnd reports whether the punctuation at index p ends a
// sentence: it must be followed by whitespace or end-of-text, and must not
// look like part of an abbreviation or initialism.
func validSentenceEnd(paragraph string, p int) bool {
	if p+1 < len(paragraph) {
		r, _ := utf8.DecodeRuneInString(paragraph[p+1:])
		if !unicode.IsSpace(r) {
			return false
		}
	}
	// Heuristic for abbreviations like "Mr." or initialisms like "U.S.":
	// two letters precede the punctuation and the first of them is uppercase.
	if p >= 2 {
		a, b := rune(paragraph[p-2]), rune(paragraph[p-1])
		if unicode.IsLetter(a) && unicode.IsLetter(b) && unicode.IsUpper(a) {
			return false
		}
	}
	return true
}
