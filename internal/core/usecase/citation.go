package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

const (
	excerptDefaultLen = 200
	excerptContextLen = 50
)

// buildCitations derives one evidence span per retained passage, in rank
// order. Confidence carries the originating retrieval score.
func buildCitations(query string, retained []domain.ScoredCandidate) []domain.Citation {
	citations := make([]domain.Citation, 0, len(retained))
	for _, candidate := range retained {
		title := candidate.Passage.Filename
		if title == "" {
			title = candidate.Passage.DocumentID
		}
		citations = append(citations, domain.Citation{
			SourceID:   candidate.Passage.SourceID,
			Title:      title,
			Excerpt:    excerptAround(candidate.Passage.Text, query),
			Confidence: candidate.Score,
			PageNumber: candidate.Passage.PageNumber,
		})
	}
	return citations
}

// excerptAround returns a short human-readable span of the passage. The
// default is the leading ~200 characters; when a query word occurs in the
// passage, the span re-centers on the first occurrence with ~50 characters
// of context on each side. Ellipses mark truncation at either end.
func excerptAround(text, query string) string {
	if text == "" {
		return ""
	}

	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, "?!.,;:\"'")
		if word == "" {
			continue
		}
		pos, matchLen := indexFold(text, word)
		if pos < 0 {
			continue
		}

		start := runeFloor(text, pos-excerptContextLen)
		end := runeCeil(text, pos+matchLen+excerptContextLen)
		span := text[start:end]
		if start > 0 {
			span = "..." + span
		}
		if end < len(text) {
			span += "..."
		}
		return span
	}

	if len(text) <= excerptDefaultLen {
		return text
	}
	return text[:runeFloor(text, excerptDefaultLen)] + "..."
}

// indexFold finds the first case-insensitive occurrence of substr in s and
// returns its byte offset together with the byte length of the matched text.
// Offsets are found in s itself, not in a lowered copy, because lowering can
// change byte lengths (e.g. İ) and shift every later offset.
func indexFold(s, substr string) (int, int) {
	if substr == "" {
		return -1, 0
	}
	for i := 0; i < len(s); {
		if n := prefixFoldLen(s[i:], substr); n >= 0 {
			return i, n
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, 0
}

// prefixFoldLen reports how many bytes of s case-insensitively match substr,
// or -1 when s does not start with it.
func prefixFoldLen(s, substr string) int {
	n := 0
	for _, want := range substr {
		r, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 {
			return -1
		}
		if r != want && unicode.ToLower(r) != unicode.ToLower(want) {
			return -1
		}
		n += size
	}
	return n
}

// runeFloor clamps a byte offset into [0,len] and walks it back to the start
// of a rune so slicing never splits a multi-byte character.
func runeFloor(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	if offset >= len(s) {
		return len(s)
	}
	for offset > 0 && !utf8.RuneStart(s[offset]) {
		offset--
	}
	return offset
}

func runeCeil(s string, offset int) int {
	if offset >= len(s) {
		return len(s)
	}
	if offset <= 0 {
		return 0
	}
	for offset < len(s) && !utf8.RuneStart(s[offset]) {
		offset++
	}
	return offset
}
