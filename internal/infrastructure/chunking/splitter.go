package chunking

import (
	"unicode"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

// Splitter cuts text into overlapping fixed-size windows. Positions are rune
// offsets into the original text, kept so citations can locate their span.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []domain.TextChunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]domain.TextChunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunkStart, chunkEnd := trimBounds(runes, start, end)
		if chunkStart < chunkEnd {
			out = append(out, domain.TextChunk{
				Text:     string(runes[chunkStart:chunkEnd]),
				StartPos: chunkStart,
				EndPos:   chunkEnd,
			})
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// trimBounds narrows [start, end) past surrounding whitespace, the positional
// equivalent of strings.TrimSpace.
func trimBounds(runes []rune, start, end int) (int, int) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return start, end
}
