package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

func candidateWithText(id, text string, score float64) domain.ScoredCandidate {
	return domain.ScoredCandidate{
		Passage: domain.Passage{SourceID: id, Filename: "cv.pdf", PageNumber: 2, Text: text},
		Score:   score,
	}
}

func TestAssembleFormatsSourceBlocks(t *testing.T) {
	b := NewContextBudgeter(4000)
	ranked := domain.RankedResult{
		candidateWithText("a", "passage one", 0.87),
		candidateWithText("b", "passage two", 0.52),
	}

	assembled := b.Assemble(ranked)
	if len(assembled.Retained) != 2 {
		t.Fatalf("expected both passages retained, got %d", len(assembled.Retained))
	}
	if !strings.Contains(assembled.Prompt, "Source 1 (from cv.pdf, page 2, relevance: 0.87):\npassage one") {
		t.Fatalf("unexpected prompt:\n%s", assembled.Prompt)
	}
	if !strings.Contains(assembled.Prompt, "Source 2 (from cv.pdf, page 2, relevance: 0.52):\npassage two") {
		t.Fatalf("missing second source block:\n%s", assembled.Prompt)
	}
	if !strings.Contains(assembled.Prompt, "\n\nSource 2") {
		t.Fatalf("blocks must be separated by a blank line:\n%s", assembled.Prompt)
	}
}

func TestAssembleRespectsCharBudget(t *testing.T) {
	b := NewContextBudgeter(150)
	ranked := domain.RankedResult{
		candidateWithText("a", strings.Repeat("x", 60), 0.9),
		candidateWithText("b", strings.Repeat("y", 60), 0.8),
		candidateWithText("c", strings.Repeat("z", 60), 0.7),
	}

	assembled := b.Assemble(ranked)
	if len(assembled.Prompt) > 150 {
		t.Fatalf("prompt exceeds budget: %d chars", len(assembled.Prompt))
	}
	if len(assembled.Retained) == 0 {
		t.Fatalf("at least one passage must always be retained")
	}
	// The retained set is a prefix of the ranked order.
	for i, c := range assembled.Retained {
		if c.Passage.SourceID != ranked[i].Passage.SourceID {
			t.Fatalf("retained is not a prefix at %d: %s", i, c.Passage.SourceID)
		}
	}
}

func TestAssembleFirstPassageExceedingBudgetIsStillIncluded(t *testing.T) {
	b := NewContextBudgeter(50)
	ranked := domain.RankedResult{
		candidateWithText("a", strings.Repeat("x", 500), 0.9),
		candidateWithText("b", "small", 0.8),
	}

	assembled := b.Assemble(ranked)
	if len(assembled.Retained) != 1 {
		t.Fatalf("expected only the oversized first passage, got %d", len(assembled.Retained))
	}
	if assembled.Retained[0].Passage.SourceID != "a" {
		t.Fatalf("expected first-ranked passage, got %s", assembled.Retained[0].Passage.SourceID)
	}
}

func TestAssembleUnknownPageLabel(t *testing.T) {
	b := NewContextBudgeter(4000)
	ranked := domain.RankedResult{
		{Passage: domain.Passage{SourceID: "a", Filename: "notes.txt", Text: "content"}, Score: 0.5},
	}

	assembled := b.Assemble(ranked)
	if !strings.Contains(assembled.Prompt, "page unknown") {
		t.Fatalf("expected unknown page label:\n%s", assembled.Prompt)
	}
}

func TestAssembleUsesEffectiveScoreInHeader(t *testing.T) {
	b := NewContextBudgeter(4000)
	ranked := domain.RankedResult{
		{
			Passage:    domain.Passage{SourceID: "a", Filename: "cv.pdf", PageNumber: 1, Text: "boosted"},
			Score:      0.50,
			Adjustment: 0.20,
		},
	}

	assembled := b.Assemble(ranked)
	if !strings.Contains(assembled.Prompt, "relevance: 0.70") {
		t.Fatalf("expected adjusted relevance in header:\n%s", assembled.Prompt)
	}
}

func TestAssembleEmptyInput(t *testing.T) {
	b := NewContextBudgeter(100)
	assembled := b.Assemble(nil)
	if assembled.Prompt != "" || len(assembled.Retained) != 0 {
		t.Fatalf("expected empty context, got %+v", assembled)
	}
}
