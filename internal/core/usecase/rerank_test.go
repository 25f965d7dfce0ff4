package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

type rerankerFake struct {
	scores []float64
	err    error
}

func (f rerankerFake) ScorePairs(context.Context, string, []string) ([]float64, error) {
	return f.scores, f.err
}

func rankedFixture() domain.RankedResult {
	return domain.RankedResult{
		{Passage: domain.Passage{SourceID: "a", Text: "first"}, Score: 0.9},
		{Passage: domain.Passage{SourceID: "b", Text: "second"}, Score: 0.8},
		{Passage: domain.Passage{SourceID: "c", Text: "third"}, Score: 0.7},
	}
}

func TestRerankPermutesByPairScores(t *testing.T) {
	bridge := NewRerankerBridge(rerankerFake{scores: []float64{0.1, 0.9, 0.5}})

	out := bridge.Rerank(context.Background(), "q", rankedFixture())
	if len(out) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(out))
	}
	gotOrder := []string{out[0].Passage.SourceID, out[1].Passage.SourceID, out[2].Passage.SourceID}
	wantOrder := []string{"b", "c", "a"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("order = %v, want %v", gotOrder, wantOrder)
		}
	}
	if out[0].Score != 0.8 {
		t.Fatalf("rerank must not rewrite scores, got %v", out[0].Score)
	}
}

func TestRerankNilRerankerPassesThrough(t *testing.T) {
	bridge := NewRerankerBridge(nil)
	in := rankedFixture()

	out := bridge.Rerank(context.Background(), "q", in)
	if len(out) != len(in) || out[0].Passage.SourceID != "a" {
		t.Fatalf("expected identity permutation, got %+v", out)
	}
}

func TestRerankErrorPassesThrough(t *testing.T) {
	bridge := NewRerankerBridge(rerankerFake{err: errors.New("scorer down")})

	out := bridge.Rerank(context.Background(), "q", rankedFixture())
	if out[0].Passage.SourceID != "a" {
		t.Fatalf("expected original order on error, got %s first", out[0].Passage.SourceID)
	}
}

func TestRerankScoreCountMismatchPassesThrough(t *testing.T) {
	bridge := NewRerankerBridge(rerankerFake{scores: []float64{0.1}})

	out := bridge.Rerank(context.Background(), "q", rankedFixture())
	if out[0].Passage.SourceID != "a" {
		t.Fatalf("expected original order on mismatch, got %s first", out[0].Passage.SourceID)
	}
}

func TestRerankEmptyInput(t *testing.T) {
	bridge := NewRerankerBridge(rerankerFake{})
	if out := bridge.Rerank(context.Background(), "q", nil); !out.Empty() {
		t.Fatalf("expected empty result, got %+v", out)
	}
}
