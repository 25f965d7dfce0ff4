package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
	"github.com/kirillkom/corpus-chat/internal/core/ports"
)

// RerankerBridge reorders candidates with a cross-encoder pair scorer. The
// stage is purely a permutation: it never drops or adds candidates, and any
// scorer failure falls through to the incoming order.
type RerankerBridge struct {
	reranker ports.Reranker
}

func NewRerankerBridge(reranker ports.Reranker) *RerankerBridge {
	return &RerankerBridge{reranker: reranker}
}

func (b *RerankerBridge) Rerank(ctx context.Context, query string, ranked domain.RankedResult) domain.RankedResult {
	if b == nil || b.reranker == nil || ranked.Empty() {
		return ranked
	}

	passages := make([]string, 0, len(ranked))
	for _, candidate := range ranked {
		passages = append(passages, candidate.Passage.Text)
	}

	scores, err := b.reranker.ScorePairs(ctx, query, passages)
	if err != nil {
		slog.Warn("rerank_failed", "error", err)
		return ranked
	}
	if len(scores) != len(ranked) {
		slog.Warn("rerank_score_count_mismatch", "scores", len(scores), "candidates", len(ranked))
		return ranked
	}

	indices := make([]int, len(ranked))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool {
		return scores[indices[i]] > scores[indices[j]]
	})

	out := make(domain.RankedResult, 0, len(ranked))
	for _, idx := range indices {
		out = append(out, ranked[idx])
	}
	return out
}
