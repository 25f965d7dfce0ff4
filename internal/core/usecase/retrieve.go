package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
	"github.com/kirillkom/corpus-chat/internal/core/ports"
)

// fallbackScore is the constant low-confidence score assigned to keyword
// matches. Fallback results must never appear more confident than genuine
// vector results, so this stays well below typical cosine similarities.
const fallbackScore = 0.3

// overFetchFactor requests more vector candidates than the caller asked for,
// so intent adjustment and reranking still have enough material after
// trimming back to k.
const overFetchFactor = 2

// RetrievalEngine turns a query into a ranked candidate set. Vector search
// is the primary path; any embedding or vector-store failure degrades to the
// keyword fallback instead of propagating. Total failure of both paths
// yields an empty result, never an error.
type RetrievalEngine struct {
	embedder ports.Embedder
	vectorDB ports.VectorStore
	keywords ports.KeywordStore
	intents  []domain.IntentRule
}

func NewRetrievalEngine(
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	keywords ports.KeywordStore,
	intents []domain.IntentRule,
) *RetrievalEngine {
	return &RetrievalEngine{
		embedder: embedder,
		vectorDB: vectorDB,
		keywords: keywords,
		intents:  intents,
	}
}

func (e *RetrievalEngine) Retrieve(ctx context.Context, query domain.Query) domain.RankedResult {
	k := query.TopK
	if k <= 0 {
		k = 5
	}
	filter := domain.SearchFilter{DocumentID: query.ScopeID}

	if ranked, ok := e.vectorRetrieve(ctx, query, k, filter); ok {
		return ranked
	}
	return e.fallbackRetrieve(ctx, query, k, filter)
}

func (e *RetrievalEngine) vectorRetrieve(
	ctx context.Context,
	query domain.Query,
	k int,
	filter domain.SearchFilter,
) (domain.RankedResult, bool) {
	vector := e.embedder.EmbedQuery(ctx, query.Normalized)
	if isZeroVector(vector) {
		slog.Warn("query_embedding_unavailable", "query_len", len(query.Normalized))
		return nil, false
	}

	hits, err := e.vectorDB.Search(ctx, vector, k*overFetchFactor, filter)
	if err != nil {
		slog.Warn("vector_search_failed", "error", err)
		return nil, false
	}
	if len(hits) == 0 {
		return nil, false
	}

	kind := e.vectorDB.ScoreKind()
	candidates := make(domain.RankedResult, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, domain.ScoredCandidate{
			Passage:    hit.Passage,
			Score:      normalizeScore(hit.RawScore, kind),
			Provenance: domain.ProvenanceVector,
		})
	}

	applyIntentAdjustment(query.Normalized, candidates, e.intents)
	sortByEffective(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, true
}

func (e *RetrievalEngine) fallbackRetrieve(
	ctx context.Context,
	query domain.Query,
	k int,
	filter domain.SearchFilter,
) domain.RankedResult {
	patterns := fallbackPatterns(query.Normalized)
	if len(patterns) == 0 {
		return nil
	}

	passages, err := e.keywords.Match(ctx, patterns, filter, k*overFetchFactor)
	if err != nil {
		slog.Warn("keyword_fallback_failed", "error", err)
		return nil
	}
	if len(passages) == 0 {
		return nil
	}

	candidates := make(domain.RankedResult, 0, len(passages))
	for _, passage := range passages {
		candidates = append(candidates, domain.ScoredCandidate{
			Passage:    passage,
			Score:      fallbackScore,
			Provenance: domain.ProvenanceFallback,
		})
	}

	applyIntentAdjustment(query.Normalized, candidates, e.intents)
	sortByEffective(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// normalizeScore maps heterogeneous store outputs onto a single 0..1 scale.
// Similarity scores pass through; unbounded distances use 1/(1+d).
func normalizeScore(raw float64, kind domain.ScoreKind) float64 {
	var score float64
	switch kind {
	case domain.ScoreDistance:
		if raw < 0 {
			raw = 0
		}
		score = 1.0 / (1.0 + raw)
	default:
		score = raw
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func sortByEffective(candidates domain.RankedResult) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Effective() > candidates[j].Effective()
	})
}

// fallbackPatterns derives the union of match patterns from the query: the
// exact phrase, a whitespace-flexible phrase, individual tokens and the
// joined/hyphenated/underscored variants of multi-word queries.
func fallbackPatterns(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	tokens := strings.Fields(query)
	patterns := make([]string, 0, len(tokens)+5)

	patterns = append(patterns, regexp.QuoteMeta(query))
	if len(tokens) > 1 {
		quoted := make([]string, 0, len(tokens))
		for _, token := range tokens {
			quoted = append(quoted, regexp.QuoteMeta(token))
		}
		patterns = append(patterns, strings.Join(quoted, `\s+`))
	}
	for _, token := range tokens {
		patterns = append(patterns, regexp.QuoteMeta(token))
	}
	if len(tokens) > 1 {
		patterns = append(patterns,
			regexp.QuoteMeta(strings.Join(tokens, "")),
			regexp.QuoteMeta(strings.Join(tokens, "-")),
			regexp.QuoteMeta(strings.Join(tokens, "_")),
		)
	}
	return dedupeStrings(patterns)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func isZeroVector(vector []float32) bool {
	if len(vector) == 0 {
		return true
	}
	for _, v := range vector {
		if v != 0 {
			return false
		}
	}
	return true
}
