package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
	"github.com/kirillkom/corpus-chat/internal/core/ports"
)

type cacheFake struct {
	ranked  map[string]domain.RankedResult
	answers map[string]*domain.Answer

	rankedPuts int
	answerPuts int
}

func newCacheFake() *cacheFake {
	return &cacheFake{
		ranked:  make(map[string]domain.RankedResult),
		answers: make(map[string]*domain.Answer),
	}
}

func (c *cacheFake) Key(queryText, scopeID string, k int) string {
	return queryText + "|" + scopeID + "|" + string(rune('0'+k))
}

func (c *cacheFake) GetRanked(key string) (domain.RankedResult, bool) {
	r, ok := c.ranked[key]
	return r, ok
}

func (c *cacheFake) PutRanked(key string, result domain.RankedResult) {
	c.rankedPuts++
	c.ranked[key] = result
}

func (c *cacheFake) GetAnswer(key string) (*domain.Answer, bool) {
	a, ok := c.answers[key]
	return a, ok
}

func (c *cacheFake) PutAnswer(key string, answer *domain.Answer) {
	c.answerPuts++
	c.answers[key] = answer
}

func (c *cacheFake) InvalidateAll() {
	c.ranked = make(map[string]domain.RankedResult)
	c.answers = make(map[string]*domain.Answer)
}

type generatorFake struct {
	text  string
	err   error
	calls int
}

func (g *generatorFake) Complete(_ context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	g.calls++
	if g.err != nil {
		return domain.CompletionResult{}, g.err
	}
	return domain.CompletionResult{
		Text:  g.text,
		Usage: domain.TokenUsage{PromptTokens: 100, CompletionTokens: 50},
	}, nil
}

func newAnswerUseCase(cache ports.AnswerCache, vectors *vectorFake, generator *generatorFake) *AnswerUseCase {
	rules := domain.DefaultHeuristics()
	return NewAnswerUseCase(
		NewNormalizer(rules.NormalizerFixes),
		cache,
		NewRetrievalEngine(embedderFake{queryVector: []float32{1, 0}}, vectors, &keywordFake{}, rules.IntentRules),
		NewRerankerBridge(nil),
		NewGroundingPolicy(rules.GeneralKnowledgeTriggers),
		NewContextBudgeter(4000),
		generator,
		500,
		0.3,
	)
}

func TestAnswerGroundedPathProducesCitations(t *testing.T) {
	vectors := &vectorFake{hits: []ports.VectorHit{
		hit("p1", "Built a payment gateway in Go", 0.9),
	}}
	generator := &generatorFake{text: "They built a payment gateway."}
	cache := newCacheFake()
	uc := newAnswerUseCase(cache, vectors, generator)

	answer, err := uc.Answer(context.Background(), "tell me about the payment gateway", 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Outcome != domain.OutcomeGrounded {
		t.Fatalf("expected grounded outcome, got %s", answer.Outcome)
	}
	if answer.Text != "They built a payment gateway." {
		t.Fatalf("unexpected answer text: %q", answer.Text)
	}
	if len(answer.Citations) != 1 || answer.Citations[0].SourceID != "p1" {
		t.Fatalf("expected one citation for p1, got %+v", answer.Citations)
	}
	if answer.Usage.PromptTokens != 100 || answer.Usage.CompletionTokens != 50 {
		t.Fatalf("expected usage propagated, got %+v", answer.Usage)
	}
	if answer.ID == "" {
		t.Fatalf("answer must carry an id")
	}
	if cache.answerPuts != 1 || cache.rankedPuts != 1 {
		t.Fatalf("expected both payloads cached, got answers=%d ranked=%d", cache.answerPuts, cache.rankedPuts)
	}
}

func TestAnswerNoContextSkipsGenerator(t *testing.T) {
	vectors := &vectorFake{}
	generator := &generatorFake{text: "never used"}
	uc := newAnswerUseCase(newCacheFake(), vectors, generator)

	answer, err := uc.Answer(context.Background(), "zzzunfindable", 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Outcome != domain.OutcomeNoContext {
		t.Fatalf("expected no_context, got %s", answer.Outcome)
	}
	if generator.calls != 0 {
		t.Fatalf("generator must not run without context, got %d calls", generator.calls)
	}
	if len(answer.Citations) != 0 {
		t.Fatalf("no-context answer carries no citations, got %+v", answer.Citations)
	}
	if answer.Citations == nil {
		t.Fatalf("citations must be empty, not nil")
	}
}

func TestAnswerCachedAnswerShortCircuits(t *testing.T) {
	vectors := &vectorFake{hits: []ports.VectorHit{hit("p1", "cached content", 0.9)}}
	generator := &generatorFake{text: "generated"}
	cache := newCacheFake()
	uc := newAnswerUseCase(cache, vectors, generator)

	first, err := uc.Answer(context.Background(), "cached content question", 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("first Answer() error = %v", err)
	}
	second, err := uc.Answer(context.Background(), "cached content question", 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("second Answer() error = %v", err)
	}

	if generator.calls != 1 {
		t.Fatalf("expected one generation, got %d", generator.calls)
	}
	if second.ID != first.ID {
		t.Fatalf("cached answer must be returned as-is")
	}
}

func TestAnswerEquivalentPhrasingsShareCacheEntry(t *testing.T) {
	vectors := &vectorFake{hits: []ports.VectorHit{hit("p1", "internship report", 0.9)}}
	generator := &generatorFake{text: "generated"}
	uc := newAnswerUseCase(newCacheFake(), vectors, generator)

	if _, err := uc.Answer(context.Background(), "tell me about the internship", 5, domain.SearchFilter{}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	// Misspelled variant normalizes to the same key.
	if _, err := uc.Answer(context.Background(), "tell me about the intenship", 5, domain.SearchFilter{}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if generator.calls != 1 {
		t.Fatalf("normalized variants must share one cache entry, generator ran %d times", generator.calls)
	}
}

func TestAnswerEmptyQuestionIsInvalidInput(t *testing.T) {
	uc := newAnswerUseCase(newCacheFake(), &vectorFake{}, &generatorFake{})

	_, err := uc.Answer(context.Background(), "   ", 5, domain.SearchFilter{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnswerRateLimitedGenerationDegradesAndIsNotCached(t *testing.T) {
	vectors := &vectorFake{hits: []ports.VectorHit{hit("p1", "quota question content", 0.9)}}
	generator := &generatorFake{err: domain.WrapError(domain.ErrRateLimited, "complete", errors.New("429"))}
	cache := newCacheFake()
	uc := newAnswerUseCase(cache, vectors, generator)

	answer, err := uc.Answer(context.Background(), "quota question content", 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("degraded generation must not fail the request: %v", err)
	}
	if !strings.Contains(answer.Text, "try again tomorrow") {
		t.Fatalf("unexpected degraded text: %q", answer.Text)
	}
	if len(answer.Citations) == 0 {
		t.Fatalf("degraded answers keep their citations")
	}
	if cache.answerPuts != 0 {
		t.Fatalf("degraded answers must not be cached, got %d puts", cache.answerPuts)
	}
}

func TestAnswerDegradedTextPerErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{domain.WrapError(domain.ErrUnauthenticated, "complete", errors.New("401")), "contact the administrator"},
		{domain.WrapError(domain.ErrInvalidInput, "complete", errors.New("400")), "rephrasing"},
		{domain.WrapError(domain.ErrTemporary, "complete", errors.New("503")), "few minutes"},
		{errors.New("mystery"), "unexpected problem"},
	}

	for _, tc := range cases {
		if got := degradedAnswerText(tc.err); !strings.Contains(got, tc.want) {
			t.Fatalf("degradedAnswerText(%v) = %q, want substring %q", tc.err, got, tc.want)
		}
	}
}

func TestAnswerCancelledContextNeverWritesCache(t *testing.T) {
	vectors := &vectorFake{hits: []ports.VectorHit{hit("p1", "slow question content", 0.9)}}
	cache := newCacheFake()
	uc := newAnswerUseCase(cache, vectors, &generatorFake{text: "late result"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Answer(ctx, "slow question content", 5, domain.SearchFilter{})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if cache.rankedPuts != 0 || cache.answerPuts != 0 {
		t.Fatalf("abandoned request wrote to cache: ranked=%d answers=%d", cache.rankedPuts, cache.answerPuts)
	}
}

func TestAnswerContextErrorFromGeneratorPropagates(t *testing.T) {
	vectors := &vectorFake{hits: []ports.VectorHit{hit("p1", "deadline question content", 0.9)}}
	generator := &generatorFake{err: context.DeadlineExceeded}
	uc := newAnswerUseCase(newCacheFake(), vectors, generator)

	_, err := uc.Answer(context.Background(), "deadline question content", 5, domain.SearchFilter{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error to propagate, got %v", err)
	}
}

func TestSearchReturnsRankedWithoutGeneration(t *testing.T) {
	vectors := &vectorFake{hits: []ports.VectorHit{hit("p1", "search content", 0.9)}}
	generator := &generatorFake{}
	cache := newCacheFake()
	uc := newAnswerUseCase(cache, vectors, generator)

	ranked, err := uc.Search(context.Background(), "search content", 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(ranked) != 1 || ranked[0].Passage.SourceID != "p1" {
		t.Fatalf("unexpected ranked result: %+v", ranked)
	}
	if generator.calls != 0 {
		t.Fatalf("search must not generate")
	}
	if cache.rankedPuts != 1 {
		t.Fatalf("search caches retrieval results, got %d puts", cache.rankedPuts)
	}
}
