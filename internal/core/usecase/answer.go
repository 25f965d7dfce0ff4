package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
	"github.com/kirillkom/corpus-chat/internal/core/ports"
)

// AnswerUseCase is the full query pipeline: normalize, cache lookup,
// retrieve, rerank, grounding policy, context assembly, generation, citation
// extraction, cache store. Generation failures degrade into user-readable
// answer text; the request itself only fails on invalid input or
// cancellation.
type AnswerUseCase struct {
	normalizer *Normalizer
	cache      ports.AnswerCache
	retrieval  *RetrievalEngine
	reranker   *RerankerBridge
	policy     *GroundingPolicy
	budgeter   *ContextBudgeter
	generator  ports.Generator

	maxTokens   int
	temperature float64
}

func NewAnswerUseCase(
	normalizer *Normalizer,
	cache ports.AnswerCache,
	retrieval *RetrievalEngine,
	reranker *RerankerBridge,
	policy *GroundingPolicy,
	budgeter *ContextBudgeter,
	generator ports.Generator,
	maxTokens int,
	temperature float64,
) *AnswerUseCase {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &AnswerUseCase{
		normalizer:  normalizer,
		cache:       cache,
		retrieval:   retrieval,
		reranker:    reranker,
		policy:      policy,
		budgeter:    budgeter,
		generator:   generator,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (uc *AnswerUseCase) Answer(
	ctx context.Context,
	question string,
	topK int,
	filter domain.SearchFilter,
) (*domain.Answer, error) {
	start := time.Now()

	query, err := uc.buildQuery(question, topK, filter)
	if err != nil {
		return nil, err
	}

	key := uc.cache.Key(query.Normalized, query.ScopeID, query.TopK)
	if cached, ok := uc.cache.GetAnswer(key); ok {
		return cached, nil
	}

	ranked, fromCache := uc.rankedCandidates(ctx, query, key)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !fromCache {
		uc.cache.PutRanked(key, ranked)
	}

	ranked = uc.reranker.Rerank(ctx, query.Normalized, ranked)

	decision := uc.policy.Decide(query, ranked)
	if decision.Outcome != domain.OutcomeGrounded {
		answer := uc.finishAnswer(decision.Message, decision.Outcome, nil, domain.TokenUsage{}, start)
		uc.storeAnswer(ctx, key, answer)
		return answer, nil
	}

	assembled := uc.budgeter.Assemble(ranked)
	result, genErr := uc.generator.Complete(ctx, domain.CompletionRequest{
		SystemPrompt: answerSystemPrompt,
		UserPrompt:   buildUserPrompt(query, assembled.Prompt),
		MaxTokens:    uc.maxTokens,
		Temperature:  uc.temperature,
	})

	citations := buildCitations(query.Normalized, assembled.Retained)

	if genErr != nil {
		if errors.Is(genErr, context.Canceled) || errors.Is(genErr, context.DeadlineExceeded) {
			return nil, genErr
		}
		slog.Warn("answer_generation_degraded", "error", genErr)
		answer := uc.finishAnswer(degradedAnswerText(genErr), domain.OutcomeGrounded, citations, domain.TokenUsage{}, start)
		return answer, nil
	}

	answer := uc.finishAnswer(result.Text, domain.OutcomeGrounded, citations, result.Usage, start)
	uc.storeAnswer(ctx, key, answer)
	return answer, nil
}

// Search runs only the retrieval half of the pipeline, with the same cache.
func (uc *AnswerUseCase) Search(
	ctx context.Context,
	question string,
	topK int,
	filter domain.SearchFilter,
) (domain.RankedResult, error) {
	query, err := uc.buildQuery(question, topK, filter)
	if err != nil {
		return nil, err
	}

	key := uc.cache.Key(query.Normalized, query.ScopeID, query.TopK)
	ranked, fromCache := uc.rankedCandidates(ctx, query, key)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !fromCache {
		uc.cache.PutRanked(key, ranked)
	}
	return ranked, nil
}

func (uc *AnswerUseCase) buildQuery(question string, topK int, filter domain.SearchFilter) (domain.Query, error) {
	normalized := uc.normalizer.Normalize(question)
	if normalized == "" {
		return domain.Query{}, domain.WrapError(domain.ErrInvalidInput, "build query", errors.New("empty question"))
	}
	if topK <= 0 {
		topK = 5
	}
	return domain.Query{
		Raw:        question,
		Normalized: normalized,
		Language:   domain.DetectLanguage(question),
		ScopeID:    filter.DocumentID,
		TopK:       topK,
	}, nil
}

func (uc *AnswerUseCase) rankedCandidates(ctx context.Context, query domain.Query, key string) (domain.RankedResult, bool) {
	if ranked, ok := uc.cache.GetRanked(key); ok {
		return ranked, true
	}
	return uc.retrieval.Retrieve(ctx, query), false
}

// storeAnswer writes to the cache only for fully successful pipelines, and
// never from an abandoned request.
func (uc *AnswerUseCase) storeAnswer(ctx context.Context, key string, answer *domain.Answer) {
	if ctx.Err() != nil {
		return
	}
	uc.cache.PutAnswer(key, answer)
}

func (uc *AnswerUseCase) finishAnswer(
	text string,
	outcome domain.Outcome,
	citations []domain.Citation,
	usage domain.TokenUsage,
	start time.Time,
) *domain.Answer {
	if citations == nil {
		citations = []domain.Citation{}
	}
	return &domain.Answer{
		ID:        uuid.NewString(),
		Text:      text,
		Outcome:   outcome,
		Citations: citations,
		Usage:     usage,
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

// degradedAnswerText converts a generation failure kind into user-facing
// text specific enough to tell "try again later" from "try again tomorrow"
// from "contact the administrator", without leaking internals.
func degradedAnswerText(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrRateLimited):
		return "I've reached the request limit for the language model. Please try again tomorrow, or ask the administrator to raise the plan limits."
	case domain.IsKind(err, domain.ErrUnauthenticated):
		return "The language model rejected the configured credentials. Please contact the administrator to check the API configuration."
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "The language model rejected this request. Please try rephrasing your question."
	case domain.IsKind(err, domain.ErrTemporary):
		return "I'm having temporary trouble reaching the language model. Please try again in a few minutes."
	default:
		return "I ran into an unexpected problem while generating the answer. Please try again later."
	}
}
