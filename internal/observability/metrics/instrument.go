package metrics

import (
	"context"
	"time"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
	"github.com/kirillkom/corpus-chat/internal/core/ports"
)

// InstrumentedQueryService decorates a QueryService with answer, token and
// retrieval-path accounting. The use cases stay free of metric concerns; the
// decorator is applied at wiring time.
type InstrumentedQueryService struct {
	next    ports.QueryService
	metrics *HTTPServerMetrics
	service string
	model   string
}

func InstrumentQueryService(next ports.QueryService, m *HTTPServerMetrics, service, model string) *InstrumentedQueryService {
	return &InstrumentedQueryService{next: next, metrics: m, service: service, model: model}
}

func (s *InstrumentedQueryService) Answer(ctx context.Context, question string, topK int, filter domain.SearchFilter) (*domain.Answer, error) {
	start := time.Now()
	answer, err := s.next.Answer(ctx, question, topK, filter)
	if err != nil || answer == nil {
		return answer, err
	}
	s.metrics.RecordAnswer(s.service, string(answer.Outcome), len(answer.Citations), time.Since(start))
	s.metrics.RecordTokenUsage(s.service, s.model, answer.Usage.PromptTokens, answer.Usage.CompletionTokens)
	return answer, nil
}

func (s *InstrumentedQueryService) Search(ctx context.Context, question string, topK int, filter domain.SearchFilter) (domain.RankedResult, error) {
	result, err := s.next.Search(ctx, question, topK, filter)
	if err == nil && len(result) > 0 {
		// All candidates in one result share a retrieval path.
		s.metrics.RecordRetrievalPath(s.service, string(result[0].Provenance))
	}
	return result, err
}
