package ports

import (
	"context"
	"io"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetCounts(ctx context.Context, id string, pageCount, passageCount int) error
	Delete(ctx context.Context, id string) error
}

// PassageStore persists the indexed passages of a document so the keyword
// fallback can search them without the vector index.
type PassageStore interface {
	SavePassages(ctx context.Context, passages []domain.Passage) error
	DeleteByDocument(ctx context.Context, documentID string) error
}

// KeywordStore is the fallback search path: case-insensitive pattern match
// over passage text, optionally restricted to one document.
type KeywordStore interface {
	Match(ctx context.Context, patterns []string, filter domain.SearchFilter, limit int) ([]domain.Passage, error)
}

// ObjectStorage stores source documents. Remove tolerates missing keys.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes ingestion and corpus-mutation events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
	PublishCorpusChanged(ctx context.Context, documentID string) error
	SubscribeCorpusChanged(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts page-aware plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error)
}

// Chunker splits extracted text into passage-sized fragments with position
// ranges.
type Chunker interface {
	Split(text string) []domain.TextChunk
}

// Embedder builds vectors for passages and query text. Implementations must
// degrade to a zero vector of the configured dimension instead of failing, so
// ranking falls back to "no signal" rather than crashing the request.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) []float32
}

// VectorHit is one raw similarity result before score normalization.
type VectorHit struct {
	Passage  domain.Passage
	RawScore float64
}

// VectorStore indexes passages and performs semantic search. ScoreKind
// declares the semantics of RawScore so the retrieval engine can normalize.
type VectorStore interface {
	IndexPassages(ctx context.Context, passages []domain.Passage, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]VectorHit, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	ScoreKind() domain.ScoreKind
}

// Generator is the external LLM. Failures carry a domain error kind so the
// pipeline can distinguish rate limiting from misconfiguration.
type Generator interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error)
}

// Reranker scores (query, passage) pairs with a cross-encoder. Optional
// dependency: a nil Reranker disables the stage.
type Reranker interface {
	ScorePairs(ctx context.Context, query string, passages []string) ([]float64, error)
}

// AnswerCache memoizes retrieval results and synthesized answers per
// content-addressed key. When caching is disabled, gets report absent and
// puts are no-ops; callers never branch on the switch themselves.
type AnswerCache interface {
	Key(queryText, scopeID string, k int) string
	GetRanked(key string) (domain.RankedResult, bool)
	PutRanked(key string, result domain.RankedResult)
	GetAnswer(key string) (*domain.Answer, bool)
	PutAnswer(key string, answer *domain.Answer)
	InvalidateAll()
}
