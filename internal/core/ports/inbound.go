package ports

import (
	"context"
	"io"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

// DocumentIngestor is the inbound contract for upload and removal of corpus
// documents.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
	Delete(ctx context.Context, documentID string) error
}

// DocumentProcessor is the inbound contract for asynchronous document
// indexing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
}

// QueryService is the inbound contract for grounded question answering.
type QueryService interface {
	Answer(ctx context.Context, question string, topK int, filter domain.SearchFilter) (*domain.Answer, error)
	Search(ctx context.Context, question string, topK int, filter domain.SearchFilter) (domain.RankedResult, error)
}
