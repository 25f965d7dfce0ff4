package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
	"github.com/kirillkom/corpus-chat/internal/core/ports"
)

// ProcessDocumentUseCase turns an uploaded document into indexed passages:
// extract, chunk with positions, map page numbers and section labels, embed,
// index in the vector store and persist for the keyword fallback.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	passages  ports.PassageStore
	queue     ports.MessageQueue
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	passages ports.PassageStore,
	queue ports.MessageQueue,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectorDB:  vectorDB,
		passages:  passages,
		queue:     queue,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	pageCount, passageCount, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SetCounts(ctx, documentID, pageCount, passageCount); err != nil {
		return fmt.Errorf("save passage counts: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	// Indexed content changed: memoized retrieval results are stale now.
	if err := uc.queue.PublishCorpusChanged(ctx, documentID); err != nil {
		return fmt.Errorf("publish corpus-changed event: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (int, int, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch document by id: %w", err)
	}

	extracted, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return 0, 0, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(extracted.Full) == "" {
		return 0, 0, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	chunks := uc.chunker.Split(extracted.Full)
	if len(chunks) == 0 {
		return 0, 0, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero passages"))
	}

	passages := buildPassages(doc, extracted, chunks)

	texts := make([]string, 0, len(passages))
	for _, passage := range passages {
		texts = append(texts, passage.Text)
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, 0, fmt.Errorf("embed passages: %w", err)
	}
	if len(vectors) != len(passages) {
		return 0, 0, domain.WrapError(
			domain.ErrInvalidInput,
			"embed passages",
			fmt.Errorf("vectors/passages mismatch: %d/%d", len(vectors), len(passages)),
		)
	}

	if err := uc.vectorDB.IndexPassages(ctx, passages, vectors); err != nil {
		return 0, 0, fmt.Errorf("index passages in vector db: %w", err)
	}
	if err := uc.passages.SavePassages(ctx, passages); err != nil {
		return 0, 0, fmt.Errorf("persist passages: %w", err)
	}

	return len(extracted.Pages), len(passages), nil
}

func buildPassages(doc *domain.Document, extracted domain.ExtractedText, chunks []domain.TextChunk) []domain.Passage {
	passages := make([]domain.Passage, 0, len(chunks))
	for _, chunk := range chunks {
		passages = append(passages, domain.Passage{
			SourceID:   uuid.NewString(),
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Text:       chunk.Text,
			StartPos:   chunk.StartPos,
			EndPos:     chunk.EndPos,
			PageNumber: pageNumberFor(chunk.Text, extracted.Pages),
			Section:    inferSection(chunk.Text),
		})
	}
	return passages
}

func pageNumberFor(text string, pages []domain.PageText) int {
	for _, page := range pages {
		if strings.Contains(page.Text, text) {
			return page.Number
		}
	}
	return 0
}

// inferSection assigns a rough section label used by intent adjustment.
// The keyword list mirrors the default intent rules; it is a heuristic, not
// a classifier.
func inferSection(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "project"):
		return "projects"
	case strings.Contains(t, "internship"):
		return "internships"
	case strings.Contains(t, "education"):
		return "education"
	case strings.Contains(t, "skill"):
		return "skills"
	case strings.Contains(t, "experience"):
		return "experience"
	default:
		return ""
	}
}
