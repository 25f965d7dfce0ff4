package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
	"github.com/kirillkom/corpus-chat/internal/core/ports"
)

// Selector routes extraction to a format-specific extractor by extension,
// falling back to MIME type and finally to plain text.
type Selector struct {
	pdf         ports.TextExtractor
	spreadsheet ports.TextExtractor
	plaintext   ports.TextExtractor
}

func NewSelector(pdf, spreadsheet, plaintext ports.TextExtractor) *Selector {
	return &Selector{
		pdf:         pdf,
		spreadsheet: spreadsheet,
		plaintext:   plaintext,
	}
}

func (s *Selector) Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error) {
	return s.pick(doc).Extract(ctx, doc)
}

func (s *Selector) pick(doc *domain.Document) ports.TextExtractor {
	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return s.pdf
	case ".xlsx", ".xlsm", ".xls":
		return s.spreadsheet
	}

	switch doc.MimeType {
	case "application/pdf":
		return s.pdf
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel":
		return s.spreadsheet
	}
	return s.plaintext
}
