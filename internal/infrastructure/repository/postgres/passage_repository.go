package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

// PassageRepository stores indexed passages and runs the keyword fallback
// search. The fallback uses Postgres case-insensitive regex matching (~*), so
// the same pattern set drives both code paths of the retrieval engine.
type PassageRepository struct {
	db *sql.DB
}

func NewPassageRepository(db *sql.DB) *PassageRepository {
	return &PassageRepository{db: db}
}

func (r *PassageRepository) SavePassages(ctx context.Context, passages []domain.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin passages tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO passages (source_id, document_id, filename, text, start_pos, end_pos, page_number, section)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (source_id) DO NOTHING
`)
	if err != nil {
		return fmt.Errorf("prepare passage insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range passages {
		if _, err := stmt.ExecContext(ctx,
			p.SourceID, p.DocumentID, p.Filename, p.Text, p.StartPos, p.EndPos, p.PageNumber, p.Section,
		); err != nil {
			return fmt.Errorf("insert passage %s: %w", p.SourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit passages tx: %w", err)
	}
	return nil
}

func (r *PassageRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM passages WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete passages: %w", err)
	}
	return nil
}

// Match returns passages whose text matches any of the regex patterns,
// ordered shortest-first so tighter passages surface before catch-alls.
func (r *PassageRepository) Match(
	ctx context.Context,
	patterns []string,
	filter domain.SearchFilter,
	limit int,
) ([]domain.Passage, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var (
		conditions []string
		args       []any
	)
	for _, pattern := range patterns {
		args = append(args, pattern)
		conditions = append(conditions, fmt.Sprintf("text ~* $%d", len(args)))
	}
	where := "(" + strings.Join(conditions, " OR ") + ")"
	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		where += fmt.Sprintf(" AND document_id = $%d", len(args))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT source_id, document_id, filename, text, start_pos, end_pos, page_number, section
FROM passages
WHERE %s
ORDER BY length(text) ASC
LIMIT $%d
`, where, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("match passages: %w", err)
	}
	defer rows.Close()

	var passages []domain.Passage
	for rows.Next() {
		var p domain.Passage
		if err := rows.Scan(
			&p.SourceID, &p.DocumentID, &p.Filename, &p.Text, &p.StartPos, &p.EndPos, &p.PageNumber, &p.Section,
		); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}
	return passages, nil
}
