package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"patro/internal/domain"
	"patro/internal/port"
)

type extractionLogRepo struct {
	db *sqlx.DB
}

// NewExtractionLogRepo creates a new PostgreSQL-backed ExtractionLogRepository.
func NewExtractionLogRepo(db *sqlx.DB) port.ExtractionLogRepository {
	return &extractionLogRepo{db: db}
}

func (r *extractionLogRepo) Create(ctx context.Context, entry *domain.ExtractionLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO extraction_logs (
		id, document_id, page_id, model, dpi, attempt,
		tokens_used, latency_ms, success, error_message, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10, $11
	)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.DocumentID, entry.PageID, entry.Model, entry.DPI, entry.Attempt,
		entry.TokensUsed, entry.LatencyMS, entry.Success, entry.ErrorMsg, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("extractionLogRepo.Create: %w", err)
	}
	return nil
}

func (r *extractionLogRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.ExtractionLog, error) {
	var entries []domain.ExtractionLog
	err := r.db.SelectContext(ctx, &entries,
		"SELECT * FROM extraction_logs WHERE document_id = $1 ORDER BY created_at, attempt", docID)
	if err != nil {
		return nil, fmt.Errorf("extractionLogRepo.ListByDocument: %w", err)
	}
	return entries, nil
}
