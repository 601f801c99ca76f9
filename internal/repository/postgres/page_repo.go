package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"patro/internal/domain"
	"patro/internal/port"
)

type pageRepo struct {
	db *sqlx.DB
}

// NewPageRepo creates a new PostgreSQL-backed PageRepository.
func NewPageRepo(db *sqlx.DB) port.PageRepository {
	return &pageRepo{db: db}
}

func (r *pageRepo) Create(ctx context.Context, page *domain.Page) error {
	query := `INSERT INTO pages (
		id, document_id, page_number, image_key, width, height,
		applied_rotation, language, page_type, confidence, dpi, processed_at
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10, $11, $12
	)`

	_, err := r.db.ExecContext(ctx, query,
		page.ID, page.DocumentID, page.PageNumber, page.ImageKey, page.Width, page.Height,
		page.AppliedRotation, page.Language, page.PageType, page.Confidence, page.DPI, page.ProcessedAt)
	if err != nil {
		return fmt.Errorf("pageRepo.Create: %w", err)
	}
	return nil
}

func (r *pageRepo) GetByNumber(ctx context.Context, docID uuid.UUID, pageNumber int) (*domain.Page, error) {
	var page domain.Page
	err := r.db.GetContext(ctx, &page,
		"SELECT * FROM pages WHERE document_id = $1 AND page_number = $2",
		docID, pageNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPageNotFound
		}
		return nil, fmt.Errorf("pageRepo.GetByNumber: %w", err)
	}
	return &page, nil
}

func (r *pageRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.Page, error) {
	var pages []domain.Page
	err := r.db.SelectContext(ctx, &pages,
		"SELECT * FROM pages WHERE document_id = $1 ORDER BY page_number", docID)
	if err != nil {
		return nil, fmt.Errorf("pageRepo.ListByDocument: %w", err)
	}
	return pages, nil
}

func (r *pageRepo) Update(ctx context.Context, page *domain.Page) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE pages SET image_key = $1, width = $2, height = $3, applied_rotation = $4,
		 language = $5, page_type = $6, confidence = $7, dpi = $8, processed_at = $9
		 WHERE id = $10`,
		page.ImageKey, page.Width, page.Height, page.AppliedRotation,
		page.Language, page.PageType, page.Confidence, page.DPI, page.ProcessedAt,
		page.ID)
	if err != nil {
		return fmt.Errorf("pageRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrPageNotFound
	}
	return nil
}

func (r *pageRepo) DeleteByDocument(ctx context.Context, docID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM pages WHERE document_id = $1", docID)
	if err != nil {
		return fmt.Errorf("pageRepo.DeleteByDocument: %w", err)
	}
	return nil
}
