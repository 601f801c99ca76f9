package port

import (
	"context"

	"github.com/google/uuid"

	"patro/internal/domain"
)

// DocumentRepository abstracts persistence for documents.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error)
	List(ctx context.Context, offset, limit int) ([]domain.Document, int, error)
	// UpdateStatus persists status, error message, total pages and the
	// processed timestamp.
	UpdateStatus(ctx context.Context, doc *domain.Document) error
	Delete(ctx context.Context, docID uuid.UUID) error
}

// PageRepository abstracts persistence for document pages.
type PageRepository interface {
	Create(ctx context.Context, page *domain.Page) error
	GetByNumber(ctx context.Context, docID uuid.UUID, pageNumber int) (*domain.Page, error)
	ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.Page, error)
	// Update persists extraction results (rotation, language, page type,
	// confidence, dimensions, processed timestamp).
	Update(ctx context.Context, page *domain.Page) error
	// DeleteByDocument removes all pages for a document; content rows
	// cascade.
	DeleteByDocument(ctx context.Context, docID uuid.UUID) error
}

// ContentRepository abstracts persistence for content blocks and their
// table-cell / form-field payloads.
type ContentRepository interface {
	// ReplacePageContent atomically deletes all existing blocks (with their
	// cells and fields) for the page and inserts the given content in one
	// transaction. Used both for first-time population and reprocessing.
	ReplacePageContent(ctx context.Context, pageID uuid.UUID, content []domain.PageContent) error
	ListByPage(ctx context.Context, pageID uuid.UUID) ([]domain.PageContent, error)
	GetBlock(ctx context.Context, blockID uuid.UUID) (*domain.ContentBlock, error)
	ListCellsByBlock(ctx context.Context, blockID uuid.UUID) ([]domain.TableCell, error)
}

// ExtractionLogRepository records extraction attempts. Append-only.
type ExtractionLogRepository interface {
	Create(ctx context.Context, entry *domain.ExtractionLog) error
	ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.ExtractionLog, error)
}
