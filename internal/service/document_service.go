package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"patro/internal/domain"
	"patro/internal/port"
	"patro/internal/tabular"
)

// UploadDocumentInput is the DTO for uploading a source file.
type UploadDocumentInput struct {
	Title       string
	FileName    string
	ContentType string
	Data        []byte
}

// DocumentService defines the document management contract.
type DocumentService interface {
	Upload(ctx context.Context, input *UploadDocumentInput) (*domain.Document, error)
	GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, []domain.Page, error)
	List(ctx context.Context, offset, limit int) ([]domain.Document, int, error)
	Delete(ctx context.Context, docID uuid.UUID) error
	GetPageContent(ctx context.Context, docID uuid.UUID, pageNumber int) (*domain.Page, []domain.PageContent, error)
	// GetReconstructedTable rebuilds the nested table form for one table
	// block from its flat cells.
	GetReconstructedTable(ctx context.Context, blockID uuid.UUID) (*tabular.Table, error)
	ListLogs(ctx context.Context, docID uuid.UUID) ([]domain.ExtractionLog, error)
}

type documentService struct {
	docRepo     port.DocumentRepository
	pageRepo    port.PageRepository
	contentRepo port.ContentRepository
	logRepo     port.ExtractionLogRepository
	storage     port.ObjectStorage
	pipeline    PipelineService
	bucket      string
	maxFileSize int64
}

// NewDocumentService creates a DocumentService implementation.
func NewDocumentService(
	docRepo port.DocumentRepository,
	pageRepo port.PageRepository,
	contentRepo port.ContentRepository,
	logRepo port.ExtractionLogRepository,
	storage port.ObjectStorage,
	pipeline PipelineService,
	bucket string,
	maxFileSize int64,
) DocumentService {
	return &documentService{
		docRepo:     docRepo,
		pageRepo:    pageRepo,
		contentRepo: contentRepo,
		logRepo:     logRepo,
		storage:     storage,
		pipeline:    pipeline,
		bucket:      bucket,
		maxFileSize: maxFileSize,
	}
}

func (s *documentService) Upload(ctx context.Context, input *UploadDocumentInput) (*domain.Document, error) {
	if int64(len(input.Data)) > s.maxFileSize {
		return nil, domain.ErrFileTooLarge
	}

	fileType, ok := domain.AllowedContentTypes[input.ContentType]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	title := input.Title
	if title == "" {
		title = input.FileName
	}

	docID := uuid.New()
	key := fmt.Sprintf("documents/%s/%s", docID, input.FileName)

	if err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.bucket,
		Key:         key,
		ContentType: input.ContentType,
		Data:        input.Data,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	doc := &domain.Document{
		ID:            docID,
		Title:         title,
		OriginalName:  input.FileName,
		FileType:      fileType,
		FileSize:      int64(len(input.Data)),
		StorageBucket: s.bucket,
		StorageKey:    key,
		Status:        domain.StatusUploaded,
		CreatedAt:     time.Now().UTC(),
	}

	log.Printf("documentService.Upload: creating document %s (%s, %d bytes)", doc.ID, doc.OriginalName, doc.FileSize)

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}

	// Copy before launching so the caller's value is independent of background work.
	result := *doc

	go s.pipeline.Run(doc.ID)

	return &result, nil
}

func (s *documentService) GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, []domain.Page, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	pages, err := s.pageRepo.ListByDocument(ctx, docID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing pages: %w", err)
	}
	return doc, pages, nil
}

func (s *documentService) List(ctx context.Context, offset, limit int) ([]domain.Document, int, error) {
	return s.docRepo.List(ctx, offset, limit)
}

func (s *documentService) Delete(ctx context.Context, docID uuid.UUID) error {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	// Best-effort blob cleanup; DB rows are the source of truth.
	pages, err := s.pageRepo.ListByDocument(ctx, docID)
	if err != nil {
		log.Printf("documentService.Delete: failed to list pages for %s: %v", docID, err)
	}
	for _, p := range pages {
		if p.ImageKey == "" {
			continue
		}
		if err := s.storage.Delete(ctx, doc.StorageBucket, p.ImageKey); err != nil {
			log.Printf("documentService.Delete: failed to delete page image %s: %v", p.ImageKey, err)
		}
	}
	if err := s.storage.Delete(ctx, doc.StorageBucket, doc.StorageKey); err != nil {
		log.Printf("documentService.Delete: failed to delete source file %s: %v", doc.StorageKey, err)
	}

	return s.docRepo.Delete(ctx, docID)
}

func (s *documentService) GetPageContent(ctx context.Context, docID uuid.UUID, pageNumber int) (*domain.Page, []domain.PageContent, error) {
	page, err := s.pageRepo.GetByNumber(ctx, docID, pageNumber)
	if err != nil {
		return nil, nil, err
	}
	contents, err := s.contentRepo.ListByPage(ctx, page.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing page content: %w", err)
	}
	return page, contents, nil
}

func (s *documentService) GetReconstructedTable(ctx context.Context, blockID uuid.UUID) (*tabular.Table, error) {
	block, err := s.contentRepo.GetBlock(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if block.BlockType != domain.BlockTable {
		return nil, domain.ErrNotTableBlock
	}
	cells, err := s.contentRepo.ListCellsByBlock(ctx, blockID)
	if err != nil {
		return nil, fmt.Errorf("listing table cells: %w", err)
	}
	t := tabular.Reconstruct(cells)
	return &t, nil
}

func (s *documentService) ListLogs(ctx context.Context, docID uuid.UUID) ([]domain.ExtractionLog, error) {
	if _, err := s.docRepo.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	return s.logRepo.ListByDocument(ctx, docID)
}
