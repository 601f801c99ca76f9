package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/google/uuid"

	"patro/internal/config"
	"patro/internal/domain"
	"patro/internal/extractor"
	"patro/internal/orient"
	"patro/internal/port"
	"patro/internal/raster"
	"patro/internal/tabular"
)

const runTimeout = 30 * time.Minute

// ReprocessInput is the DTO for re-running extraction on a document.
type ReprocessInput struct {
	DocumentID uuid.UUID
	// SkipRotation reuses the rotation angles from the previous run instead of
	// re-detecting orientation.
	SkipRotation bool
}

// PipelineService drives the per-document processing pipeline: rasterize,
// orient, extract, normalize, persist, one page at a time in page order.
type PipelineService interface {
	// Run executes the pipeline for a document in the calling goroutine with
	// its own timeout context. Intended to be launched via go.
	Run(docID uuid.UUID)
	Reprocess(ctx context.Context, input *ReprocessInput) (*domain.Document, error)
	// Cancel flags the document's active run; it is honored at the next page
	// boundary.
	Cancel(ctx context.Context, docID uuid.UUID) error
}

type pipelineService struct {
	docRepo     port.DocumentRepository
	pageRepo    port.PageRepository
	contentRepo port.ContentRepository
	logRepo     port.ExtractionLogRepository
	storage     port.ObjectStorage
	rasterizer  port.Rasterizer
	detector    *orient.Detector
	extractor   port.PageExtractor
	cfg         config.PipelineConfig
	runs        *cancelRegistry
}

// NewPipelineService creates a PipelineService implementation.
func NewPipelineService(
	docRepo port.DocumentRepository,
	pageRepo port.PageRepository,
	contentRepo port.ContentRepository,
	logRepo port.ExtractionLogRepository,
	storage port.ObjectStorage,
	rasterizer port.Rasterizer,
	detector *orient.Detector,
	pageExtractor port.PageExtractor,
	cfg config.PipelineConfig,
) PipelineService {
	return &pipelineService{
		docRepo:     docRepo,
		pageRepo:    pageRepo,
		contentRepo: contentRepo,
		logRepo:     logRepo,
		storage:     storage,
		rasterizer:  rasterizer,
		detector:    detector,
		extractor:   pageExtractor,
		cfg:         cfg,
		runs:        newCancelRegistry(),
	}
}

func (s *pipelineService) Run(docID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	s.run(ctx, docID, nil)
}

// run executes one pipeline pass. rotationOverrides, when non-nil, maps page
// numbers to rotation angles from a previous run and disables re-detection.
func (s *pipelineService) run(ctx context.Context, docID uuid.UUID, rotationOverrides map[int]int) {
	if !s.runs.acquire(docID) {
		log.Printf("pipelineService.run: run already active for document %s, skipping", docID)
		return
	}
	defer s.runs.release(docID)

	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		log.Printf("pipelineService.run: failed to get document %s: %v", docID, err)
		return
	}

	log.Printf("pipelineService.run: starting processing for document %s (%s)", doc.ID, doc.OriginalName)

	doc.Status = domain.StatusProcessing
	doc.ErrorMessage = ""
	if err := s.docRepo.UpdateStatus(ctx, doc); err != nil {
		log.Printf("pipelineService.run: failed to set processing status for %s: %v", docID, err)
		return
	}

	data, err := s.storage.Download(ctx, doc.StorageBucket, doc.StorageKey)
	if err != nil {
		s.fail(ctx, doc, fmt.Sprintf("downloading source file: %v", err))
		return
	}

	src := port.RenderSource{Data: data, ContentType: doc.FileType.ContentType()}

	pageCount, err := s.rasterizer.PageCount(src)
	if err != nil {
		s.fail(ctx, doc, fmt.Sprintf("reading source file: %v", err))
		return
	}

	languageHint := ""
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		if s.runs.isCancelled(docID) {
			log.Printf("pipelineService.run: cancellation detected for %s before page %d", docID, pageNum)
			doc.Status = domain.StatusCancelled
			doc.ErrorMessage = "processing cancelled"
			if err := s.docRepo.UpdateStatus(ctx, doc); err != nil {
				log.Printf("pipelineService.run: failed to set cancelled status for %s: %v", docID, err)
			}
			return
		}

		// Fresh read before the page's writes: if the document was deleted
		// mid-run by an external actor, abort silently instead of reporting
		// into rows that no longer exist.
		fresh, err := s.docRepo.GetByID(ctx, docID)
		if errors.Is(err, domain.ErrDocumentNotFound) {
			log.Printf("pipelineService.run: document %s deleted mid-run, aborting", docID)
			return
		}
		if err != nil {
			s.fail(ctx, doc, fmt.Sprintf("re-reading document before page %d: %v", pageNum, err))
			return
		}
		doc = fresh

		if err := s.processPage(ctx, doc, src, pageNum, rotationOverrides, &languageHint); err != nil {
			s.fail(ctx, doc, fmt.Sprintf("page %d: %v", pageNum, err))
			return
		}
	}

	now := time.Now().UTC()
	doc.TotalPages = pageCount
	doc.Status = domain.StatusCompleted
	doc.ErrorMessage = ""
	doc.ProcessedAt = &now
	if err := s.docRepo.UpdateStatus(ctx, doc); err != nil {
		log.Printf("pipelineService.run: failed to set completed status for %s: %v", docID, err)
		return
	}

	log.Printf("pipelineService.run: document %s processed successfully (%d pages)", docID, pageCount)
}

// fail marks the document failed, preserving pages that already completed.
func (s *pipelineService) fail(ctx context.Context, doc *domain.Document, errMsg string) {
	log.Printf("pipelineService.fail: document %s failed: %s", doc.ID, errMsg)
	doc.Status = domain.StatusFailed
	doc.ErrorMessage = errMsg
	if err := s.docRepo.UpdateStatus(ctx, doc); err != nil {
		log.Printf("pipelineService.fail: failed to update status for %s: %v", doc.ID, err)
	}
}

// processPage runs the full per-page sequence: render, orient, store the
// corrected image, extract (with the one-shot low-confidence retry), and
// persist normalized content.
func (s *pipelineService) processPage(
	ctx context.Context,
	doc *domain.Document,
	src port.RenderSource,
	pageNum int,
	rotationOverrides map[int]int,
	languageHint *string,
) error {
	img, err := s.rasterizer.Render(src, pageNum-1, s.cfg.DefaultDPI)
	if err != nil {
		return err
	}

	var corrected image.Image
	var rotation int
	if rotationOverrides != nil {
		rotation = rotationOverrides[pageNum]
		corrected = orient.Rotate(img, rotation)
	} else {
		corrected, rotation = s.detector.DetectAndCorrect(img)
	}

	jpegBytes, err := raster.EncodeJPEG(corrected)
	if err != nil {
		return err
	}

	imageKey := fmt.Sprintf("pages/%s/page_%d.jpg", doc.ID, pageNum)
	if err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      doc.StorageBucket,
		Key:         imageKey,
		ContentType: "image/jpeg",
		Data:        jpegBytes,
	}); err != nil {
		return fmt.Errorf("storing page image: %w", err)
	}

	bounds := corrected.Bounds()
	page := &domain.Page{
		ID:              uuid.New(),
		DocumentID:      doc.ID,
		PageNumber:      pageNum,
		ImageKey:        imageKey,
		Width:           bounds.Dx(),
		Height:          bounds.Dy(),
		AppliedRotation: rotation,
		Language:        domain.LanguageUnknown,
		DPI:             s.cfg.DefaultDPI,
	}
	if err := s.pageRepo.Create(ctx, page); err != nil {
		return fmt.Errorf("creating page record: %w", err)
	}

	out, dpiUsed, err := s.extract(ctx, doc, page, src, pageNum, rotation, jpegBytes, *languageHint)
	if err != nil {
		return err
	}

	if err := s.storeExtraction(ctx, page, out, dpiUsed); err != nil {
		return err
	}

	if page.Language != domain.LanguageUnknown {
		*languageHint = string(page.Language)
	}
	return nil
}

// extract performs the first extraction attempt and, when warranted, exactly
// one retry at the high DPI. A retry happens when the first attempt succeeds
// below the confidence threshold or fails schema validation; the retry's
// result is final whatever its own confidence. Every attempt writes one
// extraction log entry.
func (s *pipelineService) extract(
	ctx context.Context,
	doc *domain.Document,
	page *domain.Page,
	src port.RenderSource,
	pageNum, rotation int,
	jpegBytes []byte,
	languageHint string,
) (*port.ExtractOutput, int, error) {
	out, err := s.extractor.Extract(ctx, port.ExtractInput{
		ImageJPEG:    jpegBytes,
		LanguageHint: languageHint,
		DPI:          s.cfg.DefaultDPI,
	})
	s.logAttempt(ctx, doc, page, s.cfg.DefaultDPI, 1, out, err)

	var schemaErr *extractor.SchemaValidationError
	retry := errors.As(err, &schemaErr) ||
		(err == nil && out.Confidence < s.cfg.LowConfidenceThreshold)
	if !retry {
		return out, s.cfg.DefaultDPI, err
	}

	log.Printf("pipelineService.extract: retrying page %d of %s at %d DPI", pageNum, doc.ID, s.cfg.HighDPI)

	highImg, err := s.rasterizer.Render(src, pageNum-1, s.cfg.HighDPI)
	if err != nil {
		return nil, s.cfg.HighDPI, err
	}
	highJPEG, err := raster.EncodeJPEG(orient.Rotate(highImg, rotation))
	if err != nil {
		return nil, s.cfg.HighDPI, err
	}

	out, err = s.extractor.Extract(ctx, port.ExtractInput{
		ImageJPEG:    highJPEG,
		LanguageHint: languageHint,
		DPI:          s.cfg.HighDPI,
	})
	s.logAttempt(ctx, doc, page, s.cfg.HighDPI, 2, out, err)
	return out, s.cfg.HighDPI, err
}

// logAttempt records one extraction attempt. Log write failures never block
// the pipeline.
func (s *pipelineService) logAttempt(ctx context.Context, doc *domain.Document, page *domain.Page, dpi, attempt int, out *port.ExtractOutput, extractErr error) {
	entry := &domain.ExtractionLog{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		PageID:     page.ID,
		Model:      s.extractor.Model(),
		DPI:        dpi,
		Attempt:    attempt,
		Success:    extractErr == nil,
	}
	if extractErr != nil {
		entry.ErrorMsg = extractErr.Error()
	} else {
		entry.TokensUsed = out.Usage.TotalTokens
		entry.LatencyMS = out.Usage.LatencyMS
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		log.Printf("pipelineService.logAttempt: failed to write log entry for page %s: %v", page.ID, err)
	}
}

// storeExtraction persists the validated content tree: page metadata, then
// all blocks with their flattened table cells and form fields in one atomic
// replace.
func (s *pipelineService) storeExtraction(ctx context.Context, page *domain.Page, out *port.ExtractOutput, dpiUsed int) error {
	now := time.Now().UTC()
	page.Language = domain.ParseLanguage(out.Content.DetectedLanguage)
	page.PageType = out.Content.PageType
	page.Confidence = out.Confidence
	page.DPI = dpiUsed
	page.ProcessedAt = &now
	if err := s.pageRepo.Update(ctx, page); err != nil {
		return fmt.Errorf("updating page record: %w", err)
	}

	contents := make([]domain.PageContent, 0, len(out.Content.Blocks))
	for i, b := range out.Content.Blocks {
		block := domain.ContentBlock{
			ID:         uuid.New(),
			PageID:     page.ID,
			BlockIndex: i,
			BlockType:  domain.BlockType(b.BlockType),
			Text:       b.Text,
			Confidence: b.Confidence,
		}
		content := domain.PageContent{Block: block}

		if block.BlockType == domain.BlockTable {
			cells := tabular.Flatten(tabular.FromExtraction(b.TableData))
			for j := range cells {
				cells[j].ID = uuid.New()
				cells[j].BlockID = block.ID
			}
			content.Cells = cells
		}

		if block.BlockType == domain.BlockForm {
			fields := make([]domain.FormField, 0, len(b.FormData.Fields))
			for order, f := range b.FormData.Fields {
				fields = append(fields, domain.FormField{
					ID:         uuid.New(),
					BlockID:    block.ID,
					FieldOrder: order,
					Name:       f.FieldName,
					Label:      f.FieldLabel,
					FieldType:  domain.FieldType(f.FieldType),
					Value:      f.FieldValue,
					IsFilled:   f.IsFilled,
				})
			}
			content.Fields = fields
		}

		contents = append(contents, content)
	}

	if err := s.contentRepo.ReplacePageContent(ctx, page.ID, contents); err != nil {
		return fmt.Errorf("storing page content: %w", err)
	}
	return nil
}

func (s *pipelineService) Reprocess(ctx context.Context, input *ReprocessInput) (*domain.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}

	switch doc.Status {
	case domain.StatusProcessing:
		return nil, domain.ErrPipelineRunning
	case domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled:
	default:
		return nil, domain.ErrNotReprocessable
	}

	var rotationOverrides map[int]int
	if input.SkipRotation {
		pages, err := s.pageRepo.ListByDocument(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("snapshotting page rotations: %w", err)
		}
		rotationOverrides = make(map[int]int, len(pages))
		for _, p := range pages {
			rotationOverrides[p.PageNumber] = p.AppliedRotation
		}
	}

	// Content rows cascade with their pages.
	if err := s.pageRepo.DeleteByDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("deleting previous pages: %w", err)
	}

	doc.Status = domain.StatusUploaded
	doc.ErrorMessage = ""
	doc.TotalPages = 0
	doc.ProcessedAt = nil
	if err := s.docRepo.UpdateStatus(ctx, doc); err != nil {
		return nil, fmt.Errorf("resetting document for reprocess: %w", err)
	}

	log.Printf("pipelineService.Reprocess: reprocessing document %s (skip_rotation=%t)", doc.ID, input.SkipRotation)

	// Copy before launching so the caller's value is independent of background work.
	result := *doc

	go func(docID uuid.UUID, overrides map[int]int) {
		runCtx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		s.run(runCtx, docID, overrides)
	}(doc.ID, rotationOverrides)

	return &result, nil
}

func (s *pipelineService) Cancel(ctx context.Context, docID uuid.UUID) error {
	if _, err := s.docRepo.GetByID(ctx, docID); err != nil {
		return err
	}
	if !s.runs.requestCancel(docID) {
		return domain.ErrNotProcessing
	}
	log.Printf("pipelineService.Cancel: cancellation requested for document %s", docID)
	return nil
}
