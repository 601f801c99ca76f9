package service_test

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"patro/internal/config"
	"patro/internal/domain"
	"patro/internal/extractor"
	"patro/internal/orient"
	"patro/internal/port"
	"patro/internal/service"
	"patro/mocks"
)

type pipelineFixture struct {
	docRepo     *mocks.MockDocumentRepo
	pageRepo    *mocks.MockPageRepo
	contentRepo *mocks.MockContentRepo
	logRepo     *mocks.MockExtractionLogRepo
	storage     *mocks.MockObjectStorage
	rasterizer  *mocks.MockRasterizer
	extractor   *mocks.MockPageExtractor
	svc         service.PipelineService
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		docRepo:     new(mocks.MockDocumentRepo),
		pageRepo:    new(mocks.MockPageRepo),
		contentRepo: new(mocks.MockContentRepo),
		logRepo:     new(mocks.MockExtractionLogRepo),
		storage:     new(mocks.MockObjectStorage),
		rasterizer:  new(mocks.MockRasterizer),
		extractor:   new(mocks.MockPageExtractor),
	}
	f.svc = service.NewPipelineService(
		f.docRepo, f.pageRepo, f.contentRepo, f.logRepo,
		f.storage, f.rasterizer, orient.NewDetector(), f.extractor,
		config.PipelineConfig{DefaultDPI: 150, HighDPI: 300, LowConfidenceThreshold: 0.7},
	)
	return f
}

func uploadedDoc() *domain.Document {
	return &domain.Document{
		ID:            uuid.New(),
		Title:         "scan",
		OriginalName:  "scan.png",
		FileType:      domain.FileTypePNG,
		StorageBucket: "patro-uploads",
		StorageKey:    "documents/x/scan.png",
		Status:        domain.StatusUploaded,
		CreatedAt:     time.Now().UTC(),
	}
}

// blankPage is a plain white frame; orientation detection on it settles on 0.
func blankPage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func extractOutput(conf float64) *port.ExtractOutput {
	return &port.ExtractOutput{
		Content: &port.PageContent{
			PageType:           "text",
			DetectedLanguage:   "bn",
			LanguageConfidence: conf,
			Blocks: []port.ContentBlock{
				{BlockType: "paragraph", Text: "কিছু লেখা", Confidence: conf},
			},
		},
		Confidence: conf,
		Usage:      port.Usage{TotalTokens: 500, LatencyMS: 40},
	}
}

// stubHappyPath wires everything except the extractor for a single-page run.
func (f *pipelineFixture) stubHappyPath(doc *domain.Document, pageCount int) {
	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	f.docRepo.On("UpdateStatus", mock.Anything, mock.AnythingOfType("*domain.Document")).Return(nil)
	f.storage.On("Download", mock.Anything, doc.StorageBucket, doc.StorageKey).Return([]byte("source bytes"), nil)
	f.storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).Return(nil)
	f.rasterizer.On("PageCount", mock.Anything).Return(pageCount, nil)
	f.rasterizer.On("Render", mock.Anything, mock.AnythingOfType("int"), mock.AnythingOfType("int")).Return(blankPage(), nil)
	f.pageRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Page")).Return(nil)
	f.pageRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Page")).Return(nil)
	f.contentRepo.On("ReplacePageContent", mock.Anything, mock.AnythingOfType("uuid.UUID"), mock.Anything).Return(nil)
	f.logRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ExtractionLog")).Return(nil)
	f.extractor.On("Model").Return("gpt-4o")
}

func extractAtDPI(dpi int) interface{} {
	return mock.MatchedBy(func(in port.ExtractInput) bool { return in.DPI == dpi })
}

func TestRun_SinglePageSuccess(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	f.stubHappyPath(doc, 1)
	f.extractor.On("Extract", mock.Anything, extractAtDPI(150)).Return(extractOutput(0.9), nil)

	f.svc.Run(doc.ID)

	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Equal(t, 1, doc.TotalPages)
	require.NotNil(t, doc.ProcessedAt)
	assert.Empty(t, doc.ErrorMessage)

	// Exactly one attempt and one log entry above the confidence threshold.
	f.extractor.AssertNumberOfCalls(t, "Extract", 1)
	f.logRepo.AssertNumberOfCalls(t, "Create", 1)
	f.pageRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestRun_StoresPageImageAndContent(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	f.stubHappyPath(doc, 1)

	out := extractOutput(0.9)
	out.Content.Blocks = append(out.Content.Blocks, port.ContentBlock{
		BlockType:  "table",
		Confidence: 0.9,
		TableData: port.TableData{
			Headers: []port.TableHeader{
				{Text: "Item", ColumnPath: []int{0}, Level: 0},
			},
			Rows: []port.TableRow{
				{RowIndex: 0, Cells: []port.TableCell{
					{Text: "pen", ColumnPath: []int{0}, RowSpan: 1, ColSpan: 1},
				}},
			},
		},
	}, port.ContentBlock{
		BlockType:  "form",
		Confidence: 0.9,
		FormData: port.FormData{Fields: []port.FormField{
			{FieldName: "name", FieldLabel: "নাম", FieldType: "text", FieldValue: "Rahim", IsFilled: true},
		}},
	})
	f.extractor.On("Extract", mock.Anything, extractAtDPI(150)).Return(out, nil)

	var stored []domain.PageContent
	f.contentRepo.ExpectedCalls = nil
	f.contentRepo.On("ReplacePageContent", mock.Anything, mock.AnythingOfType("uuid.UUID"), mock.Anything).
		Run(func(args mock.Arguments) {
			stored = args.Get(2).([]domain.PageContent)
		}).Return(nil)

	var createdPage domain.Page
	f.pageRepo.ExpectedCalls = nil
	f.pageRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Page")).
		Run(func(args mock.Arguments) {
			createdPage = *args.Get(1).(*domain.Page)
		}).Return(nil)
	f.pageRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Page")).Return(nil)

	f.svc.Run(doc.ID)

	require.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Equal(t, 1, createdPage.PageNumber)
	assert.Equal(t, doc.ID, createdPage.DocumentID)
	assert.Contains(t, createdPage.ImageKey, "page_1.jpg")

	require.Len(t, stored, 3)
	assert.Equal(t, domain.BlockParagraph, stored[0].Block.BlockType)
	assert.Empty(t, stored[0].Cells)

	// Table block carries flattened cells: one header at row -1 plus one data cell.
	table := stored[1]
	assert.Equal(t, domain.BlockTable, table.Block.BlockType)
	require.Len(t, table.Cells, 2)
	for _, c := range table.Cells {
		assert.NotEqual(t, uuid.Nil, c.ID)
		assert.Equal(t, table.Block.ID, c.BlockID)
	}
	assert.Equal(t, -1, table.Cells[0].RowNumber)
	assert.True(t, table.Cells[0].IsHeader)
	assert.Equal(t, "pen", table.Cells[1].Text)

	form := stored[2]
	assert.Equal(t, domain.BlockForm, form.Block.BlockType)
	require.Len(t, form.Fields, 1)
	assert.Equal(t, "name", form.Fields[0].Name)
	assert.Equal(t, 0, form.Fields[0].FieldOrder)
	assert.Equal(t, form.Block.ID, form.Fields[0].BlockID)
}

func TestRun_LowConfidenceRetriesAtHighDPI(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	f.stubHappyPath(doc, 1)
	f.extractor.On("Extract", mock.Anything, extractAtDPI(150)).Return(extractOutput(0.5), nil).Once()
	f.extractor.On("Extract", mock.Anything, extractAtDPI(300)).Return(extractOutput(0.6), nil).Once()

	var updatedPage domain.Page
	f.pageRepo.ExpectedCalls = nil
	f.pageRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Page")).Return(nil)
	f.pageRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Page")).
		Run(func(args mock.Arguments) {
			updatedPage = *args.Get(1).(*domain.Page)
		}).Return(nil)

	f.svc.Run(doc.ID)

	// The retry's result is final even though it is still below the threshold.
	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Equal(t, 0.6, updatedPage.Confidence)
	assert.Equal(t, 300, updatedPage.DPI)

	f.extractor.AssertNumberOfCalls(t, "Extract", 2)
	f.logRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestRun_SchemaErrorRetriesOnce(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	f.stubHappyPath(doc, 1)
	schemaErr := &extractor.SchemaValidationError{Raw: "not json"}
	f.extractor.On("Extract", mock.Anything, extractAtDPI(150)).Return(nil, schemaErr).Once()
	f.extractor.On("Extract", mock.Anything, extractAtDPI(300)).Return(extractOutput(0.9), nil).Once()

	f.svc.Run(doc.ID)

	assert.Equal(t, domain.StatusCompleted, doc.Status)
	f.extractor.AssertNumberOfCalls(t, "Extract", 2)
	f.logRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestRun_SchemaErrorTwiceFailsDocument(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	f.stubHappyPath(doc, 1)
	schemaErr := &extractor.SchemaValidationError{Raw: "still not json"}
	f.extractor.On("Extract", mock.Anything, mock.AnythingOfType("port.ExtractInput")).Return(nil, schemaErr)

	f.svc.Run(doc.ID)

	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.Contains(t, doc.ErrorMessage, "page 1")
	f.extractor.AssertNumberOfCalls(t, "Extract", 2)
	f.logRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestRun_UpstreamErrorIsFatalWithoutRetry(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	f.stubHappyPath(doc, 1)
	f.extractor.On("Extract", mock.Anything, mock.AnythingOfType("port.ExtractInput")).
		Return(nil, &extractor.UpstreamError{StatusCode: 429, Body: "rate limited"})

	f.svc.Run(doc.ID)

	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.Contains(t, doc.ErrorMessage, "page 1")
	f.extractor.AssertNumberOfCalls(t, "Extract", 1)
	f.logRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestRun_LanguageHintCarriesForward(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	f.stubHappyPath(doc, 2)
	f.extractor.On("Extract", mock.Anything, mock.MatchedBy(func(in port.ExtractInput) bool {
		return in.LanguageHint == ""
	})).Return(extractOutput(0.9), nil).Once()
	f.extractor.On("Extract", mock.Anything, mock.MatchedBy(func(in port.ExtractInput) bool {
		return in.LanguageHint == "bn"
	})).Return(extractOutput(0.9), nil).Once()

	f.svc.Run(doc.ID)

	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Equal(t, 2, doc.TotalPages)
	f.extractor.AssertExpectations(t)
}

func TestRun_CancellationStopsAtPageBoundary(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	f.stubHappyPath(doc, 3)

	calls := 0
	f.extractor.On("Extract", mock.Anything, mock.AnythingOfType("port.ExtractInput")).
		Run(func(args mock.Arguments) {
			calls++
			if calls == 2 {
				require.NoError(t, f.svc.Cancel(context.Background(), doc.ID))
			}
		}).Return(extractOutput(0.9), nil)

	f.svc.Run(doc.ID)

	// Pages 1 and 2 completed; page 3 never started.
	assert.Equal(t, domain.StatusCancelled, doc.Status)
	assert.Equal(t, "processing cancelled", doc.ErrorMessage)
	assert.Equal(t, 0, doc.TotalPages)
	f.pageRepo.AssertNumberOfCalls(t, "Create", 2)
	f.extractor.AssertNumberOfCalls(t, "Extract", 2)
}

func TestRun_DocumentDeletedMidRunAbortsSilently(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()

	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil).Once()
	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(nil, domain.ErrDocumentNotFound)
	f.docRepo.On("UpdateStatus", mock.Anything, mock.AnythingOfType("*domain.Document")).Return(nil)
	f.storage.On("Download", mock.Anything, doc.StorageBucket, doc.StorageKey).Return([]byte("source"), nil)
	f.rasterizer.On("PageCount", mock.Anything).Return(2, nil)

	f.svc.Run(doc.ID)

	// Only the transition to processing was written; the abort writes nothing.
	f.docRepo.AssertNumberOfCalls(t, "UpdateStatus", 1)
	f.pageRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestRun_DownloadFailureFailsDocument(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	f.docRepo.On("UpdateStatus", mock.Anything, mock.AnythingOfType("*domain.Document")).Return(nil)
	f.storage.On("Download", mock.Anything, doc.StorageBucket, doc.StorageKey).
		Return(nil, assert.AnError)

	f.svc.Run(doc.ID)

	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.Contains(t, doc.ErrorMessage, "downloading source file")
}

func TestCancel_WithoutActiveRun(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)

	err := f.svc.Cancel(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotProcessing)
}

func TestCancel_UnknownDocument(t *testing.T) {
	f := newPipelineFixture()
	docID := uuid.New()
	f.docRepo.On("GetByID", mock.Anything, docID).Return(nil, domain.ErrDocumentNotFound)

	err := f.svc.Cancel(context.Background(), docID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestReprocess_RejectsActiveRun(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	doc.Status = domain.StatusProcessing
	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)

	_, err := f.svc.Reprocess(context.Background(), &service.ReprocessInput{DocumentID: doc.ID})
	assert.ErrorIs(t, err, domain.ErrPipelineRunning)
	f.pageRepo.AssertNotCalled(t, "DeleteByDocument", mock.Anything, mock.Anything)
}

func TestReprocess_RejectsUnprocessedDocument(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)

	_, err := f.svc.Reprocess(context.Background(), &service.ReprocessInput{DocumentID: doc.ID})
	assert.ErrorIs(t, err, domain.ErrNotReprocessable)
	f.pageRepo.AssertNotCalled(t, "DeleteByDocument", mock.Anything, mock.Anything)
}

func TestReprocess_SkipRotationReusesStoredAngles(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	doc.Status = domain.StatusCompleted
	doc.TotalPages = 1
	processedAt := time.Now().UTC()
	doc.ProcessedAt = &processedAt

	f.stubHappyPath(doc, 1)
	f.extractor.On("Extract", mock.Anything, extractAtDPI(150)).Return(extractOutput(0.9), nil)

	previousPages := []domain.Page{
		{ID: uuid.New(), DocumentID: doc.ID, PageNumber: 1, AppliedRotation: 90},
	}

	var createdPage domain.Page
	done := make(chan struct{})
	f.pageRepo.ExpectedCalls = nil
	f.pageRepo.On("ListByDocument", mock.Anything, doc.ID).Return(previousPages, nil)
	f.pageRepo.On("DeleteByDocument", mock.Anything, doc.ID).Return(nil)
	f.pageRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Page")).
		Run(func(args mock.Arguments) {
			createdPage = *args.Get(1).(*domain.Page)
		}).Return(nil)
	f.pageRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Page")).Return(nil)
	f.docRepo.ExpectedCalls = nil
	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	f.docRepo.On("UpdateStatus", mock.Anything, mock.AnythingOfType("*domain.Document")).
		Run(func(args mock.Arguments) {
			if args.Get(1).(*domain.Document).Status == domain.StatusCompleted {
				close(done)
			}
		}).Return(nil)

	result, err := f.svc.Reprocess(context.Background(), &service.ReprocessInput{
		DocumentID:   doc.ID,
		SkipRotation: true,
	})
	require.NoError(t, err)

	// The returned snapshot reflects the reset, not the background run.
	assert.Equal(t, domain.StatusUploaded, result.Status)
	assert.Equal(t, 0, result.TotalPages)
	assert.Nil(t, result.ProcessedAt)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("background reprocess run did not complete")
	}

	// The stored rotation was applied instead of re-detection.
	assert.Equal(t, 90, createdPage.AppliedRotation)
	f.pageRepo.AssertCalled(t, "DeleteByDocument", mock.Anything, doc.ID)
}

func TestReprocess_WithoutSkipRotationDetectsAgain(t *testing.T) {
	f := newPipelineFixture()
	doc := uploadedDoc()
	doc.Status = domain.StatusFailed
	doc.ErrorMessage = "page 1: upstream"

	f.stubHappyPath(doc, 1)
	f.extractor.On("Extract", mock.Anything, extractAtDPI(150)).Return(extractOutput(0.9), nil)
	f.pageRepo.On("DeleteByDocument", mock.Anything, doc.ID).Return(nil)

	done := make(chan struct{})
	f.docRepo.ExpectedCalls = nil
	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	f.docRepo.On("UpdateStatus", mock.Anything, mock.AnythingOfType("*domain.Document")).
		Run(func(args mock.Arguments) {
			if args.Get(1).(*domain.Document).Status == domain.StatusCompleted {
				close(done)
			}
		}).Return(nil)

	result, err := f.svc.Reprocess(context.Background(), &service.ReprocessInput{DocumentID: doc.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUploaded, result.Status)
	assert.Empty(t, result.ErrorMessage)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("background reprocess run did not complete")
	}

	// No rotation snapshot is taken when re-detection is wanted.
	f.pageRepo.AssertNotCalled(t, "ListByDocument", mock.Anything, mock.Anything)
}
