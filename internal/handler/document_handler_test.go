package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"patro/internal/domain"
	"patro/internal/handler"
	"patro/internal/service"
	"patro/mocks"
)

func setupTestRouter(docService service.DocumentService, pipelineService service.PipelineService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handler.NewDocumentHandler(docService, pipelineService)

	r := gin.New()
	docs := r.Group("/api/v1/documents")
	{
		docs.POST("", h.Upload)
		docs.GET("", h.List)
		docs.GET("/:id", h.GetByID)
		docs.GET("/:id/pages/:page/content", h.GetPageContent)
		docs.GET("/:id/pages/:page/blocks/:block/table", h.GetTable)
		docs.POST("/:id/cancel", h.Cancel)
		docs.POST("/:id/reprocess", h.Reprocess)
		docs.GET("/:id/logs", h.ListLogs)
		docs.DELETE("/:id", h.Delete)
	}
	return r
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func multipartUpload(t *testing.T, fileName, contentType string, data []byte, title string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	if title != "" {
		require.NoError(t, mw.WriteField("title", title))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadEndpoint(t *testing.T) {
	docService := new(mocks.MockDocumentService)
	pipelineService := new(mocks.MockPipelineService)
	r := setupTestRouter(docService, pipelineService)

	doc := &domain.Document{ID: uuid.New(), Title: "দলিল", Status: domain.StatusUploaded}
	docService.On("Upload", mock.Anything, mock.MatchedBy(func(in *service.UploadDocumentInput) bool {
		return in.FileName == "scan.pdf" && in.ContentType == "application/pdf" && in.Title == "দলিল"
	})).Return(doc, nil)

	body, formContentType := multipartUpload(t, "scan.pdf", "application/pdf", []byte("%PDF"), "দলিল")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", formContentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	docService.AssertExpectations(t)
}

func TestUploadEndpoint_MissingFile(t *testing.T) {
	r := setupTestRouter(new(mocks.MockDocumentService), new(mocks.MockPipelineService))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MISSING_FILE", resp.Error.Code)
}

func TestUploadEndpoint_FileTooLarge(t *testing.T) {
	docService := new(mocks.MockDocumentService)
	r := setupTestRouter(docService, new(mocks.MockPipelineService))
	docService.On("Upload", mock.Anything, mock.Anything).Return(nil, domain.ErrFileTooLarge)

	body, formContentType := multipartUpload(t, "big.pdf", "application/pdf", []byte("x"), "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", formContentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FILE_TOO_LARGE", resp.Error.Code)
}

func TestListEndpoint_ClampsPagination(t *testing.T) {
	docService := new(mocks.MockDocumentService)
	r := setupTestRouter(docService, new(mocks.MockPipelineService))
	docService.On("List", mock.Anything, 0, 20).Return([]domain.Document{}, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents?offset=-5&limit=500", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 20, resp.Meta.Limit)
	assert.Equal(t, 0, resp.Meta.Offset)
	docService.AssertExpectations(t)
}

func TestGetByIDEndpoint_InvalidID(t *testing.T) {
	r := setupTestRouter(new(mocks.MockDocumentService), new(mocks.MockPipelineService))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_ID", resp.Error.Code)
}

func TestGetByIDEndpoint_NotFound(t *testing.T) {
	docService := new(mocks.MockDocumentService)
	r := setupTestRouter(docService, new(mocks.MockPipelineService))
	docID := uuid.New()
	docService.On("GetByID", mock.Anything, docID).Return(nil, nil, domain.ErrDocumentNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DOCUMENT_NOT_FOUND", resp.Error.Code)
}

func TestGetPageContentEndpoint_InvalidPage(t *testing.T) {
	r := setupTestRouter(new(mocks.MockDocumentService), new(mocks.MockPipelineService))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+uuid.NewString()+"/pages/0/content", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PAGE", resp.Error.Code)
}

func TestCancelEndpoint(t *testing.T) {
	pipelineService := new(mocks.MockPipelineService)
	r := setupTestRouter(new(mocks.MockDocumentService), pipelineService)
	docID := uuid.New()
	pipelineService.On("Cancel", mock.Anything, docID).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/cancel", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	pipelineService.AssertExpectations(t)
}

func TestCancelEndpoint_NotProcessing(t *testing.T) {
	pipelineService := new(mocks.MockPipelineService)
	r := setupTestRouter(new(mocks.MockDocumentService), pipelineService)
	docID := uuid.New()
	pipelineService.On("Cancel", mock.Anything, docID).Return(domain.ErrNotProcessing)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/cancel", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_PROCESSING", resp.Error.Code)
}

func TestReprocessEndpoint_SkipRotation(t *testing.T) {
	pipelineService := new(mocks.MockPipelineService)
	r := setupTestRouter(new(mocks.MockDocumentService), pipelineService)
	docID := uuid.New()
	doc := &domain.Document{ID: docID, Status: domain.StatusUploaded}
	pipelineService.On("Reprocess", mock.Anything, mock.MatchedBy(func(in *service.ReprocessInput) bool {
		return in.DocumentID == docID && in.SkipRotation
	})).Return(doc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/reprocess",
		strings.NewReader(`{"skip_rotation": true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	pipelineService.AssertExpectations(t)
}

func TestReprocessEndpoint_EmptyBody(t *testing.T) {
	pipelineService := new(mocks.MockPipelineService)
	r := setupTestRouter(new(mocks.MockDocumentService), pipelineService)
	docID := uuid.New()
	doc := &domain.Document{ID: docID, Status: domain.StatusUploaded}
	pipelineService.On("Reprocess", mock.Anything, mock.MatchedBy(func(in *service.ReprocessInput) bool {
		return in.DocumentID == docID && !in.SkipRotation
	})).Return(doc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/reprocess", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	pipelineService.AssertExpectations(t)
}

func TestReprocessEndpoint_Conflict(t *testing.T) {
	pipelineService := new(mocks.MockPipelineService)
	r := setupTestRouter(new(mocks.MockDocumentService), pipelineService)
	docID := uuid.New()
	pipelineService.On("Reprocess", mock.Anything, mock.Anything).Return(nil, domain.ErrPipelineRunning)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/reprocess", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PIPELINE_RUNNING", resp.Error.Code)
}

func TestGetTableEndpoint_NotATable(t *testing.T) {
	docService := new(mocks.MockDocumentService)
	r := setupTestRouter(docService, new(mocks.MockPipelineService))
	blockID := uuid.New()
	docService.On("GetReconstructedTable", mock.Anything, blockID).Return(nil, domain.ErrNotTableBlock)

	url := "/api/v1/documents/" + uuid.NewString() + "/pages/1/blocks/" + blockID.String() + "/table"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_TABLE_BLOCK", resp.Error.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	docService := new(mocks.MockDocumentService)
	r := setupTestRouter(docService, new(mocks.MockPipelineService))
	docID := uuid.New()
	docService.On("Delete", mock.Anything, docID).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+docID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	docService.AssertExpectations(t)
}
