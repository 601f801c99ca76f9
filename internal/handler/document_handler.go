package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"patro/internal/service"
)

// DocumentHandler handles document upload, inspection, and pipeline control
// endpoints.
type DocumentHandler struct {
	docService      service.DocumentService
	pipelineService service.PipelineService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(docService service.DocumentService, pipelineService service.PipelineService) *DocumentHandler {
	return &DocumentHandler{docService: docService, pipelineService: pipelineService}
}

// Upload handles POST /api/v1/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file")
		return
	}

	contentType := header.Header.Get("Content-Type")

	doc, err := h.docService.Upload(c.Request.Context(), &service.UploadDocumentInput{
		Title:       c.PostForm("title"),
		FileName:    header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, doc)
}

// List handles GET /api/v1/documents
func (h *DocumentHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	docs, total, err := h.docService.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, docs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/documents/:id
func (h *DocumentHandler) GetByID(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	doc, pages, err := h.docService.GetByID(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"document": doc,
		"pages":    pages,
	})
}

// GetPageContent handles GET /api/v1/documents/:id/pages/:page/content
func (h *DocumentHandler) GetPageContent(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}
	pageNumber, err := strconv.Atoi(c.Param("page"))
	if err != nil || pageNumber < 1 {
		RespondError(c, http.StatusBadRequest, "INVALID_PAGE", "invalid page number")
		return
	}

	page, contents, err := h.docService.GetPageContent(c.Request.Context(), docID, pageNumber)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"page":   page,
		"blocks": contents,
	})
}

// GetTable handles GET /api/v1/documents/:id/pages/:page/blocks/:block/table
func (h *DocumentHandler) GetTable(c *gin.Context) {
	blockID, err := uuid.Parse(c.Param("block"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid block ID")
		return
	}

	table, err := h.docService.GetReconstructedTable(c.Request.Context(), blockID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, table)
}

// Cancel handles POST /api/v1/documents/:id/cancel
func (h *DocumentHandler) Cancel(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	if err := h.pipelineService.Cancel(c.Request.Context(), docID); err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, gin.H{"message": "cancellation requested"})
}

type reprocessRequest struct {
	SkipRotation bool `json:"skip_rotation"`
}

// Reprocess handles POST /api/v1/documents/:id/reprocess
func (h *DocumentHandler) Reprocess(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	// Body is optional; absence means full reprocessing.
	var req reprocessRequest
	_ = c.ShouldBindJSON(&req)

	doc, err := h.pipelineService.Reprocess(c.Request.Context(), &service.ReprocessInput{
		DocumentID:   docID,
		SkipRotation: req.SkipRotation,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, doc)
}

// ListLogs handles GET /api/v1/documents/:id/logs
func (h *DocumentHandler) ListLogs(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	entries, err := h.docService.ListLogs(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, entries)
}

// Delete handles DELETE /api/v1/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	if err := h.docService.Delete(c.Request.Context(), docID); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "document deleted"})
}
