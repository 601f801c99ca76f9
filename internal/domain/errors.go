package domain

import "errors"

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrPageNotFound        = errors.New("page not found")
	ErrBlockNotFound       = errors.New("content block not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrPipelineRunning     = errors.New("a pipeline run is already active for this document")
	ErrNotProcessing       = errors.New("document is not being processed")
	ErrNotReprocessable    = errors.New("document is not in a reprocessable state")
	ErrNotTableBlock       = errors.New("content block is not a table")
)
