package extractor

import "fmt"

// UpstreamError indicates the hosted model API returned a non-200 status.
// The response body is preserved for the extraction log.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("extraction API error (status %d): %s", e.StatusCode, e.Body)
}

// SchemaValidationError indicates the model produced output that does not
// conform to the extraction schema. Raw holds a truncated copy of the output.
type SchemaValidationError struct {
	Err error
	Raw string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v (raw: %s)", e.Err, e.Raw)
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}
