package port

import "context"

// PageContent is the validated content tree returned by the hosted model for
// one page.
type PageContent struct {
	PageType           string         `json:"page_type"`
	DetectedLanguage   string         `json:"detected_language"`
	LanguageConfidence float64        `json:"language_confidence"`
	Blocks             []ContentBlock `json:"content_blocks"`
}

// ContentBlock is one extracted unit in the model's reading order. TableData
// and FormData are always present; they are empty placeholders unless the
// block type is table or form.
type ContentBlock struct {
	BlockType  string    `json:"block_type"`
	Text       string    `json:"text_content"`
	Confidence float64   `json:"confidence"`
	TableData  TableData `json:"table_data"`
	FormData   FormData  `json:"form_data"`
}

// TableData is the nested-table payload of a table block: header nodes
// annotated with their column paths, and rows of path-keyed cells.
type TableData struct {
	Headers []TableHeader `json:"headers"`
	Rows    []TableRow    `json:"rows"`
}

// TableHeader is one node of the column-header tree.
type TableHeader struct {
	Text       string `json:"text"`
	ColumnPath []int  `json:"column_path"`
	Level      int    `json:"level"`
}

// TableRow is one data row.
type TableRow struct {
	RowIndex int         `json:"row_index"`
	Cells    []TableCell `json:"cells"`
}

// TableCell is one reported cell, keyed by its leaf column path.
type TableCell struct {
	Text       string `json:"text"`
	ColumnPath []int  `json:"column_path"`
	RowSpan    int    `json:"rowspan"`
	ColSpan    int    `json:"colspan"`
}

// FormData is the form payload of a form block.
type FormData struct {
	Fields []FormField `json:"fields"`
}

// FormField is one reported form field.
type FormField struct {
	FieldName  string `json:"field_name"`
	FieldLabel string `json:"field_label"`
	FieldType  string `json:"field_type"`
	FieldValue string `json:"field_value"`
	IsFilled   bool   `json:"is_filled"`
}

// Usage is per-attempt telemetry from the hosted model.
type Usage struct {
	TotalTokens int
	LatencyMS   int64
}

// ExtractInput carries one page image to the hosted model.
type ExtractInput struct {
	// ImageJPEG is the encoded page image (alpha already flattened).
	ImageJPEG []byte
	// LanguageHint nudges the model; it never overrides the model's own
	// language report.
	LanguageHint string
	// DPI is the resolution the page was rendered at, recorded for telemetry.
	DPI int
}

// ExtractOutput is one validated, schema-conformant extraction attempt.
type ExtractOutput struct {
	Content *PageContent
	// Confidence is the page-level score: the minimum of the language
	// confidence and every block confidence.
	Confidence float64
	Usage      Usage
}

// PageExtractor abstracts a single structured-output extraction call. It
// performs exactly one attempt; the retry-at-higher-resolution policy lives
// in the pipeline, which owns the rasterizer and the audit log.
type PageExtractor interface {
	Extract(ctx context.Context, input ExtractInput) (*ExtractOutput, error)
	// Model returns the model identifier used, for the extraction log.
	Model() string
}
