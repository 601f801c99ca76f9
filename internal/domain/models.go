package domain

import (
	"time"

	"github.com/google/uuid"
)

// Document represents one uploaded source file and its processing lifecycle.
type Document struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	Title         string         `db:"title" json:"title"`
	OriginalName  string         `db:"original_name" json:"original_name"`
	FileType      FileType       `db:"file_type" json:"file_type"`
	FileSize      int64          `db:"file_size" json:"file_size"`
	StorageBucket string         `db:"storage_bucket" json:"-"`
	StorageKey    string         `db:"storage_key" json:"-"`
	TotalPages    int            `db:"total_pages" json:"total_pages"`
	Status        DocumentStatus `db:"status" json:"status"`
	ErrorMessage  string         `db:"error_message" json:"error_message"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	ProcessedAt   *time.Time     `db:"processed_at" json:"processed_at"`
}

// Page represents one rendered page of a document. Page numbers are 1-based
// and unique within a document.
type Page struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	DocumentID      uuid.UUID  `db:"document_id" json:"document_id"`
	PageNumber      int        `db:"page_number" json:"page_number"`
	ImageKey        string     `db:"image_key" json:"-"`
	Width           int        `db:"width" json:"width"`
	Height          int        `db:"height" json:"height"`
	AppliedRotation int        `db:"applied_rotation" json:"applied_rotation"`
	Language        Language   `db:"language" json:"language"`
	PageType        string     `db:"page_type" json:"page_type"`
	Confidence      float64    `db:"confidence" json:"confidence"`
	DPI             int        `db:"dpi" json:"dpi"`
	ProcessedAt     *time.Time `db:"processed_at" json:"processed_at"`
}

// ContentBlock is one extracted unit on a page. It is a tagged union: the
// BlockType discriminator selects which attached payload (text, table cells,
// form fields) carries data. Table and form payload rows exist only for
// table/form blocks; consumers branch on type, never on payload presence.
type ContentBlock struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PageID     uuid.UUID `db:"page_id" json:"page_id"`
	BlockIndex int       `db:"block_index" json:"block_index"`
	BlockType  BlockType `db:"block_type" json:"block_type"`
	Text       string    `db:"text_content" json:"text_content"`
	Confidence float64   `db:"confidence" json:"confidence"`
}

// TableCell is one cell of a table-typed content block, addressed by
// (RowNumber, ColumnPath). Header cells carry RowNumber -1 and IsHeader true;
// data rows are 0-based. Within one block no two cells share the same
// (RowNumber, ColumnPath).
type TableCell struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	BlockID    uuid.UUID  `db:"block_id" json:"block_id"`
	RowNumber  int        `db:"row_number" json:"row_number"`
	ColumnPath ColumnPath `db:"column_path" json:"column_path"`
	Text       string     `db:"text_content" json:"text"`
	RowSpan    int        `db:"rowspan" json:"rowspan"`
	ColSpan    int        `db:"colspan" json:"colspan"`
	IsHeader   bool       `db:"is_header" json:"is_header"`
}

// FormField is one field of a form-typed content block.
type FormField struct {
	ID         uuid.UUID `db:"id" json:"id"`
	BlockID    uuid.UUID `db:"block_id" json:"block_id"`
	FieldOrder int       `db:"field_order" json:"field_order"`
	Name       string    `db:"field_name" json:"field_name"`
	Label      string    `db:"field_label" json:"field_label"`
	FieldType  FieldType `db:"field_type" json:"field_type"`
	Value      string    `db:"field_value" json:"field_value"`
	IsFilled   bool      `db:"is_filled" json:"is_filled"`
}

// PageContent bundles a page's blocks with their table/form payloads for
// reads and for the atomic per-page replace operation.
type PageContent struct {
	Block  ContentBlock `json:"block"`
	Cells  []TableCell  `json:"cells,omitempty"`
	Fields []FormField  `json:"fields,omitempty"`
}

// ExtractionLog records one extraction API attempt. Rows are append-only and
// never mutated after creation.
type ExtractionLog struct {
	ID         uuid.UUID `db:"id" json:"id"`
	DocumentID uuid.UUID `db:"document_id" json:"document_id"`
	PageID     uuid.UUID `db:"page_id" json:"page_id"`
	Model      string    `db:"model" json:"model"`
	DPI        int       `db:"dpi" json:"dpi"`
	Attempt    int       `db:"attempt" json:"attempt"`
	TokensUsed int       `db:"tokens_used" json:"tokens_used"`
	LatencyMS  int64     `db:"latency_ms" json:"latency_ms"`
	Success    bool      `db:"success" json:"success"`
	ErrorMsg   string    `db:"error_message" json:"error_message"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
