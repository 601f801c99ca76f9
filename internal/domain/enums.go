package domain

// FileType represents the allowed source file types for upload.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// AllowedContentTypes maps MIME content types to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
}

// ContentType returns the MIME content type for a file type.
func (t FileType) ContentType() string {
	switch t {
	case FileTypePDF:
		return "application/pdf"
	case FileTypeJPG:
		return "image/jpeg"
	case FileTypePNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// DocumentStatus is the document processing lifecycle. Only the pipeline
// mutates it after upload.
type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
	StatusCancelled  DocumentStatus = "cancelled"
)

// Language is the model-reported page language.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageBangla  Language = "bn"
	LanguageMixed   Language = "mixed"
	LanguageUnknown Language = "unknown"
)

// ParseLanguage maps a model-reported language string onto the Language enum,
// defaulting to unknown for anything outside the contract.
func ParseLanguage(s string) Language {
	switch Language(s) {
	case LanguageEnglish, LanguageBangla, LanguageMixed:
		return Language(s)
	}
	return LanguageUnknown
}

// BlockType discriminates content block payloads.
type BlockType string

const (
	BlockParagraph   BlockType = "paragraph"
	BlockHeading     BlockType = "heading"
	BlockList        BlockType = "list"
	BlockTable       BlockType = "table"
	BlockForm        BlockType = "form"
	BlockHandwriting BlockType = "handwriting"
	BlockSignature   BlockType = "signature"
	BlockImage       BlockType = "image"
	BlockOther       BlockType = "other"
)

// FieldType classifies form fields.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldCheckbox  FieldType = "checkbox"
	FieldRadio     FieldType = "radio"
	FieldDate      FieldType = "date"
	FieldSignature FieldType = "signature"
	FieldOther     FieldType = "other"
)
