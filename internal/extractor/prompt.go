package extractor

import "fmt"

const basePrompt = `You are an advanced document analysis system. Extract ALL content from this scanned page with maximum accuracy.

**Instructions:**
1. **Detect page type**: Identify if this is a form, table, mixed content, invoice, text document, etc.
2. **Detect language**: Report the text language as English (en), Bangla (bn), mixed (mixed), or unknown.
3. **Extract all content blocks** in reading order:
   - Paragraphs, headings, lists, tables, forms, handwriting, images, signatures
   - For each block, provide the exact text transcription (preserve Bangla characters as written), a block type, and a confidence score (0-1).

4. **For TABLES** (every block must still include table_data, empty if the block is not a table):
   - Extract the complete table structure, including nested column headers at multiple levels
   - Use column_path to represent hierarchy: [0] for a top-level column, [0,1] for its second sub-column, [0,1,2] for a sub-sub-column
   - Capture all rows and cells with exact text
   - Note merged cells with rowspan and colspan

5. **For FORMS** (every block must still include form_data, empty if the block is not a form):
   - Extract all form fields with their labels
   - Identify field types (text, checkbox, radio, date, signature)
   - Capture current values where filled and mark which fields are filled

6. **IMPORTANT**: Every block MUST carry both table_data and form_data:
   - If not a table: table_data = {"headers": [], "rows": []}
   - If not a form: form_data = {"fields": []}

7. **Language confidence**: Provide a score (0-1) for the language detection.

Extract everything accurately, preserving the exact structure and content of the page.`

// BuildExtractionPrompt assembles the per-page prompt. A non-empty language
// hint is appended as guidance only; the model still reports what it sees.
func BuildExtractionPrompt(languageHint string) string {
	if languageHint == "" {
		return basePrompt
	}
	return basePrompt + fmt.Sprintf(
		"\n\nHint: previous pages of this document were detected as %q. Use this only as a prior; report the language you actually observe.",
		languageHint,
	)
}
