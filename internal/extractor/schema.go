package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaName = "page_extraction"

// extractionSchema is the strict structured-output schema the hosted model
// must satisfy. The same document is sent as the response_format constraint
// and compiled locally to validate what actually comes back.
var extractionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"page_type": map[string]any{
			"type":        "string",
			"description": "Type of page: form, table, mixed, text, invoice, etc.",
		},
		"detected_language": map[string]any{
			"type": "string",
			"enum": []any{"en", "bn", "mixed", "unknown"},
		},
		"language_confidence": map[string]any{
			"type":        "number",
			"description": "Confidence score for language detection (0-1)",
		},
		"content_blocks": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"block_type": map[string]any{
						"type": "string",
						"enum": []any{
							"paragraph", "heading", "list", "table", "form",
							"handwriting", "signature", "image", "other",
						},
					},
					"text_content": map[string]any{"type": "string"},
					"confidence":   map[string]any{"type": "number"},
					"table_data": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"headers": map[string]any{
								"type": "array",
								"items": map[string]any{
									"type": "object",
									"properties": map[string]any{
										"text": map[string]any{"type": "string"},
										"column_path": map[string]any{
											"type":  "array",
											"items": map[string]any{"type": "integer"},
										},
										"level": map[string]any{"type": "integer"},
									},
									"required":             []any{"text", "column_path", "level"},
									"additionalProperties": false,
								},
							},
							"rows": map[string]any{
								"type": "array",
								"items": map[string]any{
									"type": "object",
									"properties": map[string]any{
										"row_index": map[string]any{"type": "integer"},
										"cells": map[string]any{
											"type": "array",
											"items": map[string]any{
												"type": "object",
												"properties": map[string]any{
													"text": map[string]any{"type": "string"},
													"column_path": map[string]any{
														"type":  "array",
														"items": map[string]any{"type": "integer"},
													},
													"rowspan": map[string]any{"type": "integer"},
													"colspan": map[string]any{"type": "integer"},
												},
												"required":             []any{"text", "column_path", "rowspan", "colspan"},
												"additionalProperties": false,
											},
										},
									},
									"required":             []any{"row_index", "cells"},
									"additionalProperties": false,
								},
							},
						},
						"required":             []any{"headers", "rows"},
						"additionalProperties": false,
					},
					"form_data": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"fields": map[string]any{
								"type": "array",
								"items": map[string]any{
									"type": "object",
									"properties": map[string]any{
										"field_name":  map[string]any{"type": "string"},
										"field_label": map[string]any{"type": "string"},
										"field_type": map[string]any{
											"type": "string",
											"enum": []any{"text", "checkbox", "radio", "date", "signature", "other"},
										},
										"field_value": map[string]any{"type": "string"},
										"is_filled":   map[string]any{"type": "boolean"},
									},
									"required":             []any{"field_name", "field_label", "field_type", "field_value", "is_filled"},
									"additionalProperties": false,
								},
							},
						},
						"required":             []any{"fields"},
						"additionalProperties": false,
					},
				},
				"required":             []any{"block_type", "text_content", "confidence", "table_data", "form_data"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []any{"page_type", "detected_language", "language_confidence", "content_blocks"},
	"additionalProperties": false,
}

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	b, err := json.Marshal(extractionSchema)
	if err != nil {
		panic(fmt.Sprintf("extractor: marshaling schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("extraction.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("extractor: adding schema resource: %v", err))
	}
	schema, err := compiler.Compile("extraction.json")
	if err != nil {
		panic(fmt.Sprintf("extractor: compiling schema: %v", err))
	}
	return schema
}

// validateAgainstSchema checks the raw model output against the compiled
// extraction schema.
func validateAgainstSchema(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshaling output: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("output does not match schema: %w", err)
	}
	return nil
}
