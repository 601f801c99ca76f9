package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"patro/internal/config"
	"patro/internal/port"
)

const apiURL = "https://api.openai.com/v1/chat/completions"

const maxCompletionTokens = 16384

// Client implements port.PageExtractor using a hosted vision model behind
// the Chat Completions API with strict structured output. Each call is a
// single attempt; callers decide whether to retry.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient creates an extraction client from config.
func NewClient(cfg *config.ExtractorConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	return newClient(cfg, endpoint)
}

// NewClientWithEndpoint creates a client pointing at a custom API endpoint (for testing).
func NewClientWithEndpoint(cfg *config.ExtractorConfig, endpoint string) *Client {
	return newClient(cfg, endpoint)
}

func newClient(cfg *config.ExtractorConfig, endpoint string) *Client {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Model returns the model identifier used for extraction calls.
func (c *Client) Model() string {
	return c.model
}

// Extract sends one page image to the hosted model and returns the validated
// content tree. The output is checked against the extraction schema before it
// is decoded; anything non-conformant surfaces as a SchemaValidationError.
func (c *Client) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	prompt := BuildExtractionPrompt(input.LanguageHint)
	encoded := base64.StdEncoding.EncodeToString(input.ImageJPEG)

	reqBody := map[string]interface{}{
		"model":                 c.model,
		"max_completion_tokens": maxCompletionTokens,
		"temperature":           0.1,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": prompt,
					},
					{
						"type": "image_url",
						"image_url": map[string]interface{}{
							"url":    "data:image/jpeg;base64," + encoded,
							"detail": "high",
						},
					},
				},
			},
		},
		"response_format": map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   schemaName,
				"strict": true,
				"schema": extractionSchema,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling extraction API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	latency := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 500)}
	}

	return parseResponse(respBody, latency)
}

// apiResponse models the Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func parseResponse(body []byte, latency time.Duration) (*port.ExtractOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}

	if resp.Choices[0].FinishReason == "length" {
		return nil, fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	text := resp.Choices[0].Message.Content

	if err := validateAgainstSchema([]byte(text)); err != nil {
		return nil, &SchemaValidationError{Err: err, Raw: truncate(text, 500)}
	}

	var content port.PageContent
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return nil, fmt.Errorf("decoding validated output: %w", err)
	}

	return &port.ExtractOutput{
		Content:    &content,
		Confidence: pageConfidence(&content),
		Usage: port.Usage{
			TotalTokens: resp.Usage.TotalTokens,
			LatencyMS:   latency.Milliseconds(),
		},
	}, nil
}

// pageConfidence is the minimum of the language confidence and every block
// confidence. A page with no blocks scores its language confidence alone.
func pageConfidence(content *port.PageContent) float64 {
	min := content.LanguageConfidence
	for _, b := range content.Blocks {
		if b.Confidence < min {
			min = b.Confidence
		}
	}
	return min
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
