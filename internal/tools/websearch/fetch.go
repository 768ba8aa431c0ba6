package websearch

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/haasonsaas/conductor/internal/agent"
)

// FetchConfig controls web_fetch defaults.
type FetchConfig struct {
	MaxChars int
}

// WebFetchTool implements a lightweight web fetch + extraction tool: one
// URL in, readable markdown or plain text out, no headless browser.
type WebFetchTool struct {
	config    FetchConfig
	extractor *ContentExtractor
}

// WebFetchOption customizes WebFetchTool construction.
type WebFetchOption func(*WebFetchTool)

// WithExtractor overrides the default content extractor (useful for tests).
func WithExtractor(extractor *ContentExtractor) WebFetchOption {
	return func(tool *WebFetchTool) {
		if extractor != nil {
			tool.extractor = extractor
		}
	}
}

// NewWebFetchTool creates a new web_fetch tool with defaults applied.
func NewWebFetchTool(config *FetchConfig, opts ...WebFetchOption) *WebFetchTool {
	cfg := FetchConfig{MaxChars: 10000}
	if config != nil && config.MaxChars > 0 {
		cfg.MaxChars = config.MaxChars
	}
	tool := &WebFetchTool{config: cfg, extractor: NewContentExtractor()}
	for _, opt := range opts {
		opt(tool)
	}
	return tool
}

func (t *WebFetchTool) Name() string { return "web_fetch" }

func (t *WebFetchTool) Description() string {
	return "Fetch and extract readable content from a URL without full browser automation."
}

// Schema returns the JSON schema for tool parameters.
func (t *WebFetchTool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "URL to fetch (http/https only)",
			},
			"extract_mode": map[string]any{
				"type":        "string",
				"enum":        []string{"markdown", "text"},
				"description": "Extraction mode (markdown or text). Default: markdown",
			},
			"max_chars": map[string]any{
				"type":        "integer",
				"description": "Maximum characters to return (default: 10000)",
				"minimum":     0,
			},
		},
		"required": []string{"url"},
	}
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return schemaBytes
}

type fetchResult struct {
	URL         string `json:"url"`
	ExtractMode string `json:"extract_mode"`
	Content     string `json:"content"`
	Truncated   bool   `json:"truncated,omitempty"`
}

// Execute fetches url via ContentExtractor (which enforces SSRF protection
// and scheme restrictions) and trims the result to the effective max_chars.
func (t *WebFetchTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var raw map[string]any
	if err := json.Unmarshal(params, &raw); err != nil {
		return toolError("invalid parameters: %v", err), nil
	}

	url := readStringParam(raw, "url")
	if url == "" {
		return toolError("missing required parameter: url"), nil
	}

	extractMode := normalizeExtractMode(readStringParam(raw, "extract_mode", "extractMode"))
	limit := t.effectiveLimit(readIntParam(raw, "max_chars", "maxChars"))

	content, err := t.extractor.Extract(ctx, url)
	if err != nil {
		return toolError("fetch failed: %v", err), nil
	}

	result := fetchResult{URL: url, ExtractMode: extractMode, Content: content}
	if limit > 0 && len(content) > limit {
		result.Content = content[:limit] + "..."
		result.Truncated = true
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError("failed to format response: %v", err), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}

// effectiveLimit picks the tighter of the tool's configured default and a
// caller-supplied max_chars, so a caller can only shrink the cap, never
// raise it past the tool's own ceiling.
func (t *WebFetchTool) effectiveLimit(requested int) int {
	limit := t.config.MaxChars
	if requested > 0 && (limit == 0 || requested < limit) {
		limit = requested
	}
	return limit
}

func normalizeExtractMode(value string) string {
	if strings.ToLower(strings.TrimSpace(value)) == "text" {
		return "text"
	}
	return "markdown"
}

func readStringParam(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := raw[key]; ok {
			if str, ok := value.(string); ok {
				return strings.TrimSpace(str)
			}
		}
	}
	return ""
}

func readIntParam(raw map[string]any, keys ...string) int {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			return int(v)
		case int:
			return v
		case json.Number:
			if parsed, err := v.Int64(); err == nil {
				return int(parsed)
			}
		}
	}
	return 0
}
