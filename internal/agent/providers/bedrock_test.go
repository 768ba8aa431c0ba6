package providers

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/pkg/models"
)

func TestBedrockConvertMessages(t *testing.T) {
	provider := &BedrockProvider{}

	messages := []agent.CompletionMessage{
		{Role: "system", Content: "ignored, travels via converseReq.System"},
		{Role: "user", Content: "What's 2+2?"},
		{Role: "assistant", ToolCalls: []models.ToolCall{
			{ID: "call_1", Name: "calculator", Input: json.RawMessage(`{"expr":"2+2"}`)},
		}},
		{Role: "tool", ToolResults: []models.ToolResult{
			{ToolCallID: "call_1", Content: "4"},
		}},
	}

	got := provider.convertMessages(messages)
	if len(got) != 3 {
		t.Fatalf("convertMessages() dropped system message incorrectly, got %d messages, want 3", len(got))
	}
}

func TestBedrockConvertMessagesSkipsEmpty(t *testing.T) {
	provider := &BedrockProvider{}

	got := provider.convertMessages([]agent.CompletionMessage{
		{Role: "assistant", Content: ""},
	})
	if len(got) != 0 {
		t.Errorf("convertMessages() should skip a message with no content blocks, got %d", len(got))
	}
}

func TestBedrockConvertMessagesMalformedToolInput(t *testing.T) {
	provider := &BedrockProvider{}

	got := provider.convertMessages([]agent.CompletionMessage{
		{Role: "assistant", ToolCalls: []models.ToolCall{
			{ID: "call_1", Name: "broken", Input: json.RawMessage(`{not-json}`)},
		}},
	})
	if len(got) != 1 {
		t.Fatalf("expected malformed tool input to still produce a message, got %d", len(got))
	}
}

func TestBedrockIsRetryableError(t *testing.T) {
	provider := &BedrockProvider{}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"throttling exception", errors.New("ThrottlingException: rate exceeded"), true},
		{"service unavailable", errors.New("ServiceUnavailableException"), true},
		{"generic 503", errors.New("HTTP 503"), true},
		{"unauthorized", errors.New("AccessDeniedException: not authorized"), false},
		{"pre-classified provider error", NewProviderError("bedrock", "claude-3-sonnet", errors.New("boom")).WithStatus(429), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := provider.isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBedrockWrapError(t *testing.T) {
	provider := &BedrockProvider{}

	if provider.wrapError(nil, "claude-3-sonnet") != nil {
		t.Error("wrapError(nil) should return nil")
	}

	wrapped := provider.wrapError(errors.New("boom"), "claude-3-sonnet")
	pe, ok := GetProviderError(wrapped)
	if !ok {
		t.Fatalf("expected ProviderError, got %T", wrapped)
	}
	if pe.Provider != "bedrock" || pe.Model != "claude-3-sonnet" {
		t.Errorf("unexpected ProviderError: %#v", pe)
	}

	already := NewProviderError("bedrock", "claude-3-sonnet", errors.New("already wrapped"))
	if provider.wrapError(already, "claude-3-sonnet") != error(already) {
		t.Error("wrapError() should not double-wrap an existing ProviderError")
	}
}

func TestBedrockProviderIdentity(t *testing.T) {
	provider := &BedrockProvider{}
	if got := provider.Name(); got != "bedrock" {
		t.Errorf("Name() = %v, want bedrock", got)
	}
	if !provider.SupportsTools() {
		t.Error("SupportsTools() = false, want true")
	}

	models := provider.Models()
	if len(models) == 0 {
		t.Fatal("Models() returned empty list")
	}
	for _, m := range models {
		if m.ContextSize <= 0 {
			t.Errorf("model %s has invalid context size: %d", m.ID, m.ContextSize)
		}
	}
}
