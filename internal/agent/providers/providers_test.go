package providers

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/haasonsaas/conductor/pkg/models"
)

func TestConvertMessagesSkipsSystemAndEmpty(t *testing.T) {
	msgs := []*models.Message{
		{Role: models.RoleSystem, Content: "be nice"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant}, // no content, no calls
	}
	out, err := convertMessages(msgs)
	if err != nil {
		t.Fatalf("convertMessages: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("got %d messages, want 1", len(out))
	}
}

func TestConvertMessagesRejectsBadToolInput(t *testing.T) {
	msgs := []*models.Message{{
		Role:      models.RoleAssistant,
		ToolCalls: []models.ToolCall{{ID: "c1", Name: "x", Input: json.RawMessage(`{`)}},
	}}
	if _, err := convertMessages(msgs); err == nil {
		t.Fatal("expected error for invalid tool input")
	}
}

func TestToOpenAIMessagesShape(t *testing.T) {
	msgs := []*models.Message{
		{Role: models.RoleUser, Content: "do it"},
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
			{ID: "c1", Name: "ls", Input: json.RawMessage(`{}`)},
		}},
		{Role: models.RoleTool, ToolResults: []models.ToolResult{
			{ToolCallID: "c1", Content: "file.txt"},
		}},
	}
	out := toOpenAIMessages(msgs, "system prompt")

	if len(out) != 4 {
		t.Fatalf("got %d messages, want 4", len(out))
	}
	if out[0].Role != "system" || out[0].Content != "system prompt" {
		t.Errorf("system message: %+v", out[0])
	}
	if len(out[2].ToolCalls) != 1 || out[2].ToolCalls[0].Function.Name != "ls" {
		t.Errorf("assistant tool calls: %+v", out[2])
	}
	if out[3].Role != "tool" || out[3].ToolCallID != "c1" {
		t.Errorf("tool result message: %+v", out[3])
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("429 too many requests"), true},
		{errors.New("server overloaded"), true},
		{errors.New("context deadline exceeded"), true},
		{errors.New("invalid api key"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := isRetryableError(tt.err); got != tt.want {
			t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
