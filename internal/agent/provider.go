package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/conductor/pkg/models"
)

// Provider defines the interface for model backends.
//
// Implementations handle the specifics of communicating with different model
// APIs (Anthropic, OpenAI) while presenting a unified streaming interface to
// the engine.
//
// Implementations must be safe for concurrent use: the engine and its
// sub-agents call Complete simultaneously for different requests.
type Provider interface {
	// Complete sends a prompt and returns a streaming response.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []Model
}

// CompletionRequest contains all parameters for a model completion request.
type CompletionRequest struct {
	// Model specifies which model to use. Empty selects the provider default.
	Model string `json:"model"`

	// System sets the assistant's behavior. Most APIs carry it
	// separately from messages.
	System string `json:"system,omitempty"`

	// Messages is the conversation history in chronological order.
	Messages []*models.Message `json:"messages"`

	// Tools the model may request to execute. Empty disables tool calling.
	Tools []ToolSpec `json:"tools,omitempty"`

	// MaxTokens caps the generated response. 0 uses the provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// ToolSpec is the wire description of a tool offered to the model.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

// CompletionChunk is a single chunk in a streaming model response.
// Exactly one of Text, ToolCall, Done, or Error is meaningful per chunk.
type CompletionChunk struct {
	// Text contains partial response text.
	Text string `json:"text,omitempty"`

	// ToolCall contains a complete tool execution request.
	ToolCall *models.ToolCall `json:"tool_call,omitempty"`

	// Done is true when the stream has completed successfully.
	Done bool `json:"done,omitempty"`

	// Error terminates the stream.
	Error error `json:"-"`

	// InputTokens and OutputTokens are populated on the final chunk.
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// Model describes an available model.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContextSize int    `json:"context_size"`
}

// Tool is the interface for executable engine tools.
type Tool interface {
	// Name returns the tool name for function calling.
	Name() string

	// Description tells the model when to use the tool.
	Description() string

	// Schema returns the JSON Schema for the tool's parameters.
	Schema() json.RawMessage

	// Execute runs the tool. Failures the model should see are returned
	// as a ToolOutput with IsError set; an error return means the tool
	// could not run at all.
	Execute(ctx context.Context, params json.RawMessage) (*ToolOutput, error)
}

// ToolOutput is the result of one tool execution.
type ToolOutput struct {
	// Content is the tool's output text.
	Content string `json:"content"`

	// IsError marks the result as an error the model should handle.
	IsError bool `json:"is_error,omitempty"`
}

// Errorf builds an error-flagged ToolOutput the way tools report
// recoverable failures to the model.
func Errorf(format string, args ...any) *ToolOutput {
	return &ToolOutput{Content: "Error: " + fmt.Sprintf(format, args...), IsError: true}
}
