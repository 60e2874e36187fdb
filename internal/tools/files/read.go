package files

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/vfs"
)

// ReadTool returns file content with line numbers.
type ReadTool struct {
	store vfs.Store
}

// NewReadTool creates a read tool over the workspace.
func NewReadTool(cfg Config) *ReadTool {
	return &ReadTool{store: cfg.Store}
}

// Name returns the tool name.
func (t *ReadTool) Name() string {
	return "read_file"
}

// Description returns the tool description.
func (t *ReadTool) Description() string {
	return "Read a workspace file. Output is line-numbered; use the numbers when planning edits."
}

// Schema returns the JSON schema for the tool parameters.
func (t *ReadTool) Schema() json.RawMessage {
	return mustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "File to read.",
			},
		},
		"required": []string{"path"},
	})
}

// Execute reads the file.
func (t *ReadTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutput, error) {
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return toolError("path is required"), nil
	}

	content, err := t.store.Read(ctx, input.Path)
	if err != nil {
		return toolError(err.Error()), nil
	}
	if content == "" {
		return &agent.ToolOutput{Content: "(empty file)"}, nil
	}
	return &agent.ToolOutput{Content: content}, nil
}
