package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/compaction"
	"github.com/haasonsaas/conductor/internal/vfs"
	"github.com/haasonsaas/conductor/pkg/models"
)

// WriteTool creates or overwrites a workspace file.
type WriteTool struct {
	store vfs.Store
}

// NewWriteTool creates a write tool over the workspace.
func NewWriteTool(cfg Config) *WriteTool {
	return &WriteTool{store: cfg.Store}
}

// Name returns the tool name.
func (t *WriteTool) Name() string {
	return "write_file"
}

// Description returns the tool description.
func (t *WriteTool) Description() string {
	return "Create or overwrite a workspace file with the given content."
}

// Schema returns the JSON schema for the tool parameters.
func (t *WriteTool) Schema() json.RawMessage {
	return mustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "File to write.",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Full file content.",
			},
		},
		"required": []string{"path", "content"},
	})
}

// Execute writes the file and surfaces a file.written event.
func (t *WriteTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutput, error) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return toolError("path is required"), nil
	}

	path := vfs.NormalizePath(input.Path)
	if path == compaction.EvictionDir || strings.HasPrefix(path, compaction.EvictionDir+"/") {
		return toolError(fmt.Sprintf("%s is reserved for evicted tool results", compaction.EvictionDir)), nil
	}

	_, err := t.store.ReadRaw(ctx, input.Path)
	created := errors.Is(err, vfs.ErrNotFound)

	if err := t.store.Write(ctx, input.Path, input.Content); err != nil {
		return toolError(err.Error()), nil
	}

	agent.Emit(ctx, models.Event{
		Type: models.EventFileWritten,
		File: &models.FileEvent{Path: path, Created: created},
	})

	verb := "Updated"
	if created {
		verb = "Created"
	}
	return &agent.ToolOutput{
		Content: fmt.Sprintf("%s %s (%d lines)", verb, path, vfs.CountLines(input.Content)),
	}, nil
}
