package files

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/vfs"
)

// LsTool lists a directory in the virtual workspace.
type LsTool struct {
	store vfs.Store
}

// NewLsTool creates an ls tool over the workspace.
func NewLsTool(cfg Config) *LsTool {
	return &LsTool{store: cfg.Store}
}

// Name returns the tool name.
func (t *LsTool) Name() string {
	return "ls"
}

// Description returns the tool description.
func (t *LsTool) Description() string {
	return "List the entries in a workspace directory. Directories are suffixed with '/'."
}

// Schema returns the JSON schema for the tool parameters.
func (t *LsTool) Schema() json.RawMessage {
	return mustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to list (default: workspace root).",
			},
		},
	})
}

// Execute lists the directory.
func (t *LsTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutput, error) {
	var input struct {
		Path string `json:"path"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &input); err != nil {
			return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
		}
	}
	dir := input.Path
	if strings.TrimSpace(dir) == "" {
		dir = "/"
	}

	entries, err := t.store.List(ctx, dir)
	if err != nil {
		return toolError(err.Error()), nil
	}
	if len(entries) == 0 {
		return &agent.ToolOutput{Content: "(empty)"}, nil
	}

	var b strings.Builder
	for _, e := range entries {
		if e.IsDir {
			fmt.Fprintf(&b, "%s/\n", e.Name)
		} else {
			fmt.Fprintf(&b, "%s (%s bytes)\n", e.Name, describeSize(e.Size))
		}
	}
	return &agent.ToolOutput{Content: strings.TrimRight(b.String(), "\n")}, nil
}
