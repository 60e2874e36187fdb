package files

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/vfs"
)

// maxGrepMatches caps grep output before eviction has to step in.
const maxGrepMatches = 200

// GlobTool matches workspace paths against a pattern.
type GlobTool struct {
	store vfs.Store
}

// NewGlobTool creates a glob tool over the workspace.
func NewGlobTool(cfg Config) *GlobTool {
	return &GlobTool{store: cfg.Store}
}

// Name returns the tool name.
func (t *GlobTool) Name() string {
	return "glob"
}

// Description returns the tool description.
func (t *GlobTool) Description() string {
	return "Find workspace files by glob pattern, e.g. '/src/**/*.go'."
}

// Schema returns the JSON schema for the tool parameters.
func (t *GlobTool) Schema() json.RawMessage {
	return mustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Glob pattern. '**' crosses directories.",
			},
		},
		"required": []string{"pattern"},
	})
}

// Execute runs the glob.
func (t *GlobTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutput, error) {
	var input struct {
		Pattern string `json:"pattern"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Pattern) == "" {
		return toolError("pattern is required"), nil
	}

	paths, err := t.store.Glob(ctx, input.Pattern)
	if err != nil {
		return toolError(err.Error()), nil
	}
	if len(paths) == 0 {
		return &agent.ToolOutput{Content: "No matches."}, nil
	}
	return &agent.ToolOutput{Content: strings.Join(paths, "\n")}, nil
}

// GrepTool scans workspace files for lines containing a pattern.
type GrepTool struct {
	store vfs.Store
}

// NewGrepTool creates a grep tool over the workspace.
func NewGrepTool(cfg Config) *GrepTool {
	return &GrepTool{store: cfg.Store}
}

// Name returns the tool name.
func (t *GrepTool) Name() string {
	return "grep"
}

// Description returns the tool description.
func (t *GrepTool) Description() string {
	return "Search workspace files for lines containing a substring."
}

// Schema returns the JSON schema for the tool parameters.
func (t *GrepTool) Schema() json.RawMessage {
	return mustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Substring to search for.",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Restrict the search to this path prefix.",
			},
		},
		"required": []string{"pattern"},
	})
}

// Execute runs the scan.
func (t *GrepTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutput, error) {
	var input struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if input.Pattern == "" {
		return toolError("pattern is required"), nil
	}

	matches, err := t.store.Grep(ctx, input.Pattern, input.Path)
	if err != nil {
		return toolError(err.Error()), nil
	}
	if len(matches) == 0 {
		return &agent.ToolOutput{Content: "No matches."}, nil
	}

	truncated := false
	if len(matches) > maxGrepMatches {
		matches = matches[:maxGrepMatches]
		truncated = true
	}

	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&b, "%s:%d: %s\n", m.Path, m.Line, m.Text)
	}
	if truncated {
		fmt.Fprintf(&b, "... results truncated at %d matches\n", maxGrepMatches)
	}
	return &agent.ToolOutput{Content: strings.TrimRight(b.String(), "\n")}, nil
}
