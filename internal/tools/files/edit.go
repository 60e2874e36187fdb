package files

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/vfs"
	"github.com/haasonsaas/conductor/pkg/models"
)

// EditTool applies a find/replace edit to a workspace file.
type EditTool struct {
	store vfs.Store
}

// NewEditTool creates an edit tool over the workspace.
func NewEditTool(cfg Config) *EditTool {
	return &EditTool{store: cfg.Store}
}

// Name returns the tool name.
func (t *EditTool) Name() string {
	return "edit_file"
}

// Description returns the tool description.
func (t *EditTool) Description() string {
	return "Replace text in a workspace file. old_text must match exactly once unless replace_all is set."
}

// Schema returns the JSON schema for the tool parameters.
func (t *EditTool) Schema() json.RawMessage {
	return mustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "File to edit.",
			},
			"old_text": map[string]interface{}{
				"type":        "string",
				"description": "Text to replace.",
			},
			"new_text": map[string]interface{}{
				"type":        "string",
				"description": "Replacement text.",
			},
			"replace_all": map[string]interface{}{
				"type":        "boolean",
				"description": "Replace every occurrence (default: false).",
			},
		},
		"required": []string{"path", "old_text", "new_text"},
	})
}

// Execute applies the edit and surfaces a file.edited event with a diff.
func (t *EditTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutput, error) {
	var input struct {
		Path       string `json:"path"`
		OldText    string `json:"old_text"`
		NewText    string `json:"new_text"`
		ReplaceAll bool   `json:"replace_all"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return toolError("path is required"), nil
	}
	if input.OldText == "" {
		return toolError("old_text is required"), nil
	}
	if input.OldText == input.NewText {
		return toolError("old_text and new_text are identical"), nil
	}

	result, err := t.store.Edit(ctx, input.Path, input.OldText, input.NewText, input.ReplaceAll)
	if err != nil {
		return toolError(err.Error()), nil
	}

	diff := diffSummary(result.OldContent, result.NewContent)
	agent.Emit(ctx, models.Event{
		Type: models.EventFileEdited,
		File: &models.FileEvent{Path: result.Path, Diff: diff},
	})

	return &agent.ToolOutput{
		Content: fmt.Sprintf("Edited %s (%d replacement(s))\n%s", result.Path, result.Replacements, diff),
	}, nil
}

// diffSummary renders a compact +/- line diff of the edit.
func diffSummary(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix := ""
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			out.WriteString(prefix + line + "\n")
		}
	}
	return strings.TrimRight(out.String(), "\n")
}
