// Package todos exposes the thread's planning list as a tool. The model
// replaces the whole list on every call, which keeps merge logic out of the
// model's hands.
package todos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/pkg/models"
)

// WriteTool replaces the thread's todo list.
type WriteTool struct {
	list *agent.TodoList
}

// NewWriteTool creates the tool over the engine's shared list.
func NewWriteTool(list *agent.TodoList) *WriteTool {
	return &WriteTool{list: list}
}

// Name returns the tool name.
func (t *WriteTool) Name() string {
	return "write_todos"
}

// Description returns the tool description.
func (t *WriteTool) Description() string {
	return "Replace the task plan. Send the complete list every time; at most one item may be in_progress."
}

// Schema returns the JSON schema for the tool parameters.
func (t *WriteTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"todos": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":      map[string]interface{}{"type": "string"},
						"content": map[string]interface{}{"type": "string"},
						"status": map[string]interface{}{
							"type": "string",
							"enum": []string{"pending", "in_progress", "completed", "cancelled"},
						},
					},
					"required": []string{"id", "content", "status"},
				},
			},
		},
		"required": []string{"todos"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute replaces the list and surfaces a todos.changed event.
func (t *WriteTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutput, error) {
	var input struct {
		Todos []models.Todo `json:"todos"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return agent.Errorf("invalid parameters: %v", err), nil
	}

	if err := t.list.Set(input.Todos); err != nil {
		return agent.Errorf("%v", err), nil
	}

	agent.Emit(ctx, models.Event{Type: models.EventTodosChanged, Todos: t.list.Items()})

	done := 0
	for _, item := range input.Todos {
		if item.Status == models.TodoCompleted {
			done++
		}
	}
	return &agent.ToolOutput{
		Content: fmt.Sprintf("Todo list updated: %d items, %d completed.", len(input.Todos), done),
	}, nil
}
