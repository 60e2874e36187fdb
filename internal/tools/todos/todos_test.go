package todos

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/pkg/models"
)

func TestWriteToolReplacesList(t *testing.T) {
	list := agent.NewTodoList([]models.Todo{{ID: "old", Content: "stale", Status: models.TodoPending}})
	tool := NewWriteTool(list)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"todos":[
		{"id":"1","content":"plan","status":"completed"},
		{"id":"2","content":"build","status":"in_progress"}
	]}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.Content)
	}
	if !strings.Contains(out.Content, "2 items, 1 completed") {
		t.Errorf("summary: %s", out.Content)
	}

	items := list.Items()
	if len(items) != 2 || items[0].ID != "1" {
		t.Errorf("list not replaced: %+v", items)
	}
}

func TestWriteToolRejectsTwoInProgress(t *testing.T) {
	list := agent.NewTodoList(nil)
	tool := NewWriteTool(list)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"todos":[
		{"id":"1","content":"a","status":"in_progress"},
		{"id":"2","content":"b","status":"in_progress"}
	]}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.IsError {
		t.Fatal("expected error result")
	}
	if len(list.Items()) != 0 {
		t.Error("rejected update mutated the list")
	}
}
