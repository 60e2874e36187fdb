package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/conductor/pkg/models"
)

func newTestExecutor(t *testing.T, tools ...Tool) *Executor {
	t.Helper()
	r := NewRegistry()
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			t.Fatalf("Register(%s): %v", tool.Name(), err)
		}
	}
	return NewExecutor(r, time.Second, nil, nil)
}

func TestExecutorSuccess(t *testing.T) {
	e := newTestExecutor(t, &stubTool{name: "echo", schema: echoSchema,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			var in struct {
				Text string `json:"text"`
			}
			json.Unmarshal(params, &in)
			return &ToolOutput{Content: in.Text}, nil
		}})

	result := e.Execute(context.Background(), models.ToolCall{
		ID: "c1", Name: "echo", Input: json.RawMessage(`{"text":"hello"}`),
	})
	if result.IsError || result.Content != "hello" {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.ToolCallID != "c1" {
		t.Error("result not tied to the call")
	}
}

func TestExecutorUnknownToolBecomesResult(t *testing.T) {
	e := newTestExecutor(t)
	result := e.Execute(context.Background(), models.ToolCall{ID: "c1", Name: "missing"})
	if !result.IsError || !strings.Contains(result.Content, "unknown tool") {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestExecutorInvalidInputBecomesResult(t *testing.T) {
	e := newTestExecutor(t, &stubTool{name: "echo", schema: echoSchema})
	result := e.Execute(context.Background(), models.ToolCall{
		ID: "c1", Name: "echo", Input: json.RawMessage(`{}`),
	})
	if !result.IsError || !strings.Contains(result.Content, "invalid arguments") {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestExecutorPanicRecovered(t *testing.T) {
	e := newTestExecutor(t, &stubTool{name: "boom", schema: `{"type":"object"}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			panic("kaboom")
		}})

	result := e.Execute(context.Background(), models.ToolCall{ID: "c1", Name: "boom", Input: json.RawMessage(`{}`)})
	if !result.IsError || !strings.Contains(result.Content, "kaboom") {
		t.Errorf("panic not converted to result: %+v", result)
	}
}

func TestExecutorTimeout(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&stubTool{name: "slow", schema: `{"type":"object"}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	e := NewExecutor(r, 20*time.Millisecond, nil, nil)

	result := e.Execute(context.Background(), models.ToolCall{ID: "c1", Name: "slow", Input: json.RawMessage(`{}`)})
	if !result.IsError || !strings.Contains(result.Content, "timed out") {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestTodoListSingleInProgress(t *testing.T) {
	l := NewTodoList(nil)
	err := l.Set([]models.Todo{
		{ID: "1", Content: "a", Status: models.TodoInProgress},
		{ID: "2", Content: "b", Status: models.TodoInProgress},
	})
	if err == nil {
		t.Fatal("expected error for two in_progress todos")
	}

	if err := l.Set([]models.Todo{
		{ID: "1", Content: "a", Status: models.TodoCompleted},
		{ID: "2", Content: "b", Status: models.TodoInProgress},
		{ID: "3", Content: "c", Status: models.TodoPending},
	}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if items := l.Items(); len(items) != 3 || items[1].Status != models.TodoInProgress {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestTodoListRequiresIDs(t *testing.T) {
	l := NewTodoList(nil)
	if err := l.Set([]models.Todo{{Content: "a"}}); err == nil {
		t.Fatal("expected error for missing id")
	}
}
