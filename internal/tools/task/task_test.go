package task

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestTaskToolDelegates(t *testing.T) {
	var got string
	tool := New(func(ctx context.Context, task string) (string, error) {
		got = task
		return "did the thing", nil
	})

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"description":"rename the package"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.IsError || out.Content != "did the thing" {
		t.Errorf("result: %+v", out)
	}
	if got != "rename the package" {
		t.Errorf("spawner saw %q", got)
	}
}

func TestTaskToolSpawnFailureIsResult(t *testing.T) {
	tool := New(func(ctx context.Context, task string) (string, error) {
		return "", errors.New("model unavailable")
	})

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"description":"x"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.IsError || !strings.Contains(out.Content, "model unavailable") {
		t.Errorf("result: %+v", out)
	}
}

func TestTaskToolRequiresDescription(t *testing.T) {
	tool := New(func(ctx context.Context, task string) (string, error) {
		t.Fatal("spawner should not run")
		return "", nil
	})
	out, _ := tool.Execute(context.Background(), json.RawMessage(`{"description":"  "}`))
	if !out.IsError {
		t.Error("expected error result")
	}
}
