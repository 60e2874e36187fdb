package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type stubTool struct {
	name    string
	schema  string
	execute func(ctx context.Context, params json.RawMessage) (*ToolOutput, error)
}

func (t *stubTool) Name() string             { return t.name }
func (t *stubTool) Description() string      { return "stub" }
func (t *stubTool) Schema() json.RawMessage  { return json.RawMessage(t.schema) }
func (t *stubTool) Execute(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
	if t.execute == nil {
		return &ToolOutput{Content: "ok"}, nil
	}
	return t.execute(ctx, params)
}

const echoSchema = `{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`

func TestRegistryValidate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "echo", schema: echoSchema}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name   string
		params string
		ok     bool
	}{
		{"valid", `{"text":"hi"}`, true},
		{"missing required", `{}`, false},
		{"wrong type", `{"text":7}`, false},
		{"not json", `{`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Validate("echo", json.RawMessage(tt.params))
			if tt.ok && err != nil {
				t.Errorf("Validate(%s): %v", tt.params, err)
			}
			if !tt.ok {
				if err == nil {
					t.Errorf("Validate(%s): expected error", tt.params)
				} else if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("Validate(%s): error %v does not wrap ErrInvalidInput", tt.params, err)
				}
			}
		})
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nope"); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("Get: %v, want ErrToolNotFound", err)
	}
	if err := r.Validate("nope", nil); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("Validate: %v, want ErrToolNotFound", err)
	}
}

func TestRegistryBadSchemaRejected(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "bad", schema: `{"type":`}); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestRegistrySpecsSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(&stubTool{name: name, schema: `{"type":"object"}`}); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}
	specs := r.Specs()
	if len(specs) != 3 || specs[0].Name != "alpha" || specs[2].Name != "zeta" {
		t.Errorf("Specs not sorted: %+v", specs)
	}
}
