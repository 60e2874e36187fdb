// Package task exposes sub-agent delegation as a tool. The spawn function
// is injected so the tool stays decoupled from the engine that runs it.
package task

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/haasonsaas/conductor/internal/agent"
)

// Spawner runs a delegated task and returns its final summary.
// agent.Engine.Subagent satisfies it.
type Spawner func(ctx context.Context, task string) (string, error)

// Tool delegates self-contained work to a concurrent sub-agent.
type Tool struct {
	spawn Spawner
}

// New creates the task tool around spawn.
func New(spawn Spawner) *Tool {
	return &Tool{spawn: spawn}
}

// Name returns the tool name.
func (t *Tool) Name() string {
	return "task"
}

// Description returns the tool description.
func (t *Tool) Description() string {
	return "Delegate a self-contained task to a sub-agent that shares the workspace. Returns the sub-agent's summary."
}

// Schema returns the JSON schema for the tool parameters.
func (t *Tool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"description": map[string]interface{}{
				"type":        "string",
				"description": "Complete instructions for the sub-agent. It cannot ask follow-up questions.",
			},
		},
		"required": []string{"description"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute spawns the sub-agent and blocks until it finishes.
func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutput, error) {
	var input struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return agent.Errorf("invalid parameters: %v", err), nil
	}
	if strings.TrimSpace(input.Description) == "" {
		return agent.Errorf("description is required"), nil
	}

	summary, err := t.spawn(ctx, input.Description)
	if err != nil {
		return agent.Errorf("subagent failed: %v", err), nil
	}
	if summary == "" {
		summary = "Sub-agent finished without a summary."
	}
	return &agent.ToolOutput{Content: summary}, nil
}
