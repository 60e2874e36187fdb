// Package execute exposes the sandbox command capability as a tool. It is
// only wired when the workspace backend implements vfs.Executor; without
// the capability the tool declines gracefully instead of failing the run.
package execute

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/vfs"
	"github.com/haasonsaas/conductor/pkg/models"
)

// DefaultTimeout bounds one sandbox command.
const DefaultTimeout = 60 * time.Second

// Tool runs shell commands in the sandbox workspace.
type Tool struct {
	executor vfs.Executor
	timeout  time.Duration
}

// New creates the execute tool. executor may be nil when the workspace has
// no sandbox capability. timeout <= 0 uses DefaultTimeout.
func New(executor vfs.Executor, timeout time.Duration) *Tool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tool{executor: executor, timeout: timeout}
}

// Name returns the tool name.
func (t *Tool) Name() string {
	return "execute"
}

// Description returns the tool description.
func (t *Tool) Description() string {
	return "Run a shell command in the sandbox workspace and return stdout, stderr, and the exit code."
}

// Schema returns the JSON schema for the tool parameters.
func (t *Tool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "Shell command to run.",
			},
			"timeout_seconds": map[string]interface{}{
				"type":        "integer",
				"description": "Override the default command timeout.",
			},
		},
		"required": []string{"command"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute runs the command.
func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutput, error) {
	if t.executor == nil {
		return agent.Errorf("%v", vfs.ErrExecuteUnsupported), nil
	}

	var input struct {
		Command        string `json:"command"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return agent.Errorf("invalid parameters: %v", err), nil
	}
	if strings.TrimSpace(input.Command) == "" {
		return agent.Errorf("command is required"), nil
	}

	timeout := t.timeout
	if input.TimeoutSeconds > 0 {
		timeout = time.Duration(input.TimeoutSeconds) * time.Second
	}

	agent.Emit(ctx, models.Event{
		Type:    models.EventExecuteStarted,
		Execute: &models.ExecuteEvent{Command: input.Command},
	})

	result, err := t.executor.Execute(ctx, input.Command, vfs.ExecOptions{Timeout: timeout})
	if err != nil {
		return agent.Errorf("spawn command: %v", err), nil
	}

	agent.Emit(ctx, models.Event{
		Type: models.EventExecuteFinished,
		Execute: &models.ExecuteEvent{
			Command:   input.Command,
			ExitCode:  result.ExitCode,
			Truncated: result.Truncated,
		},
	})

	return &agent.ToolOutput{Content: render(result), IsError: result.ExitCode != 0}, nil
}

// render formats the execution outcome for the transcript. Non-zero exits
// are regular results; the model decides what to do with them.
func render(r vfs.ExecResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "exit code: %d\n", r.ExitCode)
	if r.Stdout != "" {
		b.WriteString("stdout:\n" + r.Stdout + "\n")
	}
	if r.Stderr != "" {
		b.WriteString("stderr:\n" + r.Stderr + "\n")
	}
	if r.Truncated {
		b.WriteString("(output truncated)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
