package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haasonsaas/conductor/internal/observability"
	"github.com/haasonsaas/conductor/pkg/models"
)

// DefaultToolTimeout bounds a single tool execution.
const DefaultToolTimeout = 2 * time.Minute

// Executor dispatches tool calls from the registry. Failures never
// propagate as errors: every outcome becomes a models.ToolResult so the
// model can react, matching how providers expect tool turns to close.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewExecutor creates an executor over registry. timeout <= 0 uses
// DefaultToolTimeout; metrics and logger may be nil.
func NewExecutor(registry *Registry, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{registry: registry, timeout: timeout, metrics: metrics, logger: logger}
}

// Execute runs one tool call to completion, converting every failure mode
// (unknown tool, invalid input, timeout, panic, tool error) into an
// error-flagged result.
func (e *Executor) Execute(ctx context.Context, call models.ToolCall) models.ToolResult {
	start := time.Now()
	out := e.run(ctx, call)
	status := "success"
	if out.IsError {
		status = "error"
	}
	e.metrics.RecordToolExecution(call.Name, status, time.Since(start).Seconds())
	e.logger.Debug("tool executed",
		"tool", call.Name,
		"tool_call_id", call.ID,
		"status", status,
		"duration", time.Since(start))

	return models.ToolResult{ToolCallID: call.ID, Content: out.Content, IsError: out.IsError}
}

func (e *Executor) run(ctx context.Context, call models.ToolCall) *ToolOutput {
	tool, err := e.registry.Get(call.Name)
	if err != nil {
		return Errorf("unknown tool %q", call.Name)
	}
	if err := e.registry.Validate(call.Name, call.Input); err != nil {
		return Errorf("invalid arguments for %s: %v", call.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.callSafely(ctx, tool, call)
	switch {
	case err == nil:
		if out == nil {
			out = &ToolOutput{}
		}
		return out
	case errors.Is(err, context.DeadlineExceeded):
		return Errorf("%s timed out after %s", call.Name, e.timeout)
	case errors.Is(err, context.Canceled):
		return Errorf("%s cancelled", call.Name)
	default:
		return Errorf("%s failed: %v", call.Name, err)
	}
}

// callSafely isolates a single tool invocation so a panicking tool takes
// down one result, not the engine.
func (e *Executor) callSafely(ctx context.Context, tool Tool, call models.ToolCall) (out *ToolOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool panicked", "tool", call.Name, "panic", r)
			out = nil
			err = fmt.Errorf("%w: %v", ErrToolPanic, r)
		}
	}()
	return tool.Execute(ctx, call.Input)
}
