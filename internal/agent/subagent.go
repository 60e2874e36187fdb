package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/conductor/pkg/models"
)

type subagentKey struct{}

// ErrNestedSubagent indicates a sub-agent tried to spawn another sub-agent.
var ErrNestedSubagent = errors.New("nested sub-agents not supported")

// Subagent runs a delegated task to completion inside the current run.
// The sub-agent gets a fresh transcript but shares the parent's workspace,
// todo list, registry, and provider. Its events flow into the parent's
// channel tagged with a sub-agent ID; its work is never checkpointed
// separately, the shared workspace is the only thing it leaves behind.
//
// Sub-agent tool calls are not gated: delegation happens inside a step the
// parent's gate already admitted.
func (e *Engine) Subagent(ctx context.Context, task string) (string, error) {
	if ctx.Value(subagentKey{}) != nil {
		return "", ErrNestedSubagent
	}
	ctx = context.WithValue(ctx, subagentKey{}, true)

	id := uuid.NewString()[:8]
	emit := func(ev models.Event) {
		if ev.SubagentID == "" {
			ev.SubagentID = id
		}
		Emit(ctx, ev)
	}

	emit(models.Event{Type: models.EventSubagentStarted, Text: task})
	e.opts.Metrics.SubagentStarted()
	defer e.opts.Metrics.SubagentFinished()
	e.logger.Info("subagent started", "subagent_id", id)

	messages := []*models.Message{{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   task,
		CreatedAt: time.Now(),
	}}

	toolCtx := WithEmitter(ctx, emit)
	for i := 0; i < e.opts.MaxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		assistant, err := e.subComplete(ctx, messages, emit)
		if err != nil {
			return "", err
		}
		messages = append(messages, assistant)

		if len(assistant.ToolCalls) == 0 {
			emit(models.Event{Type: models.EventSubagentFinished})
			e.logger.Info("subagent finished", "subagent_id", id, "steps", i+1)
			return assistant.Content, nil
		}

		var results []models.ToolResult
		for _, call := range assistant.ToolCalls {
			call := call
			emit(models.Event{Type: models.EventToolCall, ToolCall: &call})
			result := e.executor.Execute(toolCtx, call)

			if content, evicted, err := e.opts.Evictor.Process(ctx, call.Name, result.Content); err == nil && evicted != nil {
				result.Content = content
				e.opts.Metrics.RecordEviction(call.Name)
				emit(models.Event{
					Type:       models.EventResultEvicted,
					Compaction: &models.CompactionEvent{Path: evicted.Path, EvictedTokens: evicted.Tokens},
				})
			}

			emit(models.Event{Type: models.EventToolResult, ToolResult: &result})
			results = append(results, result)
		}
		messages = append(messages, &models.Message{
			ID:          uuid.NewString(),
			Role:        models.RoleTool,
			ToolResults: results,
			CreatedAt:   time.Now(),
		})
	}

	return "", fmt.Errorf("subagent %s: %w", id, ErrMaxSteps)
}

// subComplete is the sub-agent's model call; text streams into the parent
// channel through emit.
func (e *Engine) subComplete(ctx context.Context, messages []*models.Message, emit func(models.Event)) (*models.Message, error) {
	chunks, err := e.opts.Provider.Complete(ctx, &CompletionRequest{
		Model:     e.opts.Model,
		System:    e.opts.SystemPrompt,
		Messages:  messages,
		Tools:     e.opts.Registry.Specs(),
		MaxTokens: e.opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("subagent model call: %w", err)
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		CreatedAt: time.Now(),
	}
	for chunk := range chunks {
		switch {
		case chunk.Error != nil:
			return nil, fmt.Errorf("subagent model stream: %w", chunk.Error)
		case chunk.ToolCall != nil:
			msg.ToolCalls = append(msg.ToolCalls, *chunk.ToolCall)
		case chunk.Text != "":
			msg.Content += chunk.Text
			emit(models.Event{Type: models.EventText, Text: chunk.Text})
		}
	}
	return msg, nil
}
