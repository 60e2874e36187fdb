// Package agent implements the stateful execution core: a step loop that
// drives a model provider, dispatches tool calls against a virtual
// workspace, gates side-effecting calls behind interrupts, and checkpoints
// the thread after every step.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/conductor/internal/checkpoint"
	"github.com/haasonsaas/conductor/internal/compaction"
	"github.com/haasonsaas/conductor/internal/observability"
	"github.com/haasonsaas/conductor/internal/vfs"
	"github.com/haasonsaas/conductor/pkg/models"
)

// DefaultMaxSteps bounds the step loop of a single run.
const DefaultMaxSteps = 50

// DefaultToolConcurrency bounds parallel tool dispatch within one step.
const DefaultToolConcurrency = 4

// Options configure an Engine. Provider and Registry are required;
// everything else degrades gracefully when absent (no checkpointing, no
// gating, no compaction, no metrics).
type Options struct {
	Provider    Provider
	Registry    *Registry
	Gate        *Gate
	Workspace   vfs.Store
	Checkpoints checkpoint.Store
	Evictor     *compaction.Evictor
	Summarizer  *compaction.Summarizer
	Metrics     *observability.Metrics
	Logger      *slog.Logger

	SystemPrompt string
	Model        string
	MaxTokens    int
	MaxSteps     int
	ToolTimeout  time.Duration

	// ToolConcurrency bounds parallel tool execution within one step.
	// 0 uses DefaultToolConcurrency.
	ToolConcurrency int

	// EventBuffer sizes the run's event channel. 0 uses a small default;
	// a slow consumer backpressures the loop rather than dropping events.
	EventBuffer int
}

// Request starts or resumes one run of a thread.
type Request struct {
	// ThreadID selects the thread to resume. Empty runs ephemerally:
	// nothing is loaded and nothing is checkpointed.
	ThreadID string

	// Input is the new user message. May be empty when the request only
	// carries resolutions for pending interrupts.
	Input string

	// Resolutions answer interrupts raised by a previous run, keyed by
	// tool call ID.
	Resolutions map[string]Resolution
}

// Engine is the execution core. One Engine serves one thread at a time;
// concurrent sub-agents within a run share its workspace and todo list.
type Engine struct {
	opts     Options
	executor *Executor
	todos    *TodoList
	logger   *slog.Logger
}

// NewEngine validates options and builds an engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Provider == nil {
		return nil, ErrNoProvider
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Gate == nil {
		opts.Gate = NewGate(nil)
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.ToolConcurrency <= 0 {
		opts.ToolConcurrency = DefaultToolConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		opts:     opts,
		executor: NewExecutor(opts.Registry, opts.ToolTimeout, opts.Metrics, opts.Logger),
		todos:    NewTodoList(nil),
		logger:   opts.Logger,
	}, nil
}

// Todos exposes the thread's shared todo list for tool wiring.
func (e *Engine) Todos() *TodoList { return e.todos }

// Gate exposes the interrupt gate for inspection.
func (e *Engine) Gate() *Gate { return e.opts.Gate }

// Run executes the request and returns the run's single ordered event
// channel. The channel closes when the run finishes, pauses on an
// interrupt, or fails; the terminal event is always done or error.
func (e *Engine) Run(ctx context.Context, req Request) (<-chan models.Event, error) {
	buffer := e.opts.EventBuffer
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan models.Event, buffer)
	go func() {
		defer close(ch)
		e.run(ctx, req, ch)
	}()
	return ch, nil
}

// runState is the mutable state of one run.
type runState struct {
	threadID string
	step     int
	messages []*models.Message

	// emit serializes events from the loop and concurrent sub-agents
	// onto the single channel.
	emitMu sync.Mutex
	ch     chan<- models.Event
}

func (s *runState) emit(ev models.Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if ev.ThreadID == "" {
		ev.ThreadID = s.threadID
	}
	if ev.Step == 0 {
		ev.Step = s.step
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.ch <- ev
}

func (e *Engine) run(ctx context.Context, req Request, ch chan<- models.Event) {
	rs := &runState{threadID: req.ThreadID, ch: ch}

	if err := e.restore(ctx, req, rs); err != nil {
		rs.emit(models.Event{Type: models.EventError, Err: err.Error()})
		return
	}

	ok, err := e.applyResolutions(ctx, req, rs)
	if err != nil {
		rs.emit(models.Event{Type: models.EventError, Err: err.Error()})
		return
	}
	if !ok {
		// Unresolved interrupts remain; surface them again and pause.
		// New input cannot join the transcript mid-interrupt, so reject
		// it rather than dropping it silently.
		e.emitPending(rs)
		if req.Input != "" {
			rs.emit(models.Event{Type: models.EventError, Err: ErrPendingInterrupts.Error()})
			return
		}
		e.finish(rs)
		return
	}

	if req.Input != "" {
		rs.messages = append(rs.messages, &models.Message{
			ID:        uuid.NewString(),
			Role:      models.RoleUser,
			Content:   req.Input,
			CreatedAt: time.Now(),
		})
	}
	if len(rs.messages) == 0 {
		rs.emit(models.Event{Type: models.EventError, Err: "empty request: no input and no prior transcript"})
		return
	}

	e.loop(ctx, rs)
}

// restore loads the thread's checkpoint and rebuilds in-memory state:
// workspace contents, todos, and interrupts pending in the transcript tail.
func (e *Engine) restore(ctx context.Context, req Request, rs *runState) error {
	if req.ThreadID == "" || e.opts.Checkpoints == nil {
		return nil
	}
	cp, err := e.opts.Checkpoints.Load(ctx, req.ThreadID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	rs.step = cp.Step
	rs.messages = cp.Messages

	if snap, ok := e.opts.Workspace.(vfs.Snapshotter); ok {
		files := make(map[string]string, len(cp.State.Files))
		for path, rec := range cp.State.Files {
			files[path] = rec.Content
		}
		snap.Restore(files)
	}
	if err := e.todos.Set(cp.State.Todos); err != nil {
		return fmt.Errorf("restore todos: %w", err)
	}

	for _, call := range pendingCalls(rs.messages) {
		e.opts.Gate.Restore(call)
	}

	rs.emit(models.Event{Type: models.EventCheckpointLoaded, Step: cp.Step})
	e.logger.Info("thread restored",
		"thread_id", req.ThreadID,
		"step", cp.Step,
		"messages", len(cp.Messages),
		"pending_interrupts", len(e.opts.Gate.Pending()))
	return nil
}

// pendingCalls returns tool calls in the transcript that never received a
// result. Pending interrupt state survives restarts this way: the
// transcript is the record, not the gate.
func pendingCalls(messages []*models.Message) []models.ToolCall {
	answered := make(map[string]bool)
	for _, m := range messages {
		for _, tr := range m.ToolResults {
			answered[tr.ToolCallID] = true
		}
	}
	var pending []models.ToolCall
	for _, m := range messages {
		for _, tc := range m.ToolCalls {
			if !answered[tc.ID] {
				pending = append(pending, tc)
			}
		}
	}
	return pending
}

// applyResolutions answers pending interrupts from the request. It reports
// whether the loop may proceed: false means unresolved interrupts remain.
func (e *Engine) applyResolutions(ctx context.Context, req Request, rs *runState) (bool, error) {
	if len(req.Resolutions) > 0 {
		// Resolution application counts as a step so the checkpoint
		// sequence stays strictly increasing; advancing first stamps the
		// resolution events with the step they are checkpointed under.
		rs.step++

		ids := make([]string, 0, len(req.Resolutions))
		for id := range req.Resolutions {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		var results []models.ToolResult
		for _, id := range ids {
			res := req.Resolutions[id]
			call, approved, err := e.opts.Gate.Resolve(id, res)
			if err != nil {
				return false, fmt.Errorf("resolve %s: %w", id, err)
			}

			var result models.ToolResult
			if !approved {
				result = RejectedResult(id, res.Reason)
				e.opts.Metrics.RecordInterrupt("rejected")
				rs.emit(models.Event{Type: models.EventToolResult, ToolResult: &result})
			} else {
				outcome := "approved"
				if len(res.Input) > 0 {
					outcome = "edited"
				}
				e.opts.Metrics.RecordInterrupt(outcome)
				rs.emit(models.Event{Type: models.EventToolCall, ToolCall: &call})
				result = e.dispatch(ctx, rs, call, "")
				rs.emit(models.Event{Type: models.EventToolResult, ToolResult: &result})
			}
			results = append(results, result)
		}

		rs.messages = append(rs.messages, &models.Message{
			ID:          uuid.NewString(),
			Role:        models.RoleTool,
			ToolResults: results,
			CreatedAt:   time.Now(),
		})
		if err := e.save(ctx, rs); err != nil {
			return false, err
		}
	}

	return len(e.opts.Gate.Pending()) == 0, nil
}

// loop is the step loop: compact, call the model, dispatch tools,
// checkpoint. It terminates on a text-only response, an interrupt, context
// cancellation, or an engine failure.
func (e *Engine) loop(ctx context.Context, rs *runState) {
	for i := 0; i < e.opts.MaxSteps; i++ {
		if ctx.Err() != nil {
			rs.emit(models.Event{Type: models.EventError, Err: ctx.Err().Error()})
			return
		}

		if err := e.maybeCompact(ctx, rs); err != nil {
			rs.emit(models.Event{Type: models.EventError, Err: err.Error()})
			return
		}

		rs.step++
		rs.emit(models.Event{Type: models.EventStepStarted})
		e.opts.Metrics.RecordStep(rs.threadID)

		assistant, err := e.complete(ctx, rs)
		if err != nil {
			// Model failures are engine failures. The step is abandoned:
			// nothing is checkpointed for it.
			rs.step--
			rs.emit(models.Event{Type: models.EventError, Err: err.Error()})
			return
		}
		rs.messages = append(rs.messages, assistant)

		if len(assistant.ToolCalls) == 0 {
			if err := e.save(ctx, rs); err != nil {
				rs.emit(models.Event{Type: models.EventError, Err: err.Error()})
				return
			}
			rs.emit(models.Event{Type: models.EventStepFinished})
			e.finish(rs)
			return
		}

		interrupted, err := e.dispatchAll(ctx, rs, assistant.ToolCalls)
		if err != nil {
			rs.emit(models.Event{Type: models.EventError, Err: err.Error()})
			return
		}
		if err := e.save(ctx, rs); err != nil {
			rs.emit(models.Event{Type: models.EventError, Err: err.Error()})
			return
		}
		rs.emit(models.Event{Type: models.EventStepFinished})

		if interrupted {
			e.emitPending(rs)
			e.finish(rs)
			return
		}
	}

	rs.emit(models.Event{Type: models.EventError, Err: ErrMaxSteps.Error()})
}

// complete performs one model call, streaming text as events and
// collecting the assistant message.
func (e *Engine) complete(ctx context.Context, rs *runState) (*models.Message, error) {
	start := time.Now()
	chunks, err := e.opts.Provider.Complete(ctx, &CompletionRequest{
		Model:     e.opts.Model,
		System:    e.opts.SystemPrompt,
		Messages:  rs.messages,
		Tools:     e.opts.Registry.Specs(),
		MaxTokens: e.opts.MaxTokens,
	})
	if err != nil {
		e.opts.Metrics.RecordModelRequest(e.opts.Provider.Name(), e.opts.Model, "error", time.Since(start).Seconds(), 0, 0)
		return nil, fmt.Errorf("model call: %w", err)
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		CreatedAt: time.Now(),
	}
	for chunk := range chunks {
		switch {
		case chunk.Error != nil:
			e.opts.Metrics.RecordModelRequest(e.opts.Provider.Name(), e.opts.Model, "error", time.Since(start).Seconds(), 0, 0)
			return nil, fmt.Errorf("model stream: %w", chunk.Error)
		case chunk.ToolCall != nil:
			msg.ToolCalls = append(msg.ToolCalls, *chunk.ToolCall)
		case chunk.Text != "":
			msg.Content += chunk.Text
			rs.emit(models.Event{Type: models.EventText, Text: chunk.Text})
		case chunk.Done:
			e.opts.Metrics.RecordModelRequest(e.opts.Provider.Name(), e.opts.Model, "success",
				time.Since(start).Seconds(), chunk.InputTokens, chunk.OutputTokens)
		}
	}
	return msg, nil
}

// dispatchAll gates the step's tool calls and executes the approved ones
// in parallel under the concurrency bound. It reports whether any call is
// paused on an interrupt. Results land in call order as a single tool
// message; pending calls get no result, which is exactly how a restart
// rediscovers them.
func (e *Engine) dispatchAll(ctx context.Context, rs *runState, calls []models.ToolCall) (bool, error) {
	interrupted := false
	var approved []models.ToolCall

	for _, call := range calls {
		call := call
		rs.emit(models.Event{Type: models.EventToolCall, ToolCall: &call})

		if e.opts.Gate.Check(call) == DecisionPending {
			e.opts.Metrics.RecordInterrupt("pending")
			interrupted = true
			continue
		}
		approved = append(approved, call)
	}
	if len(approved) == 0 {
		return interrupted, nil
	}

	results := make([]models.ToolResult, len(approved))
	sem := make(chan struct{}, e.opts.ToolConcurrency)
	var wg sync.WaitGroup
	for i, call := range approved {
		wg.Add(1)
		go func(idx int, call models.ToolCall) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = models.ToolResult{
					ToolCallID: call.ID,
					Content:    "Error: cancelled before execution",
					IsError:    true,
				}
				return
			}
			results[idx] = e.dispatch(ctx, rs, call, "")
		}(i, call)
	}
	wg.Wait()

	for i := range results {
		rs.emit(models.Event{Type: models.EventToolResult, ToolResult: &results[i]})
	}
	rs.messages = append(rs.messages, &models.Message{
		ID:          uuid.NewString(),
		Role:        models.RoleTool,
		ToolResults: results,
		CreatedAt:   time.Now(),
	})
	return interrupted, nil
}

// dispatch executes one approved call and runs its result through
// eviction. subagentID tags workspace events raised by the tool.
func (e *Engine) dispatch(ctx context.Context, rs *runState, call models.ToolCall, subagentID string) models.ToolResult {
	toolCtx := WithEmitter(ctx, func(ev models.Event) {
		if ev.SubagentID == "" {
			ev.SubagentID = subagentID
		}
		rs.emit(ev)
	})

	result := e.executor.Execute(toolCtx, call)

	content, evicted, err := e.opts.Evictor.Process(ctx, call.Name, result.Content)
	if err != nil {
		// Spilling failed; the transcript keeps the full result rather
		// than losing it.
		e.logger.Warn("result eviction failed", "tool", call.Name, "error", err)
		return result
	}
	if evicted != nil {
		result.Content = content
		e.opts.Metrics.RecordEviction(call.Name)
		rs.emit(models.Event{
			Type:       models.EventResultEvicted,
			SubagentID: subagentID,
			Compaction: &models.CompactionEvent{Path: evicted.Path, EvictedTokens: evicted.Tokens},
		})
	}
	return result
}

func (e *Engine) maybeCompact(ctx context.Context, rs *runState) error {
	if e.opts.Summarizer == nil || !e.opts.Summarizer.ShouldCompact(rs.messages) {
		return nil
	}
	compacted, info, err := e.opts.Summarizer.Compact(ctx, rs.messages)
	if err != nil {
		return err
	}
	if info == nil {
		return nil
	}
	rs.messages = compacted
	e.opts.Metrics.RecordCompaction()
	rs.emit(models.Event{
		Type: models.EventTranscriptCompacted,
		Compaction: &models.CompactionEvent{
			ReplacedMsgs:    info.Dropped,
			RetainedMsgs:    len(compacted) - 1,
			EstimatedTokens: info.TokensAfter,
		},
	})
	return nil
}

// save checkpoints the thread at the current step. Ephemeral runs (no
// thread ID) and engines without a checkpoint store skip it.
func (e *Engine) save(ctx context.Context, rs *runState) error {
	if rs.threadID == "" || e.opts.Checkpoints == nil {
		return nil
	}
	cp := &models.Checkpoint{
		ThreadID:  rs.threadID,
		Step:      rs.step,
		Messages:  rs.messages,
		State:     e.workspaceState(),
		CreatedAt: time.Now(),
	}
	if err := e.opts.Checkpoints.Save(ctx, cp); err != nil {
		e.opts.Metrics.RecordCheckpoint("store", "error")
		return fmt.Errorf("save checkpoint: %w", err)
	}
	e.opts.Metrics.RecordCheckpoint("store", "success")
	rs.emit(models.Event{Type: models.EventCheckpointSaved})
	return nil
}

// workspaceState captures the checkpointable workspace view: file contents
// when the backend is snapshot-capable, plus the todo list. Durable
// backends (disk, KV) persist themselves and contribute only todos.
func (e *Engine) workspaceState() models.WorkspaceState {
	state := models.WorkspaceState{Todos: e.todos.Items()}
	snap, ok := e.opts.Workspace.(vfs.Snapshotter)
	if !ok {
		return state
	}
	files := snap.Snapshot()
	if len(files) == 0 {
		return state
	}
	state.Files = make(map[string]models.FileRecord, len(files))
	now := time.Now()
	for path, content := range files {
		state.Files[path] = models.FileRecord{
			Content:   content,
			LineCount: vfs.CountLines(content),
			UpdatedAt: now,
		}
	}
	return state
}

func (e *Engine) emitPending(rs *runState) {
	for _, id := range e.opts.Gate.Pending() {
		call, ok := e.opts.Gate.PendingCall(id)
		if !ok {
			continue
		}
		rs.emit(models.Event{
			Type: models.EventInterruptNeeded,
			Interrupt: &models.InterruptEvent{
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Input:      string(call.Input),
			},
		})
	}
}

func (e *Engine) finish(rs *runState) {
	rs.emit(models.Event{
		Type: models.EventDone,
		Done: &models.DoneEvent{
			Messages: models.CloneMessages(rs.messages),
			State:    e.workspaceState(),
			Step:     rs.step,
		},
	})
}
