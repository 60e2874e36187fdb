package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haasonsaas/conductor/internal/checkpoint"
	"github.com/haasonsaas/conductor/internal/vfs"
	"github.com/haasonsaas/conductor/pkg/models"
)

// scriptedProvider replays canned completion turns in order.
type scriptedProvider struct {
	mu    sync.Mutex
	turns [][]*CompletionChunk
	calls int
}

func (p *scriptedProvider) Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls >= len(p.turns) {
		return nil, errors.New("scripted provider exhausted")
	}
	turn := p.turns[p.calls]
	p.calls++

	ch := make(chan *CompletionChunk, len(turn)+1)
	for _, c := range turn {
		ch <- c
	}
	ch <- &CompletionChunk{Done: true}
	close(ch)
	return ch, nil
}

func (p *scriptedProvider) Name() string    { return "scripted" }
func (p *scriptedProvider) Models() []Model { return nil }

func textTurn(text string) []*CompletionChunk {
	return []*CompletionChunk{{Text: text}}
}

func toolTurn(id, name, input string) []*CompletionChunk {
	return []*CompletionChunk{{ToolCall: &models.ToolCall{ID: id, Name: name, Input: json.RawMessage(input)}}}
}

func drain(t *testing.T, ch <-chan models.Event) []models.Event {
	t.Helper()
	var events []models.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func eventsOfType(events []models.Event, typ models.EventType) []models.Event {
	var out []models.Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func terminal(t *testing.T, events []models.Event) models.Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	return events[len(events)-1]
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Workspace == nil {
		opts.Workspace = vfs.NewMemory()
	}
	e, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEngineTextOnlyRun(t *testing.T) {
	cps := checkpoint.NewMemoryStore()
	e := newTestEngine(t, Options{
		Provider:    &scriptedProvider{turns: [][]*CompletionChunk{textTurn("hello there")}},
		Checkpoints: cps,
	})

	ch, err := e.Run(context.Background(), Request{ThreadID: "t1", Input: "hi"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	events := drain(t, ch)

	last := terminal(t, events)
	if last.Type != models.EventDone {
		t.Fatalf("terminal event = %s, want done", last.Type)
	}
	if last.Done.Step != 1 {
		t.Errorf("final step = %d, want 1", last.Done.Step)
	}
	if n := len(last.Done.Messages); n != 2 {
		t.Fatalf("transcript has %d messages, want 2", n)
	}
	if got := last.Done.Messages[1].Content; got != "hello there" {
		t.Errorf("assistant said %q", got)
	}

	cp, err := cps.Load(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cp.Step != 1 || len(cp.Messages) != 2 {
		t.Errorf("checkpoint step=%d messages=%d", cp.Step, len(cp.Messages))
	}
}

func TestEngineEphemeralRunSkipsCheckpoints(t *testing.T) {
	cps := checkpoint.NewMemoryStore()
	e := newTestEngine(t, Options{
		Provider:    &scriptedProvider{turns: [][]*CompletionChunk{textTurn("ok")}},
		Checkpoints: cps,
	})

	events := drain(t, mustRun(t, e, Request{Input: "hi"}))
	if terminal(t, events).Type != models.EventDone {
		t.Fatal("run failed")
	}
	if saved := eventsOfType(events, models.EventCheckpointSaved); len(saved) != 0 {
		t.Errorf("%d checkpoint saves without a thread ID", len(saved))
	}
	if threads, _ := cps.List(context.Background()); len(threads) != 0 {
		t.Errorf("store has threads %v", threads)
	}
}

func mustRun(t *testing.T, e *Engine, req Request) <-chan models.Event {
	t.Helper()
	ch, err := e.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return ch
}

func TestEngineToolDispatch(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "echo", schema: echoSchema,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			return &ToolOutput{Content: "echoed"}, nil
		}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	e := newTestEngine(t, Options{
		Provider: &scriptedProvider{turns: [][]*CompletionChunk{
			toolTurn("c1", "echo", `{"text":"x"}`),
			textTurn("all done"),
		}},
		Registry:    r,
		Checkpoints: checkpoint.NewMemoryStore(),
	})

	events := drain(t, mustRun(t, e, Request{ThreadID: "t1", Input: "go"}))
	last := terminal(t, events)
	if last.Type != models.EventDone {
		t.Fatalf("terminal = %s (%s)", last.Type, last.Err)
	}
	if last.Done.Step != 2 {
		t.Errorf("final step = %d, want 2", last.Done.Step)
	}

	results := eventsOfType(events, models.EventToolResult)
	if len(results) != 1 || results[0].ToolResult.Content != "echoed" {
		t.Fatalf("bad tool results: %+v", results)
	}

	// Transcript: user, assistant(tool call), tool(result), assistant(text).
	msgs := last.Done.Messages
	if len(msgs) != 4 || msgs[2].Role != models.RoleTool {
		t.Errorf("unexpected transcript shape: %d messages", len(msgs))
	}
}

func TestEngineToolFailureContinuesLoop(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "flaky", schema: `{"type":"object"}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			return nil, errors.New("disk on fire")
		}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	e := newTestEngine(t, Options{
		Provider: &scriptedProvider{turns: [][]*CompletionChunk{
			toolTurn("c1", "flaky", `{}`),
			textTurn("recovered"),
		}},
		Registry: r,
	})

	events := drain(t, mustRun(t, e, Request{Input: "go"}))
	last := terminal(t, events)
	if last.Type != models.EventDone {
		t.Fatalf("tool failure killed the run: %s %s", last.Type, last.Err)
	}
	results := eventsOfType(events, models.EventToolResult)
	if len(results) != 1 || !results[0].ToolResult.IsError {
		t.Fatalf("failure not surfaced as error result: %+v", results)
	}
	if !strings.Contains(results[0].ToolResult.Content, "disk on fire") {
		t.Errorf("result lost the cause: %q", results[0].ToolResult.Content)
	}
}

func TestEngineProviderErrorEmitsErrorEvent(t *testing.T) {
	cps := checkpoint.NewMemoryStore()
	e := newTestEngine(t, Options{
		Provider:    &scriptedProvider{}, // exhausted immediately
		Checkpoints: cps,
	})

	events := drain(t, mustRun(t, e, Request{ThreadID: "t1", Input: "hi"}))
	last := terminal(t, events)
	if last.Type != models.EventError {
		t.Fatalf("terminal = %s, want error", last.Type)
	}
	// A failed step never checkpoints.
	if _, err := cps.Load(context.Background(), "t1"); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("Load after failed step: %v, want ErrNotFound", err)
	}
}

func TestEngineInterruptPausesRun(t *testing.T) {
	var executed bool
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "execute", schema: `{"type":"object"}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			executed = true
			return &ToolOutput{Content: "ran"}, nil
		}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	e := newTestEngine(t, Options{
		Provider: &scriptedProvider{turns: [][]*CompletionChunk{
			toolTurn("c1", "execute", `{}`),
		}},
		Registry:    r,
		Gate:        NewGate(&GatePolicy{RequireApproval: []string{"execute"}}),
		Checkpoints: checkpoint.NewMemoryStore(),
	})

	events := drain(t, mustRun(t, e, Request{ThreadID: "t1", Input: "run it"}))
	interrupts := eventsOfType(events, models.EventInterruptNeeded)
	if len(interrupts) != 1 || interrupts[0].Interrupt.ToolCallID != "c1" {
		t.Fatalf("bad interrupt events: %+v", interrupts)
	}
	if executed {
		t.Fatal("gated tool ran before approval")
	}
	if terminal(t, events).Type != models.EventDone {
		t.Fatal("paused run should still terminate with done")
	}
}

func TestEngineInterruptApprovalResumesAcrossRestart(t *testing.T) {
	cps := checkpoint.NewMemoryStore()
	var executed bool
	makeEngine := func(turns [][]*CompletionChunk) *Engine {
		r := NewRegistry()
		if err := r.Register(&stubTool{name: "execute", schema: `{"type":"object"}`,
			execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
				executed = true
				return &ToolOutput{Content: "command output"}, nil
			}}); err != nil {
			t.Fatalf("Register: %v", err)
		}
		return newTestEngine(t, Options{
			Provider:    &scriptedProvider{turns: turns},
			Registry:    r,
			Gate:        NewGate(&GatePolicy{RequireApproval: []string{"execute"}}),
			Checkpoints: cps,
		})
	}

	// First process: model asks for a gated tool, run pauses.
	first := makeEngine([][]*CompletionChunk{toolTurn("c1", "execute", `{}`)})
	drain(t, mustRun(t, first, Request{ThreadID: "t1", Input: "run it"}))

	// Second process: fresh engine, pending state comes from the checkpoint.
	second := makeEngine([][]*CompletionChunk{textTurn("finished")})
	events := drain(t, mustRun(t, second, Request{
		ThreadID:    "t1",
		Resolutions: map[string]Resolution{"c1": {Approve: true}},
	}))

	if !executed {
		t.Fatal("approved tool never ran")
	}
	last := terminal(t, events)
	if last.Type != models.EventDone {
		t.Fatalf("terminal = %s (%s)", last.Type, last.Err)
	}
	results := eventsOfType(events, models.EventToolResult)
	if len(results) != 1 || results[0].ToolResult.Content != "command output" {
		t.Fatalf("bad results: %+v", results)
	}
	// The run paused at step 1, so resolution application is step 2 and
	// its events carry the step they were checkpointed under.
	if results[0].Step != 2 {
		t.Errorf("resolution result stamped step %d, want 2", results[0].Step)
	}
	cp, err := cps.Load(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cp.Step != 3 {
		t.Errorf("final checkpoint step = %d, want 3", cp.Step)
	}
}

func TestEngineRejectsInputWhileInterruptsPending(t *testing.T) {
	cps := checkpoint.NewMemoryStore()
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "execute", schema: `{"type":"object"}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			return &ToolOutput{Content: "ran"}, nil
		}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	e := newTestEngine(t, Options{
		Provider: &scriptedProvider{turns: [][]*CompletionChunk{
			toolTurn("c1", "execute", `{}`),
		}},
		Registry:    r,
		Gate:        NewGate(&GatePolicy{RequireApproval: []string{"execute"}}),
		Checkpoints: cps,
	})

	drain(t, mustRun(t, e, Request{ThreadID: "t1", Input: "run it"}))
	before, err := cps.Load(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// New input without resolutions cannot proceed past the interrupt.
	events := drain(t, mustRun(t, e, Request{ThreadID: "t1", Input: "also do this"}))

	if pending := eventsOfType(events, models.EventInterruptNeeded); len(pending) != 1 {
		t.Errorf("expected interrupt re-emitted, got %d", len(pending))
	}
	last := terminal(t, events)
	if last.Type != models.EventError || !strings.Contains(last.Err, "pending interrupts") {
		t.Fatalf("terminal = %s (%s), want pending-interrupts error", last.Type, last.Err)
	}

	after, err := cps.Load(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if after.Step != before.Step || len(after.Messages) != len(before.Messages) {
		t.Errorf("rejected input mutated the checkpoint: step %d→%d, messages %d→%d",
			before.Step, after.Step, len(before.Messages), len(after.Messages))
	}
}

func TestEngineInterruptRejectionSynthesizesResult(t *testing.T) {
	cps := checkpoint.NewMemoryStore()
	var executed bool
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "execute", schema: `{"type":"object"}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			executed = true
			return &ToolOutput{Content: "ran"}, nil
		}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	e := newTestEngine(t, Options{
		Provider: &scriptedProvider{turns: [][]*CompletionChunk{
			toolTurn("c1", "execute", `{}`),
			textTurn("understood, skipping"),
		}},
		Registry:    r,
		Gate:        NewGate(&GatePolicy{RequireApproval: []string{"execute"}}),
		Checkpoints: cps,
	})

	drain(t, mustRun(t, e, Request{ThreadID: "t1", Input: "run it"}))
	events := drain(t, mustRun(t, e, Request{
		ThreadID:    "t1",
		Resolutions: map[string]Resolution{"c1": {Approve: false, Reason: "not today"}},
	}))

	if executed {
		t.Fatal("rejected tool ran")
	}
	results := eventsOfType(events, models.EventToolResult)
	if len(results) != 1 {
		t.Fatalf("want 1 synthesized result, got %d", len(results))
	}
	got := results[0].ToolResult
	if !got.IsError || !strings.Contains(got.Content, "cancelled") || !strings.Contains(got.Content, "not today") {
		t.Errorf("bad synthesized result: %+v", got)
	}
	if terminal(t, events).Type != models.EventDone {
		t.Fatal("run did not complete after rejection")
	}
}

func TestEngineEditedResolutionUsesNewInput(t *testing.T) {
	var gotInput string
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "execute",
		schema: `{"type":"object","properties":{"command":{"type":"string"}}}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			gotInput = string(params)
			return &ToolOutput{Content: "ok"}, nil
		}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	e := newTestEngine(t, Options{
		Provider: &scriptedProvider{turns: [][]*CompletionChunk{
			toolTurn("c1", "execute", `{"command":"rm -rf /"}`),
			textTurn("done"),
		}},
		Registry:    r,
		Gate:        NewGate(&GatePolicy{RequireApproval: []string{"execute"}}),
		Checkpoints: checkpoint.NewMemoryStore(),
	})

	drain(t, mustRun(t, e, Request{ThreadID: "t1", Input: "clean up"}))
	drain(t, mustRun(t, e, Request{
		ThreadID: "t1",
		Resolutions: map[string]Resolution{
			"c1": {Approve: true, Input: json.RawMessage(`{"command":"ls"}`)},
		},
	}))

	if gotInput != `{"command":"ls"}` {
		t.Errorf("tool saw %q, want edited input", gotInput)
	}
}

func TestEngineRestoresWorkspaceFromCheckpoint(t *testing.T) {
	cps := checkpoint.NewMemoryStore()

	ws1 := vfs.NewMemory()
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "write", schema: `{"type":"object"}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			if err := ws1.Write(ctx, "/notes.md", "remember this"); err != nil {
				return nil, err
			}
			return &ToolOutput{Content: "written"}, nil
		}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	first := newTestEngine(t, Options{
		Provider: &scriptedProvider{turns: [][]*CompletionChunk{
			toolTurn("c1", "write", `{}`),
			textTurn("saved"),
		}},
		Registry:    r,
		Workspace:   ws1,
		Checkpoints: cps,
	})
	drain(t, mustRun(t, first, Request{ThreadID: "t1", Input: "take a note"}))

	// New process: empty workspace, restored from the checkpoint.
	ws2 := vfs.NewMemory()
	second := newTestEngine(t, Options{
		Provider:    &scriptedProvider{turns: [][]*CompletionChunk{textTurn("hello again")}},
		Workspace:   ws2,
		Checkpoints: cps,
	})
	events := drain(t, mustRun(t, second, Request{ThreadID: "t1", Input: "hi"}))
	if terminal(t, events).Type != models.EventDone {
		t.Fatal("resume failed")
	}

	content, err := ws2.ReadRaw(context.Background(), "/notes.md")
	if err != nil {
		t.Fatalf("ReadRaw after restore: %v", err)
	}
	if content != "remember this" {
		t.Errorf("restored content %q", content)
	}
}

func TestEngineCancellationEmitsErrorWithoutCheckpoint(t *testing.T) {
	cps := checkpoint.NewMemoryStore()
	e := newTestEngine(t, Options{
		Provider:    &scriptedProvider{turns: [][]*CompletionChunk{textTurn("never")}},
		Checkpoints: cps,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch, err := e.Run(ctx, Request{ThreadID: "t1", Input: "hi"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	events := drain(t, ch)
	if terminal(t, events).Type != models.EventError {
		t.Fatal("cancelled run must end in an error event")
	}
	if _, err := cps.Load(context.Background(), "t1"); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("cancelled run wrote a checkpoint: %v", err)
	}
}

func TestEngineMaxSteps(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "spin", schema: `{"type":"object"}`}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	turns := make([][]*CompletionChunk, 10)
	for i := range turns {
		turns[i] = toolTurn("c1", "spin", `{}`)
	}
	e := newTestEngine(t, Options{
		Provider: &scriptedProvider{turns: turns},
		Registry: r,
		MaxSteps: 3,
	})

	events := drain(t, mustRun(t, e, Request{Input: "loop forever"}))
	last := terminal(t, events)
	if last.Type != models.EventError || !strings.Contains(last.Err, "max steps") {
		t.Errorf("terminal = %s (%s), want max steps error", last.Type, last.Err)
	}
}

func TestEngineDispatchesToolCallsInParallel(t *testing.T) {
	// Each call unblocks only when its partner is in flight at the same
	// time; serialized dispatch leaves the first call waiting alone.
	barrier := make(chan struct{})
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "echo", schema: echoSchema,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			select {
			case barrier <- struct{}{}:
			case <-barrier:
			case <-time.After(2 * time.Second):
				return Errorf("no concurrent partner"), nil
			}
			return &ToolOutput{Content: "met"}, nil
		}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	e := newTestEngine(t, Options{
		Provider: &scriptedProvider{turns: [][]*CompletionChunk{
			{
				{ToolCall: &models.ToolCall{ID: "c1", Name: "echo", Input: json.RawMessage(`{"text":"a"}`)}},
				{ToolCall: &models.ToolCall{ID: "c2", Name: "echo", Input: json.RawMessage(`{"text":"b"}`)}},
			},
			textTurn("done"),
		}},
		Registry: r,
	})

	events := drain(t, mustRun(t, e, Request{Input: "go"}))
	if terminal(t, events).Type != models.EventDone {
		t.Fatalf("terminal event = %s", terminal(t, events).Type)
	}

	results := eventsOfType(events, models.EventToolResult)
	if len(results) != 2 {
		t.Fatalf("expected 2 tool results, got %d", len(results))
	}
	// Results stay in call order regardless of completion order.
	if results[0].ToolResult.ToolCallID != "c1" || results[1].ToolResult.ToolCallID != "c2" {
		t.Errorf("result order: %s, %s", results[0].ToolResult.ToolCallID, results[1].ToolResult.ToolCallID)
	}
	for _, res := range results {
		if res.ToolResult.IsError || res.ToolResult.Content != "met" {
			t.Errorf("result %s: %+v", res.ToolResult.ToolCallID, res.ToolResult)
		}
	}
}

func TestEngineEventOrderWithinStep(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "echo", schema: echoSchema,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			return &ToolOutput{Content: "out"}, nil
		}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	e := newTestEngine(t, Options{
		Provider: &scriptedProvider{turns: [][]*CompletionChunk{
			toolTurn("c1", "echo", `{"text":"x"}`),
			textTurn("done"),
		}},
		Registry: r,
	})

	events := drain(t, mustRun(t, e, Request{Input: "go"}))

	ordered := []models.EventType{}
	for _, ev := range events {
		switch ev.Type {
		case models.EventStepStarted, models.EventToolCall, models.EventToolResult, models.EventStepFinished:
			ordered = append(ordered, ev.Type)
		}
	}
	want := []models.EventType{
		models.EventStepStarted,
		models.EventToolCall, models.EventToolResult,
		models.EventStepFinished,
		models.EventStepStarted,
		models.EventStepFinished,
	}
	if len(ordered) != len(want) {
		t.Fatalf("event sequence %v, want %v", ordered, want)
	}
	for i := range want {
		if ordered[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s", i, ordered[i], want[i])
		}
	}
}

func TestEngineSubagentSharesWorkspace(t *testing.T) {
	ws := vfs.NewMemory()
	var e *Engine

	r := NewRegistry()
	if err := r.Register(&stubTool{name: "task",
		schema: `{"type":"object","properties":{"description":{"type":"string"}},"required":["description"]}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			summary, err := e.Subagent(ctx, "delegated work")
			if err != nil {
				return Errorf("%v", err), nil
			}
			return &ToolOutput{Content: summary}, nil
		}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&stubTool{name: "write", schema: `{"type":"object"}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
			if err := ws.Write(ctx, "/sub.txt", "from subagent"); err != nil {
				return nil, err
			}
			return &ToolOutput{Content: "ok"}, nil
		}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	e = newTestEngine(t, Options{
		Provider: &scriptedProvider{turns: [][]*CompletionChunk{
			toolTurn("c1", "task", `{"description":"delegated work"}`), // parent asks for delegation
			toolTurn("s1", "write", `{}`),                              // subagent writes
			textTurn("subagent summary"),                               // subagent finishes
			textTurn("parent done"),                                    // parent finishes
		}},
		Registry:  r,
		Workspace: ws,
	})

	events := drain(t, mustRun(t, e, Request{Input: "delegate"}))
	if terminal(t, events).Type != models.EventDone {
		t.Fatalf("run failed: %+v", terminal(t, events))
	}

	if got, err := ws.ReadRaw(context.Background(), "/sub.txt"); err != nil || got != "from subagent" {
		t.Errorf("subagent write missing: %q %v", got, err)
	}

	started := eventsOfType(events, models.EventSubagentStarted)
	finished := eventsOfType(events, models.EventSubagentFinished)
	if len(started) != 1 || len(finished) != 1 {
		t.Fatalf("subagent lifecycle events: %d started, %d finished", len(started), len(finished))
	}
	if started[0].SubagentID == "" {
		t.Error("subagent events not tagged")
	}

	// Parent saw the subagent's summary as the task tool's result.
	for _, ev := range eventsOfType(events, models.EventToolResult) {
		if ev.ToolResult.ToolCallID == "c1" && ev.ToolResult.Content != "subagent summary" {
			t.Errorf("task result %q", ev.ToolResult.Content)
		}
	}
}
