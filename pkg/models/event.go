// Package models provides domain types for the Conductor execution core.
package models

import "time"

// EventType identifies the kind of engine event.
type EventType string

const (
	// Step lifecycle
	EventStepStarted  EventType = "step.started"
	EventStepFinished EventType = "step.finished"

	// Model output and tool dispatch
	EventText       EventType = "model.text"
	EventToolCall   EventType = "tool.call"
	EventToolResult EventType = "tool.result"

	// Workspace mutations
	EventFileWritten  EventType = "file.written"
	EventFileEdited   EventType = "file.edited"
	EventTodosChanged EventType = "todos.changed"

	// Sandbox execution
	EventExecuteStarted  EventType = "execute.started"
	EventExecuteFinished EventType = "execute.finished"

	// Persistence
	EventCheckpointSaved  EventType = "checkpoint.saved"
	EventCheckpointLoaded EventType = "checkpoint.loaded"

	// Context compaction
	EventResultEvicted       EventType = "result.evicted"
	EventTranscriptCompacted EventType = "transcript.compacted"

	// Interrupts and delegation
	EventInterruptNeeded  EventType = "interrupt.needed"
	EventSubagentStarted  EventType = "subagent.started"
	EventSubagentFinished EventType = "subagent.finished"

	// Run terminal states
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Event is the single ordered signal stream emitted by an engine run.
// Events for a step are emitted in the order they logically occur within
// that step; events from concurrent sub-agents interleave but each
// sub-agent's own events stay internally ordered.
type Event struct {
	Type       EventType `json:"type"`
	Time       time.Time `json:"time"`
	ThreadID   string    `json:"thread_id,omitempty"`
	Step       int       `json:"step,omitempty"`
	SubagentID string    `json:"subagent_id,omitempty"`

	// Exactly one payload is non-nil for a given Type (Done/Error/text
	// types use the scalar fields below).
	Text       string           `json:"text,omitempty"`
	ToolCall   *ToolCall        `json:"tool_call,omitempty"`
	ToolResult *ToolResult      `json:"tool_result,omitempty"`
	File       *FileEvent       `json:"file,omitempty"`
	Todos      []Todo           `json:"todos,omitempty"`
	Execute    *ExecuteEvent    `json:"execute,omitempty"`
	Interrupt  *InterruptEvent  `json:"interrupt,omitempty"`
	Compaction *CompactionEvent `json:"compaction,omitempty"`
	Done       *DoneEvent       `json:"done,omitempty"`
	Err        string           `json:"error,omitempty"`
}

// FileEvent describes a workspace file mutation.
type FileEvent struct {
	Path    string `json:"path"`
	Created bool   `json:"created,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

// ExecuteEvent describes a sandbox command execution.
type ExecuteEvent struct {
	Command   string `json:"command"`
	ExitCode  int    `json:"exit_code,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// InterruptEvent signals that a gated tool call is paused awaiting an
// external decision.
type InterruptEvent struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	Input      string `json:"input,omitempty"`
}

// CompactionEvent describes a result eviction or transcript compaction.
type CompactionEvent struct {
	Path            string `json:"path,omitempty"`
	EvictedTokens   int    `json:"evicted_tokens,omitempty"`
	ReplacedMsgs    int    `json:"replaced_messages,omitempty"`
	RetainedMsgs    int    `json:"retained_messages,omitempty"`
	EstimatedTokens int    `json:"estimated_tokens,omitempty"`
}

// DoneEvent carries the final state and full working transcript of a run.
type DoneEvent struct {
	Messages []*Message     `json:"messages"`
	State    WorkspaceState `json:"state"`
	Step     int            `json:"step"`
}
