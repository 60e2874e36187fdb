package models

import "time"

// TodoStatus tracks the lifecycle of a planning item.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
	TodoCancelled  TodoStatus = "cancelled"
)

// Todo is a single planning item. At most one item should be in_progress at
// a time; the planning tool enforces this as policy, not structure.
type Todo struct {
	ID      string     `json:"id"`
	Content string     `json:"content"`
	Status  TodoStatus `json:"status"`
}

// FileRecord holds the content of one virtual file. Edits replace the whole
// record after validation; a record is never partially written.
type FileRecord struct {
	Content   string    `json:"content"`
	LineCount int       `json:"line_count,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// WorkspaceState is the agent-visible workspace snapshot carried in
// checkpoints: a path-keyed file map plus the ordered todo list.
type WorkspaceState struct {
	Files map[string]FileRecord `json:"files,omitempty"`
	Todos []Todo                `json:"todos,omitempty"`
}

// Clone returns a deep copy of the workspace state.
func (s WorkspaceState) Clone() WorkspaceState {
	out := WorkspaceState{}
	if s.Files != nil {
		out.Files = make(map[string]FileRecord, len(s.Files))
		for k, v := range s.Files {
			out.Files[k] = v
		}
	}
	if s.Todos != nil {
		out.Todos = append([]Todo(nil), s.Todos...)
	}
	return out
}

// Checkpoint is a durable snapshot of one thread: transcript, workspace
// state, and the step counter. Checkpoints are immutable once written; a
// later save for the same thread replaces the record wholesale.
type Checkpoint struct {
	ThreadID  string         `json:"thread_id"`
	Step      int            `json:"step"`
	Messages  []*Message     `json:"messages"`
	State     WorkspaceState `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
}

// Clone returns a deep copy of the checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Messages = CloneMessages(c.Messages)
	clone.State = c.State.Clone()
	return &clone
}
