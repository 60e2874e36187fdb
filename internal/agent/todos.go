package agent

import (
	"fmt"
	"sync"

	"github.com/haasonsaas/conductor/pkg/models"
)

// TodoList is the thread's shared task plan. The write_todos tool replaces
// it wholesale; sub-agents read it through the same instance.
type TodoList struct {
	mu    sync.RWMutex
	items []models.Todo
}

// NewTodoList creates a list seeded with items, typically from a restored
// checkpoint.
func NewTodoList(items []models.Todo) *TodoList {
	l := &TodoList{}
	if len(items) > 0 {
		l.items = append(l.items, items...)
	}
	return l
}

// Set replaces the list. At most one item may be in_progress; a second one
// is an error so the model keeps its plan honest.
func (l *TodoList) Set(items []models.Todo) error {
	inProgress := 0
	for i, item := range items {
		if item.ID == "" {
			return fmt.Errorf("todo %d: missing id", i)
		}
		if item.Status == models.TodoInProgress {
			inProgress++
		}
	}
	if inProgress > 1 {
		return fmt.Errorf("%d todos in_progress, at most 1 allowed", inProgress)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]models.Todo(nil), items...)
	return nil
}

// Items returns a copy of the current list.
func (l *TodoList) Items() []models.Todo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Todo(nil), l.items...)
}
