package checkpoint

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/haasonsaas/conductor/pkg/models"
)

// MemoryStore is a thread-safe in-memory Store for testing and one-off runs.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*models.Checkpoint
}

// NewMemoryStore creates an empty in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string]*models.Checkpoint)}
}

func (s *MemoryStore) Save(ctx context.Context, cp *models.Checkpoint) error {
	if err := validate(cp); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.threads[cp.ThreadID]; ok && cp.Step <= prev.Step {
		return fmt.Errorf("thread %s step %d after %d: %w", cp.ThreadID, cp.Step, prev.Step, ErrStaleStep)
	}
	clone := cp.Clone()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	s.threads[cp.ThreadID] = clone
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, threadID string) (*models.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	return cp.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[threadID]; !ok {
		return fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	delete(s.threads, threadID)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.threads))
	for id := range s.threads {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
