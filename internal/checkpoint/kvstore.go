package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/conductor/internal/kv"
	"github.com/haasonsaas/conductor/pkg/models"
)

const threadPrefix = "threads/"

// KVStore delegates checkpoint persistence to an injected key-value
// capability.
type KVStore struct {
	store kv.Store
}

// NewKVStore creates a checkpoint store over the given key-value backend.
func NewKVStore(store kv.Store) *KVStore {
	return &KVStore{store: store}
}

func (s *KVStore) Save(ctx context.Context, cp *models.Checkpoint) error {
	if err := validate(cp); err != nil {
		return err
	}
	if prev, err := s.Load(ctx, cp.ThreadID); err == nil && cp.Step <= prev.Step {
		return fmt.Errorf("thread %s step %d after %d: %w", cp.ThreadID, cp.Step, prev.Step, ErrStaleStep)
	}

	record := cp.Clone()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := s.store.Set(ctx, threadPrefix+cp.ThreadID, data); err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	return nil
}

func (s *KVStore) Load(ctx context.Context, threadID string) (*models.Checkpoint, error) {
	data, err := s.store.Get(ctx, threadPrefix+threadID)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint for thread %s: %w", threadID, err)
	}
	return &cp, nil
}

func (s *KVStore) Delete(ctx context.Context, threadID string) error {
	if _, err := s.store.Get(ctx, threadPrefix+threadID); errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	if err := s.store.Delete(ctx, threadPrefix+threadID); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func (s *KVStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.store.Keys(ctx, threadPrefix)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, strings.TrimPrefix(key, threadPrefix))
	}
	return out, nil
}
