// Package checkpoint persists per-thread snapshots of transcript, workspace
// state, and step counter so a run can resume across process restarts.
package checkpoint

import (
	"context"
	"errors"

	"github.com/haasonsaas/conductor/pkg/models"
)

var (
	// ErrNotFound indicates no checkpoint exists for the thread. Callers
	// treat it as "no prior state", not as a fatal condition.
	ErrNotFound = errors.New("thread not found")

	// ErrStaleStep indicates a save whose step is not greater than the
	// last persisted step for the thread. All store variants reject
	// out-of-order steps; the caller owns step incrementing.
	ErrStaleStep = errors.New("checkpoint step not greater than last saved step")
)

// Store persists one record per thread. Save replaces the prior record
// atomically; Load returns the latest checkpoint for the thread.
type Store interface {
	Save(ctx context.Context, cp *models.Checkpoint) error
	Load(ctx context.Context, threadID string) (*models.Checkpoint, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, threadID string) error
}

func validate(cp *models.Checkpoint) error {
	if cp == nil {
		return errors.New("checkpoint is required")
	}
	if cp.ThreadID == "" {
		return errors.New("thread id is required")
	}
	if cp.Step < 1 {
		return errors.New("checkpoint step starts at 1")
	}
	return nil
}
