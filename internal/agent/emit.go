package agent

import (
	"context"
	"time"

	"github.com/haasonsaas/conductor/pkg/models"
)

// Emitter delivers engine events in order. The engine installs one on the
// context it passes to tools so they can surface workspace mutations
// (file writes, todo changes, command executions) into the run's stream.
type Emitter func(models.Event)

type emitterKey struct{}

// WithEmitter returns a context carrying emit.
func WithEmitter(ctx context.Context, emit Emitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, emit)
}

// Emit sends an event through the context's emitter, stamping the time.
// Without an emitter (tools under test) it is a no-op.
func Emit(ctx context.Context, ev models.Event) {
	emit, ok := ctx.Value(emitterKey{}).(Emitter)
	if !ok || emit == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	emit(ev)
}
