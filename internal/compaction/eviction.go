package compaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/haasonsaas/conductor/internal/vfs"
)

// EvictionDir is the reserved workspace namespace for spilled tool
// results. Ordinary agent writes never target it; generated file names keep
// evictions collision-free.
const EvictionDir = "/large_tool_results"

// DefaultMaxResultTokens is the eviction threshold applied when the
// configuration does not set one.
const DefaultMaxResultTokens = 2000

// Evictor spills oversized tool results to the workspace, substituting a
// short pointer message in the transcript.
type Evictor struct {
	store     vfs.Store
	maxTokens int
}

// NewEvictor creates an evictor writing to store. A nil store disables
// eviction: results pass through untouched. maxTokens <= 0 uses
// DefaultMaxResultTokens.
func NewEvictor(store vfs.Store, maxTokens int) *Evictor {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxResultTokens
	}
	return &Evictor{store: store, maxTokens: maxTokens}
}

// Eviction describes one spilled result.
type Eviction struct {
	Path   string
	Tokens int
}

// Process returns the transcript text for a tool result. Results under the
// threshold (or when no store is configured) come back verbatim with a nil
// Eviction; oversized results are written under EvictionDir and replaced by
// a pointer naming the path.
func (e *Evictor) Process(ctx context.Context, toolName, result string) (string, *Eviction, error) {
	tokens := EstimateTokens(result)
	if e == nil || e.store == nil || tokens <= e.maxTokens {
		return result, nil, nil
	}

	path := fmt.Sprintf("%s/%s-%s.md", EvictionDir, toolName, uuid.NewString())
	if err := e.store.Write(ctx, path, result); err != nil {
		return "", nil, fmt.Errorf("evict tool result: %w", err)
	}

	pointer := fmt.Sprintf(
		"Result too large for context (~%d tokens). Full output saved to %s; use read_file or grep on that path to inspect it.",
		tokens, path,
	)
	return pointer, &Eviction{Path: path, Tokens: tokens}, nil
}
