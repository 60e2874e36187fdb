package vfs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/haasonsaas/conductor/pkg/models"
)

// Memory is the in-memory Store. Contents live for the process lifetime
// unless snapshotted into a checkpoint. Concurrent writers to the same path
// resolve last-write-wins; the write lock serializes the replacements so a
// record is never torn.
type Memory struct {
	mu    sync.RWMutex
	files map[string]models.FileRecord
}

// NewMemory creates an empty in-memory workspace.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]models.FileRecord)}
}

func (m *Memory) List(ctx context.Context, dir string) ([]Entry, error) {
	dir = NormalizePath(dir)
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}

	seen := map[string]Entry{}
	found := dir == "/"
	for path, rec := range m.files {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		found = true
		rest := strings.TrimPrefix(path, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			name := rest[:i]
			seen[name] = Entry{Name: name, IsDir: true}
		} else {
			seen[rest] = Entry{Name: rest, Size: int64(len(rec.Content))}
		}
	}
	if !found {
		return nil, fmt.Errorf("directory %s: %w", dir, ErrNotFound)
	}
	return sortedEntries(seen), nil
}

func (m *Memory) Read(ctx context.Context, path string) (string, error) {
	raw, err := m.ReadRaw(ctx, path)
	if err != nil {
		return "", err
	}
	return FormatNumbered(raw), nil
}

func (m *Memory) ReadRaw(ctx context.Context, path string) (string, error) {
	path = NormalizePath(path)
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.files[path]
	if !ok {
		return "", fmt.Errorf("file %s: %w", path, ErrNotFound)
	}
	return rec.Content, nil
}

func (m *Memory) Write(ctx context.Context, path, content string) error {
	path = NormalizePath(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = models.FileRecord{
		Content:   content,
		LineCount: CountLines(content),
		UpdatedAt: time.Now(),
	}
	return nil
}

func (m *Memory) Edit(ctx context.Context, path, find, replace string, replaceAll bool) (EditResult, error) {
	path = NormalizePath(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.files[path]
	if !ok {
		return EditResult{}, fmt.Errorf("file %s: %w", path, ErrNotFound)
	}
	updated, n, err := applyEdit(rec.Content, find, replace, replaceAll)
	if err != nil {
		return EditResult{}, err
	}
	m.files[path] = models.FileRecord{
		Content:   updated,
		LineCount: CountLines(updated),
		UpdatedAt: time.Now(),
	}
	return EditResult{Path: path, Replacements: n, OldContent: rec.Content, NewContent: updated}, nil
}

func (m *Memory) Glob(ctx context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return globPaths(m.paths(), pattern)
}

func (m *Memory) Grep(ctx context.Context, pattern, pathPrefix string) ([]GrepMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []GrepMatch
	for _, path := range m.paths() {
		if pathPrefix != "" && !underPrefix(path, pathPrefix) {
			continue
		}
		out = append(out, grepLines(path, m.files[path].Content, pattern)...)
	}
	return out, nil
}

// Snapshot exports the file map for checkpointing.
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.files))
	for path, rec := range m.files {
		out[path] = rec.Content
	}
	return out
}

// Restore replaces the file map from a checkpoint snapshot.
func (m *Memory) Restore(files map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = make(map[string]models.FileRecord, len(files))
	for path, content := range files {
		m.files[NormalizePath(path)] = models.FileRecord{
			Content:   content,
			LineCount: CountLines(content),
		}
	}
}

func (m *Memory) paths() []string {
	out := make([]string, 0, len(m.files))
	for path := range m.files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func sortedEntries(seen map[string]Entry) []Entry {
	out := make([]Entry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func underPrefix(path, prefix string) bool {
	prefix = NormalizePath(prefix)
	if prefix == "/" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func globPaths(paths []string, pattern string) ([]string, error) {
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}
	var out []string
	for _, path := range paths {
		ok, err := doublestar.Match(pattern, path)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		if ok {
			out = append(out, path)
		}
	}
	return out, nil
}
