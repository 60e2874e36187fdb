package vfs

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Mount binds a path prefix to a backend store.
type Mount struct {
	Prefix string
	Store  Store
}

// Composite routes each operation to the backend with the longest matching
// path prefix, falling back to a default backend. Prefix matching is
// case-sensitive and respects path segment boundaries: a mount at
// "/workspace" serves "/workspace/foo.txt" but never "/workspace2/foo.txt".
type Composite struct {
	mounts   []Mount
	fallback Store
}

// NewComposite creates a prefix-routing store over the given mounts.
// Mounts are normalized and ordered longest-prefix-first at construction.
func NewComposite(fallback Store, mounts ...Mount) (*Composite, error) {
	if fallback == nil {
		return nil, fmt.Errorf("default backend is required")
	}
	normalized := make([]Mount, 0, len(mounts))
	seen := map[string]bool{}
	for _, m := range mounts {
		if m.Store == nil {
			return nil, fmt.Errorf("mount %q: backend is required", m.Prefix)
		}
		prefix := NormalizePath(m.Prefix)
		if prefix == "/" {
			return nil, fmt.Errorf("mount %q: use the default backend for the root", m.Prefix)
		}
		if seen[prefix] {
			return nil, fmt.Errorf("duplicate mount %q", prefix)
		}
		seen[prefix] = true
		normalized = append(normalized, Mount{Prefix: prefix, Store: m.Store})
	}
	sort.Slice(normalized, func(i, j int) bool {
		return len(normalized[i].Prefix) > len(normalized[j].Prefix)
	})
	return &Composite{mounts: normalized, fallback: fallback}, nil
}

// route returns the backend serving path and the path rewritten relative to
// the mount point.
func (c *Composite) route(path string) (Store, string) {
	normalized := NormalizePath(path)
	for _, m := range c.mounts {
		if normalized == m.Prefix || strings.HasPrefix(normalized, m.Prefix+"/") {
			rel := strings.TrimPrefix(normalized, m.Prefix)
			if rel == "" {
				rel = "/"
			}
			return m.Store, rel
		}
	}
	return c.fallback, normalized
}

func (c *Composite) List(ctx context.Context, dir string) ([]Entry, error) {
	store, rel := c.route(dir)
	entries, err := store.List(ctx, rel)
	if err != nil {
		return nil, err
	}
	// Mounts directly under dir appear as synthetic directories.
	normalized := NormalizePath(dir)
	prefix := normalized
	if prefix != "/" {
		prefix += "/"
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	for _, m := range c.mounts {
		if !strings.HasPrefix(m.Prefix, prefix) {
			continue
		}
		rest := strings.TrimPrefix(m.Prefix, prefix)
		name := rest
		if i := strings.Index(rest, "/"); i >= 0 {
			name = rest[:i]
		}
		if name != "" && !names[name] {
			names[name] = true
			entries = append(entries, Entry{Name: name, IsDir: true})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (c *Composite) Read(ctx context.Context, path string) (string, error) {
	store, rel := c.route(path)
	return store.Read(ctx, rel)
}

func (c *Composite) ReadRaw(ctx context.Context, path string) (string, error) {
	store, rel := c.route(path)
	return store.ReadRaw(ctx, rel)
}

func (c *Composite) Write(ctx context.Context, path, content string) error {
	store, rel := c.route(path)
	return store.Write(ctx, rel, content)
}

func (c *Composite) Edit(ctx context.Context, path, find, replace string, replaceAll bool) (EditResult, error) {
	store, rel := c.route(path)
	res, err := store.Edit(ctx, rel, find, replace, replaceAll)
	if err != nil {
		return EditResult{}, err
	}
	res.Path = NormalizePath(path)
	return res, nil
}

func (c *Composite) Glob(ctx context.Context, pattern string) ([]string, error) {
	out, err := c.fallback.Glob(ctx, pattern)
	if err != nil {
		return nil, err
	}
	for _, m := range c.mounts {
		// Patterns anchored under a mount point become mount-relative,
		// mirroring route; unanchored patterns span every backend as-is.
		sub := pattern
		if strings.HasPrefix(pattern, m.Prefix+"/") {
			sub = strings.TrimPrefix(pattern, m.Prefix)
		}
		matches, err := m.Store.Glob(ctx, sub)
		if err != nil {
			return nil, err
		}
		for _, p := range matches {
			out = append(out, NormalizePath(m.Prefix+p))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *Composite) Grep(ctx context.Context, pattern, pathPrefix string) ([]GrepMatch, error) {
	if pathPrefix != "" {
		store, rel := c.route(pathPrefix)
		matches, err := store.Grep(ctx, pattern, rel)
		if err != nil {
			return nil, err
		}
		return c.requalify(store, matches), nil
	}
	out, err := c.fallback.Grep(ctx, pattern, "")
	if err != nil {
		return nil, err
	}
	for _, m := range c.mounts {
		matches, err := m.Store.Grep(ctx, pattern, "")
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			match.Path = NormalizePath(m.Prefix + match.Path)
			out = append(out, match)
		}
	}
	return out, nil
}

// requalify maps backend-relative match paths back to composite paths.
func (c *Composite) requalify(store Store, matches []GrepMatch) []GrepMatch {
	for _, m := range c.mounts {
		if m.Store != store {
			continue
		}
		for i := range matches {
			matches[i].Path = NormalizePath(m.Prefix + matches[i].Path)
		}
		return matches
	}
	return matches
}
