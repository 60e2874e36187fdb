package vfs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/haasonsaas/conductor/internal/kv"
)

// KV is a Store that delegates to an injected key-value capability,
// namespacing file keys so unrelated data can share the same backend.
type KV struct {
	store     kv.Store
	namespace string
}

// NewKV creates a key-value-backed workspace under the given namespace.
// An empty namespace defaults to "files".
func NewKV(store kv.Store, namespace string) *KV {
	namespace = strings.Trim(namespace, "/")
	if namespace == "" {
		namespace = "files"
	}
	return &KV{store: store, namespace: namespace}
}

func (s *KV) key(path string) string {
	return s.namespace + NormalizePath(path)
}

func (s *KV) path(key string) string {
	return strings.TrimPrefix(key, s.namespace)
}

func (s *KV) List(ctx context.Context, dir string) ([]Entry, error) {
	dir = NormalizePath(dir)
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	keys, err := s.store.Keys(ctx, s.namespace+prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	if len(keys) == 0 && dir != "/" {
		return nil, fmt.Errorf("directory %s: %w", dir, ErrNotFound)
	}
	seen := map[string]Entry{}
	for _, key := range keys {
		rest := strings.TrimPrefix(s.path(key), prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			name := rest[:i]
			seen[name] = Entry{Name: name, IsDir: true}
		} else {
			entry := Entry{Name: rest}
			if value, err := s.store.Get(ctx, key); err == nil {
				entry.Size = int64(len(value))
			}
			seen[rest] = entry
		}
	}
	return sortedEntries(seen), nil
}

func (s *KV) Read(ctx context.Context, path string) (string, error) {
	raw, err := s.ReadRaw(ctx, path)
	if err != nil {
		return "", err
	}
	return FormatNumbered(raw), nil
}

func (s *KV) ReadRaw(ctx context.Context, path string) (string, error) {
	value, err := s.store.Get(ctx, s.key(path))
	if errors.Is(err, kv.ErrNotFound) {
		return "", fmt.Errorf("file %s: %w", NormalizePath(path), ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(value), nil
}

func (s *KV) Write(ctx context.Context, path, content string) error {
	if err := s.store.Set(ctx, s.key(path), []byte(content)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *KV) Edit(ctx context.Context, path, find, replace string, replaceAll bool) (EditResult, error) {
	content, err := s.ReadRaw(ctx, path)
	if err != nil {
		return EditResult{}, err
	}
	updated, n, err := applyEdit(content, find, replace, replaceAll)
	if err != nil {
		return EditResult{}, err
	}
	if err := s.Write(ctx, path, updated); err != nil {
		return EditResult{}, err
	}
	return EditResult{Path: NormalizePath(path), Replacements: n, OldContent: content, NewContent: updated}, nil
}

func (s *KV) Glob(ctx context.Context, pattern string) ([]string, error) {
	paths, err := s.paths(ctx)
	if err != nil {
		return nil, err
	}
	return globPaths(paths, pattern)
}

func (s *KV) Grep(ctx context.Context, pattern, pathPrefix string) ([]GrepMatch, error) {
	paths, err := s.paths(ctx)
	if err != nil {
		return nil, err
	}
	var out []GrepMatch
	for _, path := range paths {
		if pathPrefix != "" && !underPrefix(path, pathPrefix) {
			continue
		}
		content, err := s.ReadRaw(ctx, path)
		if err != nil {
			continue
		}
		out = append(out, grepLines(path, content, pattern)...)
	}
	return out, nil
}

func (s *KV) paths(ctx context.Context) ([]string, error) {
	keys, err := s.store.Keys(ctx, s.namespace+"/")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.path(key))
	}
	return out, nil
}
