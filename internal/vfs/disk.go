package vfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Disk is a Store rooted at a host directory. Virtual paths map onto paths
// under the root; anything resolving outside it is rejected.
type Disk struct {
	root string
}

// NewDisk creates a disk-backed workspace rooted at root, creating the
// directory if needed.
func NewDisk(root string) (*Disk, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("workspace root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Disk{root: abs}, nil
}

// Root returns the absolute host directory backing the store.
func (d *Disk) Root() string { return d.root }

// resolve returns an absolute, cleaned host path within the root.
func (d *Disk) resolve(path string) (string, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", fmt.Errorf("path is required: %w", ErrPathEscapesRoot)
	}
	target := filepath.Join(d.root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	rel, err := filepath.Rel(d.root, targetAbs)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q: %w", path, ErrPathEscapesRoot)
	}
	return targetAbs, nil
}

func (d *Disk) List(ctx context.Context, dir string) ([]Entry, error) {
	resolved, err := d.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(resolved)
	if os.IsNotExist(err) {
		if NormalizePath(dir) == "/" {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("directory %s: %w", dir, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		entry := Entry{Name: e.Name(), IsDir: e.IsDir()}
		if info, err := e.Info(); err == nil && !e.IsDir() {
			entry.Size = info.Size()
		}
		out = append(out, entry)
	}
	return out, nil
}

func (d *Disk) Read(ctx context.Context, path string) (string, error) {
	raw, err := d.ReadRaw(ctx, path)
	if err != nil {
		return "", err
	}
	return FormatNumbered(raw), nil
}

func (d *Disk) ReadRaw(ctx context.Context, path string) (string, error) {
	resolved, err := d.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("file %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func (d *Disk) Write(ctx context.Context, path, content string) error {
	resolved, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (d *Disk) Edit(ctx context.Context, path, find, replace string, replaceAll bool) (EditResult, error) {
	resolved, err := d.resolve(path)
	if err != nil {
		return EditResult{}, err
	}
	data, err := os.ReadFile(resolved)
	if os.IsNotExist(err) {
		return EditResult{}, fmt.Errorf("file %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return EditResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	content := string(data)
	updated, n, err := applyEdit(content, find, replace, replaceAll)
	if err != nil {
		return EditResult{}, err
	}
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return EditResult{}, fmt.Errorf("write %s: %w", path, err)
	}
	return EditResult{Path: NormalizePath(path), Replacements: n, OldContent: content, NewContent: updated}, nil
}

func (d *Disk) Glob(ctx context.Context, pattern string) ([]string, error) {
	paths, err := d.walk()
	if err != nil {
		return nil, err
	}
	return globPaths(paths, pattern)
}

func (d *Disk) Grep(ctx context.Context, pattern, pathPrefix string) ([]GrepMatch, error) {
	paths, err := d.walk()
	if err != nil {
		return nil, err
	}
	var out []GrepMatch
	for _, path := range paths {
		if pathPrefix != "" && !underPrefix(path, pathPrefix) {
			continue
		}
		content, err := d.ReadRaw(ctx, path)
		if err != nil {
			continue
		}
		out = append(out, grepLines(path, content, pattern)...)
	}
	return out, nil
}

// walk returns every file under the root as a sorted virtual path list.
func (d *Disk) walk() ([]string, error) {
	var out []string
	err := filepath.WalkDir(d.root, func(hostPath string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		rel, err := filepath.Rel(d.root, hostPath)
		if err != nil {
			return err
		}
		out = append(out, "/"+filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}
	return out, nil
}
