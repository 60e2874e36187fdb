// Package vfs provides the agent-visible virtual workspace: a path-keyed
// document store with pluggable backends (memory, disk, key-value,
// prefix-routing composite, and a sandbox variant that can run commands).
package vfs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates a missing path, directory, or edit target.
	ErrNotFound = errors.New("not found")

	// ErrPathEscapesRoot indicates a path that resolves outside the
	// storage root of a disk-backed store.
	ErrPathEscapesRoot = errors.New("path escapes storage root")

	// ErrAmbiguousEdit indicates a non-unique edit target without
	// replace_all set.
	ErrAmbiguousEdit = errors.New("edit target occurs more than once")

	// ErrExecuteUnsupported indicates the backend has no execute capability.
	ErrExecuteUnsupported = errors.New("execute not supported by this store")
)

// Entry describes one directory listing item.
type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir,omitempty"`
	Size  int64  `json:"size,omitempty"`
}

// GrepMatch is one matching line from a grep scan.
type GrepMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// EditResult reports what an edit changed.
type EditResult struct {
	Path         string `json:"path"`
	Replacements int    `json:"replacements"`
	OldContent   string `json:"-"`
	NewContent   string `json:"-"`
}

// Store is the virtual workspace capability set. Paths are forward-slash
// separated and rooted at "/". Implementations must be safe for concurrent
// use; reads never block other readers.
type Store interface {
	// List returns the entries directly under dir. A missing directory is
	// ErrNotFound; the root itself always lists (possibly empty).
	List(ctx context.Context, dir string) ([]Entry, error)

	// Read returns line-numbered content for model consumption.
	Read(ctx context.Context, path string) (string, error)

	// ReadRaw returns the unformatted content for programmatic consumers.
	ReadRaw(ctx context.Context, path string) (string, error)

	// Write creates or overwrites the file at path.
	Write(ctx context.Context, path, content string) error

	// Edit replaces find with replace in the file at path. The default is
	// single-occurrence replace: a missing target is ErrNotFound and a
	// non-unique target without replaceAll is ErrAmbiguousEdit.
	Edit(ctx context.Context, path, find, replace string, replaceAll bool) (EditResult, error)

	// Glob returns the paths matching pattern, sorted. Re-invoking with the
	// same pattern yields identical results absent intervening writes.
	Glob(ctx context.Context, pattern string) ([]string, error)

	// Grep scans for lines containing pattern, optionally under pathPrefix.
	Grep(ctx context.Context, pattern, pathPrefix string) ([]GrepMatch, error)
}

// ExecOptions configures a sandbox command execution.
type ExecOptions struct {
	Timeout time.Duration
	Env     map[string]string
}

// ExecResult is the outcome of a sandbox command. A non-zero exit code is a
// normal result, not an error; Execute fails only when the process cannot
// be spawned.
type ExecResult struct {
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	ExitCode  int    `json:"exit_code"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Executor is the optional command-execution capability exposed by the
// sandbox store variant.
type Executor interface {
	Execute(ctx context.Context, command string, opts ExecOptions) (ExecResult, error)
}

// Snapshotter is implemented by backends whose contents live only in
// process memory; the engine snapshots them into checkpoints.
type Snapshotter interface {
	Snapshot() map[string]string
	Restore(files map[string]string)
}

// NormalizePath cleans a virtual path to the canonical "/a/b" form.
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		switch p {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, p)
		}
	}
	return "/" + strings.Join(out, "/")
}

// FormatNumbered renders content with cat -n style line numbers, the read
// format handed to the model.
func FormatNumbered(content string) string {
	if content == "" {
		return ""
	}
	lines := strings.Split(content, "\n")
	// A trailing newline produces a phantom empty final element.
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, line)
	}
	return b.String()
}

// CountLines returns the number of lines in content.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

func applyEdit(content, find, replace string, replaceAll bool) (string, int, error) {
	if find == "" {
		return "", 0, fmt.Errorf("%w: empty edit target", ErrNotFound)
	}
	count := strings.Count(content, find)
	switch {
	case count == 0:
		return "", 0, fmt.Errorf("edit target %w", ErrNotFound)
	case count > 1 && !replaceAll:
		return "", 0, fmt.Errorf("%w (%d occurrences)", ErrAmbiguousEdit, count)
	case replaceAll:
		return strings.ReplaceAll(content, find, replace), count, nil
	default:
		return strings.Replace(content, find, replace, 1), 1, nil
	}
}

// grepLines scans content for lines containing pattern.
func grepLines(path, content, pattern string) []GrepMatch {
	var out []GrepMatch
	for i, line := range strings.Split(content, "\n") {
		if strings.Contains(line, pattern) {
			out = append(out, GrepMatch{Path: path, Line: i + 1, Text: line})
		}
	}
	return out
}
