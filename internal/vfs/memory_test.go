package vfs

import (
	"context"
	"errors"
	"testing"
)

func TestMemory_WriteEditRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := store.Write(ctx, "/a.md", "X"); err != nil {
		t.Fatalf("write: %v", err)
	}

	res, err := store.Edit(ctx, "/a.md", "X", "Y", false)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if res.Replacements != 1 {
		t.Errorf("expected 1 replacement, got %d", res.Replacements)
	}

	raw, err := store.ReadRaw(ctx, "/a.md")
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if raw != "Y" {
		t.Errorf("expected content %q, got %q", "Y", raw)
	}

	// The original target is gone now.
	if _, err := store.Edit(ctx, "/a.md", "X", "Z", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for absent target, got %v", err)
	}
}

func TestMemory_EditAmbiguous(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	if err := store.Write(ctx, "/dup.txt", "foo bar foo"); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := store.Edit(ctx, "/dup.txt", "foo", "baz", false); !errors.Is(err, ErrAmbiguousEdit) {
		t.Errorf("expected ErrAmbiguousEdit, got %v", err)
	}

	res, err := store.Edit(ctx, "/dup.txt", "foo", "baz", true)
	if err != nil {
		t.Fatalf("edit replace all: %v", err)
	}
	if res.Replacements != 2 {
		t.Errorf("expected 2 replacements, got %d", res.Replacements)
	}
	raw, _ := store.ReadRaw(ctx, "/dup.txt")
	if raw != "baz bar baz" {
		t.Errorf("unexpected content %q", raw)
	}
}

func TestMemory_ReadFormatted(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	if err := store.Write(ctx, "/f.txt", "one\ntwo\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	formatted, err := store.Read(ctx, "/f.txt")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "     1\tone\n     2\ttwo\n"
	if formatted != want {
		t.Errorf("formatted read mismatch:\n got %q\nwant %q", formatted, want)
	}
}

func TestMemory_List(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	files := map[string]string{
		"/docs/a.md":       "a",
		"/docs/sub/b.md":   "b",
		"/notes.txt":       "n",
		"/docs/sub/c.json": "c",
	}
	for path, content := range files {
		if err := store.Write(ctx, path, content); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	tests := []struct {
		name    string
		dir     string
		want    []string
		wantErr error
	}{
		{"root", "/", []string{"docs", "notes.txt"}, nil},
		{"subdir", "/docs", []string{"a.md", "sub"}, nil},
		{"nested", "/docs/sub", []string{"b.md", "c.json"}, nil},
		{"missing", "/nope", nil, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.List(ctx, tt.dir)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(entries) != len(tt.want) {
				t.Fatalf("expected %d entries, got %d: %+v", len(tt.want), len(entries), entries)
			}
			for i, name := range tt.want {
				if entries[i].Name != name {
					t.Errorf("entry %d: expected %q, got %q", i, name, entries[i].Name)
				}
			}
		})
	}
}

func TestMemory_GlobAndGrep(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	if err := store.Write(ctx, "/src/main.go", "package main\nfunc main() {}\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(ctx, "/src/util/helper.go", "package util\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(ctx, "/README.md", "package docs\n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	matches, err := store.Glob(ctx, "/src/**/*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 glob matches, got %v", matches)
	}

	// Restartable: same pattern, same results.
	again, err := store.Glob(ctx, "/src/**/*.go")
	if err != nil {
		t.Fatalf("glob again: %v", err)
	}
	if len(again) != len(matches) {
		t.Errorf("glob not restartable: %v vs %v", matches, again)
	}

	hits, err := store.Grep(ctx, "package", "/src")
	if err != nil {
		t.Fatalf("grep: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 grep hits under /src, got %d", len(hits))
	}
	all, err := store.Grep(ctx, "package", "")
	if err != nil {
		t.Fatalf("grep all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 grep hits total, got %d", len(all))
	}
}

func TestMemory_SnapshotRestore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	if err := store.Write(ctx, "/keep.txt", "payload"); err != nil {
		t.Fatalf("write: %v", err)
	}

	snap := store.Snapshot()
	restored := NewMemory()
	restored.Restore(snap)

	raw, err := restored.ReadRaw(ctx, "/keep.txt")
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if raw != "payload" {
		t.Errorf("expected %q, got %q", "payload", raw)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"a.txt", "/a.txt"},
		{"/a//b/", "/a/b"},
		{"/a/./b", "/a/b"},
		{"/a/../b", "/b"},
		{"../../x", "/x"},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
