package kv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLite(SQLiteConfig{Path: filepath.Join(t.TempDir(), "kv.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}

			if err := store.Set(ctx, "k", []byte("v1")); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := store.Set(ctx, "k", []byte("v2")); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, err := store.Get(ctx, "k")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if string(got) != "v2" {
				t.Errorf("expected v2, got %s", got)
			}

			if err := store.Delete(ctx, "k"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStore_KeysPrefix(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			seed := map[string]string{
				"threads/a": "1",
				"threads/b": "2",
				"files/x":   "3",
			}
			for k, v := range seed {
				if err := store.Set(ctx, k, []byte(v)); err != nil {
					t.Fatalf("set %s: %v", k, err)
				}
			}

			keys, err := store.Keys(ctx, "threads/")
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			if len(keys) != 2 || keys[0] != "threads/a" || keys[1] != "threads/b" {
				t.Errorf("unexpected keys %v", keys)
			}

			all, err := store.Keys(ctx, "")
			if err != nil {
				t.Fatalf("keys all: %v", err)
			}
			if len(all) != 3 {
				t.Errorf("expected 3 keys, got %v", all)
			}
		})
	}
}
