// Package kv defines the key-value capability used by the KV-backed
// workspace and checkpoint stores.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound indicates the key does not exist.
var ErrNotFound = errors.New("key not found")

// Store is the minimal key-value capability: get, set, list-keys. Backends
// must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
