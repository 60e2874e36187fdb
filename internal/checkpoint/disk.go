package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/haasonsaas/conductor/pkg/models"
)

// DiskStore keeps one JSON file per thread. Saves write a temp file and
// rename it over the prior record, so a crash mid-write never corrupts the
// last good checkpoint.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a disk-backed checkpoint store under dir.
func NewDiskStore(dir string) (*DiskStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("checkpoint directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// fileName derives a deterministic, collision-free file name from a thread
// id: a sanitized readable stem plus a short content hash.
func fileName(threadID string) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, threadID)
	if len(stem) > 64 {
		stem = stem[:64]
	}
	sum := sha256.Sum256([]byte(threadID))
	return stem + "-" + hex.EncodeToString(sum[:4]) + ".json"
}

func (s *DiskStore) path(threadID string) string {
	return filepath.Join(s.dir, fileName(threadID))
}

func (s *DiskStore) Save(ctx context.Context, cp *models.Checkpoint) error {
	if err := validate(cp); err != nil {
		return err
	}
	if prev, err := s.Load(ctx, cp.ThreadID); err == nil && cp.Step <= prev.Step {
		return fmt.Errorf("thread %s step %d after %d: %w", cp.ThreadID, cp.Step, prev.Step, ErrStaleStep)
	}

	record := cp.Clone()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, fileName(cp.ThreadID)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.path(cp.ThreadID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

func (s *DiskStore) Load(ctx context.Context, threadID string) (*models.Checkpoint, error) {
	data, err := os.ReadFile(s.path(threadID))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint for thread %s: %w", threadID, err)
	}
	return &cp, nil
}

func (s *DiskStore) Delete(ctx context.Context, threadID string) error {
	err := os.Remove(s.path(threadID))
	if os.IsNotExist(err) {
		return fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func (s *DiskStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var cp models.Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil || cp.ThreadID == "" {
			continue
		}
		out = append(out, cp.ThreadID)
	}
	return out, nil
}
