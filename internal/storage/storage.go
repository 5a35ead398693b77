package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/FranksOps/leadfinder/internal/lead"
)

// ErrNotFound is returned by Load when the store has never been written.
var ErrNotFound = errors.New("lead store not found")

// Backend persists the full lead table. The lead store treats it as a
// load-everything / replace-everything table; deduplication happens above it.
type Backend interface {
	// Load returns every persisted row in insertion order, or ErrNotFound.
	Load(ctx context.Context) ([]lead.Lead, error)
	// Replace swaps the persisted rows for the given set. Readers never see a
	// partially written table.
	Replace(ctx context.Context, leads []lead.Lead) error
	Close() error
}

// WriteFileAtomic writes through a sibling temp file and renames it over path.
func WriteFileAtomic(path string, write func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp: %w", err)
	}
	return nil
}
