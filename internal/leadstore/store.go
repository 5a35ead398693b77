// Package leadstore is the deduplicated, persisted lead table and its
// export-and-reset workflow.
package leadstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/FranksOps/leadfinder/internal/export"
	"github.com/FranksOps/leadfinder/internal/lead"
	"github.com/FranksOps/leadfinder/internal/metrics"
	"github.com/FranksOps/leadfinder/internal/storage"
	"github.com/gofrs/flock"
)

// DefaultExportPath is where ExportAndReset writes when no path is configured.
const DefaultExportPath = "leads_export.xlsx"

// ReasonNoData is reported when there is nothing to export.
const ReasonNoData = "no data found to export"

// Options configures a Store.
type Options struct {
	Policy Policy
	// LockPath enables an inter-process lock around every read-modify-write.
	LockPath   string
	ExportPath string
	Logger     *slog.Logger
}

// ExportResult describes one export. Path is empty when nothing was exported,
// with Reason saying why.
type ExportResult struct {
	Path   string
	Count  int
	Reason string
}

// Store appends, counts and exports leads held by a storage.Backend.
type Store struct {
	backend storage.Backend
	opts    Options
	mu      sync.Mutex
	lock    *flock.Flock
}

// New wraps backend.
func New(backend storage.Backend, opts Options) *Store {
	if opts.Policy == "" {
		opts.Policy = DedupeKey
	}
	if opts.ExportPath == "" {
		opts.ExportPath = DefaultExportPath
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Store{backend: backend, opts: opts}
	if opts.LockPath != "" {
		s.lock = flock.New(opts.LockPath)
	}
	return s
}

// Policy reports the dedupe policy used by Append.
func (s *Store) Policy() Policy { return s.opts.Policy }

// ExportPath reports where ExportAndReset writes.
func (s *Store) ExportPath() string { return s.opts.ExportPath }

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) acquire(ctx context.Context) (func(), error) {
	s.mu.Lock()
	if s.lock == nil {
		return s.mu.Unlock, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.opts.LockPath), 0o755); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("leadstore: lock dir: %w", err)
	}
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !locked {
		s.mu.Unlock()
		if err == nil {
			err = errors.New("lock not acquired")
		}
		return nil, fmt.Errorf("leadstore: lock %s: %w", s.opts.LockPath, err)
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.opts.Logger.Warn("failed to release store lock", "path", s.opts.LockPath, "err", err)
		}
		s.mu.Unlock()
	}, nil
}

// load treats a store that was never written as empty.
func (s *Store) load(ctx context.Context) ([]lead.Lead, bool, error) {
	rows, err := s.backend.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

// Append merges candidates after the existing rows, deduplicates with the
// store's policy and persists the result, which it returns.
func (s *Store) Append(ctx context.Context, candidates []lead.Lead) ([]lead.Lead, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, _, err := s.load(ctx)
	if err != nil {
		s.opts.Logger.Error("failed to read lead store", "err", err)
		return nil, fmt.Errorf("leadstore: load: %w", err)
	}

	combined := make([]lead.Lead, 0, len(existing)+len(candidates))
	combined = append(combined, existing...)
	combined = append(combined, candidates...)
	rows := Dedupe(combined, s.opts.Policy)

	if err := s.backend.Replace(ctx, rows); err != nil {
		s.opts.Logger.Error("failed to write lead store", "err", err)
		return nil, fmt.Errorf("leadstore: replace: %w", err)
	}

	metrics.RecordAppend(max(len(rows)-len(existing), 0), len(combined)-len(rows))
	s.opts.Logger.Info("appended leads",
		"candidates", len(candidates), "existing", len(existing), "total", len(rows), "policy", s.opts.Policy)
	return rows, nil
}

// List returns every row. The bool is false when no store exists yet.
func (s *Store) List(ctx context.Context) ([]lead.Lead, bool, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	defer release()

	rows, ok, err := s.load(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("leadstore: load: %w", err)
	}
	return rows, ok, nil
}

// Count returns the number of rows. The bool is false when no store exists.
func (s *Store) Count(ctx context.Context) (int, bool, error) {
	rows, ok, err := s.List(ctx)
	if err != nil {
		return 0, false, err
	}
	return len(rows), ok, nil
}

// ExportAndReset writes every row to the export spreadsheet and empties the
// store. A missing or unreadable store is reported in ExportResult.Reason and
// nothing is written or truncated.
func (s *Store) ExportAndReset(ctx context.Context) (ExportResult, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return ExportResult{}, err
	}
	defer release()

	rows, ok, err := s.load(ctx)
	if err != nil {
		s.opts.Logger.Warn("lead store unreadable, nothing exported", "err", err)
		metrics.RecordExport(false)
		return ExportResult{Reason: fmt.Sprintf("%s: %v", ReasonNoData, err)}, nil
	}
	if !ok {
		metrics.RecordExport(false)
		return ExportResult{Reason: ReasonNoData}, nil
	}

	// Staged beside the export path until the reset commits.
	staged := stagingPath(s.opts.ExportPath)
	if err := export.WriteXLSX(staged, rows); err != nil {
		metrics.RecordExport(false)
		return ExportResult{}, fmt.Errorf("leadstore: export: %w", err)
	}

	if err := s.backend.Replace(ctx, nil); err != nil {
		_ = os.Remove(staged)
		metrics.RecordExport(false)
		return ExportResult{}, fmt.Errorf("leadstore: reset after export: %w", err)
	}
	if err := os.Rename(staged, s.opts.ExportPath); err != nil {
		_ = os.Remove(staged)
		metrics.RecordExport(false)
		if rerr := s.backend.Replace(ctx, rows); rerr != nil {
			s.opts.Logger.Error("failed to restore lead store after export", "err", rerr)
			return ExportResult{}, fmt.Errorf("leadstore: export: %w", errors.Join(err, rerr))
		}
		return ExportResult{}, fmt.Errorf("leadstore: export: %w", err)
	}

	res := ExportResult{Path: s.opts.ExportPath, Count: len(rows)}
	metrics.RecordExport(true)
	s.opts.Logger.Info("exported and reset lead store", "path", res.Path, "count", res.Count)
	return res, nil
}

func stagingPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".pending")
}
