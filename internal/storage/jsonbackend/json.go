package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/FranksOps/leadfinder/internal/lead"
	"github.com/FranksOps/leadfinder/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	path string
}

// New creates a new NDJSON-backed storage.Backend, one lead object per line.
func New(filePath string) (storage.Backend, error) {
	if filePath == "" {
		return nil, errors.New("ndjson: file path is required")
	}
	return &jsonBackend{path: filePath}, nil
}

func (b *jsonBackend) Load(ctx context.Context) ([]lead.Lead, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.Open(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("ndjson: open: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	leads := []lead.Lead{}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var l lead.Lead
		if err := json.Unmarshal(line, &l); err != nil {
			return nil, fmt.Errorf("ndjson: decode row %d: %w", len(leads)+1, err)
		}
		leads = append(leads, l)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ndjson: scan: %w", err)
	}

	return leads, nil
}

func (b *jsonBackend) Replace(ctx context.Context, leads []lead.Lead) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return storage.WriteFileAtomic(b.path, func(f *os.File) error {
		w := bufio.NewWriter(f)
		enc := json.NewEncoder(w)
		for _, l := range leads {
			if err := enc.Encode(l); err != nil {
				return fmt.Errorf("ndjson: encode: %w", err)
			}
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("ndjson: flush: %w", err)
		}
		return nil
	})
}

func (b *jsonBackend) Close() error {
	return nil
}
