package csvbackend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/FranksOps/leadfinder/internal/lead"
	"github.com/FranksOps/leadfinder/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	path string
}

// New creates a new CSV-backed storage.Backend. The file is not touched until
// the first Replace, so a fresh path loads as storage.ErrNotFound.
func New(filePath string) (storage.Backend, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, errors.New("csv: file path is required")
	}
	return &csvBackend{path: filePath}, nil
}

func (b *csvBackend) Load(ctx context.Context) ([]lead.Lead, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.Open(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("csv: open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			// zero-byte file: treat like a store with no rows
			return []lead.Lead{}, nil
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	idx, err := buildHeaderIndex(header)
	if err != nil {
		return nil, err
	}

	leads := []lead.Lead{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row: %w", err)
		}

		get := func(col string) string {
			i := idx[col]
			if i < len(record) {
				return record[i]
			}
			return ""
		}

		leads = append(leads, lead.Lead{
			BusinessName: get("business_name"),
			URL:          get("url"),
			Email:        get("email"),
			Description:  get("description"),
			Source:       lead.Source(get("source")),
		})
	}

	return leads, nil
}

func (b *csvBackend) Replace(ctx context.Context, leads []lead.Lead) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return storage.WriteFileAtomic(b.path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(lead.Columns); err != nil {
			return fmt.Errorf("csv: write header: %w", err)
		}
		for _, l := range leads {
			if err := w.Write(l.Record()); err != nil {
				return fmt.Errorf("csv: write row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("csv: flush: %w", err)
		}
		return nil
	})
}

func (b *csvBackend) Close() error {
	return nil
}

// buildHeaderIndex maps the persisted columns to their position. Unknown
// columns, such as a stray "domain" column, are ignored.
func buildHeaderIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	var missing []string
	for _, col := range lead.Columns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv: missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}
