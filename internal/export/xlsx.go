// Package export writes lead snapshots as spreadsheets.
package export

import (
	"fmt"
	"os"

	"github.com/FranksOps/leadfinder/internal/lead"
	"github.com/FranksOps/leadfinder/internal/storage"
	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet every export contains.
const SheetName = "Sheet1"

// WriteXLSX writes rows under a header of lead.Columns to path. The file is
// replaced atomically, so a failed write leaves any previous export intact.
func WriteXLSX(path string, rows []lead.Lead) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("export: stream writer: %w", err)
	}

	header := make([]interface{}, len(lead.Columns))
	for i, c := range lead.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}

	for i, l := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export: row %d: %w", i, err)
		}
		rec := l.Record()
		values := make([]interface{}, len(rec))
		for j, v := range rec {
			values[j] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("export: row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}

	return storage.WriteFileAtomic(path, func(tmp *os.File) error {
		if _, err := f.WriteTo(tmp); err != nil {
			return fmt.Errorf("export: write: %w", err)
		}
		return nil
	})
}

// ReadXLSX returns the data rows of an export, without the header.
func ReadXLSX(path string) ([]lead.Lead, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("export: open: %w", err)
	}
	defer f.Close()

	records, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("export: read rows: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	out := make([]lead.Lead, 0, len(records)-1)
	for _, rec := range records[1:] {
		// GetRows trims trailing empty cells.
		for len(rec) < len(lead.Columns) {
			rec = append(rec, "")
		}
		out = append(out, lead.Lead{
			BusinessName: rec[0],
			URL:          rec[1],
			Email:        rec[2],
			Description:  rec[3],
			Source:       lead.Source(rec[4]),
		})
	}
	return out, nil
}
