package export

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/FranksOps/leadfinder/internal/lead"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads_export.xlsx")
	rows := []lead.Lead{
		{BusinessName: "Acme", URL: "https://acme.co.za", Email: "info@acme.co.za", Description: "Gifts", Source: lead.SourceBrave},
		{BusinessName: "", URL: "https://beta.co.za", Email: "hi@beta.co.za", Description: "", Source: lead.SourceDuckDuckGo},
	}

	if err := WriteXLSX(path, rows); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	records, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if !reflect.DeepEqual(records[0], lead.Columns) {
		t.Errorf("header = %v, want %v", records[0], lead.Columns)
	}

	got, err := ReadXLSX(path)
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("ReadXLSX = %+v, want %+v", got, rows)
	}
}

func TestWriteXLSX_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := WriteXLSX(path, nil); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	got, err := ReadXLSX(path)
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no data rows, got %d", len(got))
	}
}

func TestWriteXLSX_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads_export.xlsx")
	first := []lead.Lead{{Email: "a@x.com", URL: "u1"}, {Email: "b@x.com", URL: "u2"}}
	if err := WriteXLSX(path, first); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteXLSX(path, first[:1]); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, _ := ReadXLSX(path)
	if len(got) != 1 {
		t.Errorf("expected overwrite to leave 1 row, got %d", len(got))
	}
}
