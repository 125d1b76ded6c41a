package testutil

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

// WriteCSV writes header and rows to dir/name and returns the path
func WriteCSV(t *testing.T, dir, name string, header []string, rows ...[]string) string {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write rows: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("create %s: %v", dir, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReadCSV reads a CSV file back as its header and records. A leading BOM is dropped.
func ReadCSV(t *testing.T, path string) (header []string, rows [][]string) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	if len(records) == 0 {
		t.Fatalf("%s has no header row", path)
	}
	return records[0], records[1:]
}

// ColumnOf returns the cells of column name from rows read by ReadCSV
func ColumnOf(t *testing.T, header []string, rows [][]string, name string) []string {
	t.Helper()

	idx := -1
	for i, h := range header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.Fatalf("column %q not in header %v", name, header)
	}
	out := make([]string, len(rows))
	for r, row := range rows {
		out[r] = row[idx]
	}
	return out
}
