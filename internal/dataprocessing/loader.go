package dataprocessing

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "covidprep/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadOptions tunes how input files are read
type LoadOptions struct {
	// Sheet selects the worksheet of an .xlsx input; empty means the first one
	Sheet string
}

// LoadFile reads a .csv or .xlsx file into a table, inferring cell types
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.InputNotFound(path, err)
		}
		return nil, apperrors.MalformedInput(path, err)
	}

	var (
		t   *Table
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		t, err = loadCSVFile(ctx, path)
	case ".xlsx", ".xlsm":
		t, err = LoadXLSX(ctx, path, opts.Sheet)
	default:
		return nil, apperrors.UnsupportedFormat(path)
	}
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Input loaded",
		slog.String("path", path),
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(t.columns)))
	return t, nil
}

func loadCSVFile(ctx context.Context, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.MalformedInput(path, err)
	}
	defer f.Close()

	t, err := ReadCSV(ctx, f)
	if err != nil {
		return nil, apperrors.MalformedInput(path, err)
	}
	return t, nil
}

// ReadCSV decodes comma separated text with a header row. A leading UTF-8
// BOM is skipped, repeated header names get ".1", ".2" suffixes and short
// rows are padded with nulls.
func ReadCSV(ctx context.Context, r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty input: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := NewTable(dedupeHeader(header)...)
	line := 1
	for {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line+1, err)
		}
		line++
		if err := appendParsed(t, record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return t, nil
}

// LoadXLSX reads one worksheet of an Excel workbook, first row as header
func LoadXLSX(ctx context.Context, path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.MalformedInput(path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.MalformedInput(path, fmt.Errorf("workbook has no sheets"))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.MalformedInput(path, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.MalformedInput(path, fmt.Errorf("sheet %q is empty", sheet))
	}

	slog.DebugContext(ctx, "Found worksheet", slog.String("sheet_name", sheet), slog.Int("total_rows", len(rows)))

	t := NewTable(dedupeHeader(rows[0])...)
	for i, record := range rows[1:] {
		if isBlankRecord(record) {
			continue
		}
		if err := appendParsed(t, record); err != nil {
			return nil, apperrors.MalformedInput(path, fmt.Errorf("row %d: %w", i+2, err))
		}
	}
	return t, nil
}

func appendParsed(t *Table, record []string) error {
	if len(record) > len(t.columns) {
		// trailing empty cells are harmless
		extra := record[len(t.columns):]
		if !isBlankRecord(extra) {
			return fmt.Errorf("expected %d fields, saw %d", len(t.columns), len(record))
		}
		record = record[:len(t.columns)]
	}
	row := make(Row, len(t.columns))
	for i, cell := range record {
		row[i] = ParseValue(cell)
	}
	t.rows = append(t.rows, row)
	return nil
}

func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]bool, len(header))
	for _, h := range header {
		taken[strings.TrimSpace(h)] = true
	}
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			candidate := name
			for {
				n++
				candidate = fmt.Sprintf("%s.%d", name, n)
				if !taken[candidate] {
					break
				}
			}
			seen[name] = n
			taken[candidate] = true
			out[i] = candidate
			continue
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
