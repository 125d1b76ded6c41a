package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"covidprep/internal/config"
	"covidprep/internal/dataprocessing"
	apperrors "covidprep/internal/errors"
)

// utf8BOM helps Excel recognise UTF-8 output
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to filePath. The file is written to a temporary file
// in the same directory and renamed into place once complete, so a failed
// write never leaves a partial file behind.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", apperrors.WriteFailed(fullPath, fmt.Errorf("failed to create directory: %w", err))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return "", apperrors.WriteFailed(fullPath, fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpPath := tmp.Name()

	if err := writeRecords(tmp, options); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", apperrors.WriteFailed(fullPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", apperrors.WriteFailed(fullPath, fmt.Errorf("failed to close temp file: %w", err))
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", apperrors.WriteFailed(fullPath, fmt.Errorf("failed to move file into place: %w", err))
	}

	return fullPath, nil
}

func writeRecords(f *os.File, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := f.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(f)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return f.Sync()
}

// WriteTable writes t with its header row. Nulls are written as empty
// fields and whole floats keep their ".0".
func (w *CSVWriter) WriteTable(filePath string, t *dataprocessing.Table, bom bool) (string, error) {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   t.Columns(),
		Records:   t.Records(),
		BOMPrefix: bom,
	})
}

// resolvePath places relative paths in the output directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetOutputPath(filePath)
}
