package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidprep/internal/config"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "line %q", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, file, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "console"}, &buf)
	require.NoError(t, err)
	assert.Nil(t, file)

	logger.Info("test message", "key", "value")
	logger.Debug("hidden")

	entries := decodeLines(t, buf.Bytes())
	require.Len(t, entries, 1)
	assert.Equal(t, "test message", entries[0]["msg"])
	assert.Equal(t, "value", entries[0]["key"])
	assert.Equal(t, "INFO", entries[0]["level"])
}

func TestNewLogger_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "covidprep.log")
	var console bytes.Buffer

	logger, file, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "text", Output: "both", FilePath: logFile}, &console)
	require.NoError(t, err)
	require.NotNil(t, file)

	logger.Warn("written twice")
	require.NoError(t, file.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)

	// files stay JSON even when text is requested
	entries := decodeLines(t, data)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Contains(t, console.String(), "written twice")
}

func TestNewLogger_TextConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "console"}, &buf)
	require.NoError(t, err)

	logger.Info("pipeline done", "pipeline", "cases", "empty", "")

	out := buf.String()
	assert.Contains(t, out, "pipeline done")
	assert.Contains(t, out, "cases")
	assert.NotContains(t, out, "empty")
}

func TestNewLogger_BadFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, _, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "file", FilePath: filepath.Join(blocker, "app.log")}, nil)
	assert.Error(t, err)
}

func TestContextHandler_InjectsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "console"}, &buf)
	require.NoError(t, err)

	ctx := WithPipelineID(WithRunID(context.Background(), "run-123"), "testing")
	logger.InfoContext(ctx, "from context")
	logger.With("pipeline", "cases").InfoContext(ctx, "bound pipeline")
	logger.Info("no context")

	entries := decodeLines(t, buf.Bytes())
	require.Len(t, entries, 3)

	assert.Equal(t, "run-123", entries[0]["run_id"])
	assert.Equal(t, "testing", entries[0]["pipeline"])

	assert.Equal(t, "run-123", entries[1]["run_id"])
	assert.Equal(t, "cases", entries[1]["pipeline"])
	assert.Equal(t, 1, strings.Count(strings.Split(buf.String(), "\n")[1], `"pipeline"`))

	assert.NotContains(t, entries[2], "run_id")
	assert.NotContains(t, entries[2], "pipeline")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.level))
		})
	}
}

func TestRunIDHelpers(t *testing.T) {
	ctx := WithRunID(context.Background(), GenerateRunID())
	runID := GetRunID(ctx)
	assert.Len(t, runID, 36)

	assert.Equal(t, runID, GetRunID(EnsureRunID(ctx)), "existing run id is kept")
	assert.NotEmpty(t, GetRunID(EnsureRunID(context.Background())))
	assert.Empty(t, GetRunID(context.Background()))
	assert.Empty(t, GetPipelineID(context.Background()))
}

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithComponent(logger, "exporter").Info("component")
	WithError(logger, os.ErrNotExist).Info("failed")
	WithError(logger, nil).Info("no error")

	entries := decodeLines(t, buf.Bytes())
	require.Len(t, entries, 3)
	assert.Equal(t, "exporter", entries[0]["component"])
	assert.Contains(t, entries[1]["error"], "file does not exist")
	assert.NotContains(t, entries[2], "error")
}
