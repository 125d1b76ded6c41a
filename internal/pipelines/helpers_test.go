package pipelines

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"covidprep/internal/dataprocessing"
	"covidprep/internal/shared/testutil"
)

// load parses an inline CSV document into a table
func load(t *testing.T, lines ...string) *dataprocessing.Table {
	t.Helper()
	tbl, err := dataprocessing.ReadCSV(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"))
	require.NoError(t, err)
	return tbl
}

// strs renders one column as it would be written to CSV
func strs(t *testing.T, tbl *dataprocessing.Table, col string) []string {
	t.Helper()
	values, err := tbl.Column(col)
	require.NoError(t, err)
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}

// floatAt reads a numeric cell, failing the test when it is not numeric
func floatAt(t *testing.T, tbl *dataprocessing.Table, row int, col string) float64 {
	t.Helper()
	f, ok := tbl.Get(row, col).Float()
	require.True(t, ok, "%s[%d] = %q is not numeric", col, row, tbl.Get(row, col).String())
	return f
}

func testOptions(t *testing.T) (Options, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	opts := DefaultOptions()
	opts.Logger = logger
	return opts, logs
}
