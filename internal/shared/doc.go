// Package shared holds helpers used across covidprep packages that belong to
// no single layer.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- BufferedSlogHandler, a slog.Handler that records log output for assertions
//	- CSV fixture helpers that write input files and read processed outputs back
//
// Example usage:
//
//	func TestPipeline(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteCSV(t, t.TempDir(), "cases.csv", header, rows...)
//	    // run the pipeline with logger, then
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "Pipeline completed")
//	}
package shared
