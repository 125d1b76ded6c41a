package operations

import (
	"time"

	"covidprep/internal/dataprocessing"
)

// ProgressReporter receives a notification each time a step finishes
type ProgressReporter interface {
	ReportProgress(stepID string, status StepStatus, completed, total int)
}

// MetricsSink records pipeline outcomes
type MetricsSink interface {
	ObservePipeline(pipeline, status string, rowsIn, rowsOut int, d time.Duration)
	ObserveDiagnostic(pipeline, code string, n int)
}

// TableWriter persists processed tables and returns the written path
type TableWriter interface {
	WriteTable(filePath string, t *dataprocessing.Table, bom bool) (string, error)
}

// InputValidator checks a raw input file before it is loaded
type InputValidator interface {
	ValidateInputFile(path string) error
}
