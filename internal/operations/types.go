package operations

import (
	"time"

	"covidprep/internal/config"
)

// Step identifiers, one per pipeline
const (
	StageIDCases         = config.PipelineCases
	StageIDInterventions = config.PipelineInterventions
	StageIDTesting       = config.PipelineTesting
	StageIDVaccination   = config.PipelineVaccination
)

// Metadata keys recorded on each step state
const (
	MetadataRowsIn      = "rows_in"
	MetadataRowsOut     = "rows_out"
	MetadataInputFile   = "input_file"
	MetadataOutputFiles = "output_files"
)

// Default timeouts
const (
	DefaultStageTimeout = 10 * time.Minute
)

// ExecutionMode defines how steps are executed
type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = config.ExecutionSequential
	ExecutionModeParallel   ExecutionMode = config.ExecutionParallel
)

// OperationRequest selects the pipelines of one run.
// An empty Pipelines list runs every registered step.
type OperationRequest struct {
	ID        string   `json:"id"`
	Pipelines []string `json:"pipelines,omitempty"`
}

// OperationResponse represents the outcome of a run
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
}
