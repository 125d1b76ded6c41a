package config

// Application constants
const (
	// Application Info
	AppName    = "covidprep"
	AppVersion = "1.0.0"

	// Environment
	EnvPrefix      = "COVIDPREP"
	DefaultEnvFile = ".env"

	// File Paths (relative to the base directory)
	DefaultBaseDir   = "."
	DefaultInputDir  = "Data"
	DefaultOutputDir = "ProcessedData"
	DefaultLogsDir   = "logs"
	DefaultLogFile   = "covidprep.log"
	ManifestFileName = "manifest.json"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "console"

	// Run Settings
	DefaultPreviewRows  = 5
	ExecutionSequential = "sequential"
	ExecutionParallel   = "parallel"

	// Pipeline identifiers
	PipelineCases         = "cases"
	PipelineInterventions = "interventions"
	PipelineTesting       = "testing"
	PipelineVaccination   = "vaccination"

	// Raw input files
	CasesInputFile         = "cases_deaths.csv"
	InterventionsInputFile = "response_graphs_data_2022-08-25.csv"
	TestingInputFile       = "testing.csv"
	VaccinationInputFile   = "vaccination.csv"

	// Processed output files
	CasesOutputFile              = "processed_cases_deaths.csv"
	InterventionsOutputFile      = "processed_response_graph.csv"
	InterventionsDailyOutputFile = "processed_response_graph_daily_stringency.csv"
	TestingOutputFile            = "processed_testing.csv"
	VaccinationOutputFile        = "processed_vaccination.csv"

	// Week numbering for the testing pipeline
	WeekModeISO = "iso"
	WeekModeUS  = "us"

	// Rolling window for the vaccination pipeline
	WindowModeRows     = "rows"
	WindowModeCalendar = "calendar"
	DefaultWindowSize  = 7

	// Tracing
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)

// PipelineIDs lists the pipelines in their canonical run order
func PipelineIDs() []string {
	return []string{PipelineCases, PipelineInterventions, PipelineTesting, PipelineVaccination}
}
