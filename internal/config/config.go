package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Run       RunConfig       `yaml:"run" envconfig:"RUN"`
	Pipelines PipelinesConfig `yaml:"pipelines" envconfig:"PIPELINES"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// PathsConfig contains file system paths configuration.
// Relative input, output and logs directories are resolved against BaseDir.
type PathsConfig struct {
	BaseDir   string `yaml:"base_dir" envconfig:"BASE_DIR" validate:"required"`
	InputDir  string `yaml:"input_dir" envconfig:"INPUT_DIR" validate:"required"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// RunConfig controls how pipelines are scheduled and what each run emits
type RunConfig struct {
	ExecutionMode   string `yaml:"execution_mode" envconfig:"EXECUTION_MODE" validate:"oneof=sequential parallel"`
	PreviewRows     int    `yaml:"preview_rows" envconfig:"PREVIEW_ROWS" validate:"gte=0"`
	WriteBOM        bool   `yaml:"write_bom" envconfig:"WRITE_BOM"`
	Manifest        bool   `yaml:"manifest" envconfig:"MANIFEST"`
	MetricsFile     string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
	ContinueOnError bool   `yaml:"continue_on_error" envconfig:"CONTINUE_ON_ERROR"`
	MaxConcurrency  int    `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" validate:"gte=0"`
}

// PipelineFiles names the raw input and processed output of one pipeline
type PipelineFiles struct {
	InputFile  string `yaml:"input_file" envconfig:"INPUT_FILE" validate:"required"`
	OutputFile string `yaml:"output_file" envconfig:"OUTPUT_FILE" validate:"required"`
}

// CasesConfig selects how running totals are grouped
type CasesConfig struct {
	PipelineFiles    `yaml:",inline"`
	GroupByIndicator bool `yaml:"group_by_indicator" envconfig:"GROUP_BY_INDICATOR"`
}

// InterventionsConfig adds the secondary daily aggregate output
type InterventionsConfig struct {
	PipelineFiles   `yaml:",inline"`
	DailyOutputFile string `yaml:"daily_output_file" envconfig:"DAILY_OUTPUT_FILE" validate:"required"`
}

// TestingConfig selects how the testing pipeline numbers weeks
type TestingConfig struct {
	PipelineFiles `yaml:",inline"`
	WeekMode      string `yaml:"week_mode" envconfig:"WEEK_MODE" validate:"oneof=iso us"`
}

// VaccinationConfig selects the rolling window used for smoothing
type VaccinationConfig struct {
	PipelineFiles `yaml:",inline"`
	WindowMode    string `yaml:"window_mode" envconfig:"WINDOW_MODE" validate:"oneof=rows calendar"`
	WindowSize    int    `yaml:"window_size" envconfig:"WINDOW_SIZE" validate:"gte=1"`
}

// PipelinesConfig holds per-pipeline settings
type PipelinesConfig struct {
	Cases         CasesConfig         `yaml:"cases" envconfig:"CASES"`
	Interventions InterventionsConfig `yaml:"interventions" envconfig:"INTERVENTIONS"`
	Testing       TestingConfig       `yaml:"testing" envconfig:"TESTING"`
	Vaccination   VaccinationConfig   `yaml:"vaccination" envconfig:"VACCINATION"`
}

// TelemetryConfig selects the span exporter
type TelemetryConfig struct {
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	TraceFile     string `yaml:"trace_file" envconfig:"TRACE_FILE"`
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and COVIDPREP_* environment variables, in increasing
// order of precedence. An empty configFile triggers a search of the usual
// locations.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// A missing .env file is not an error
	if err := godotenv.Load(DefaultEnvFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s: %w", DefaultEnvFile, err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML document onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// findConfigFile returns the first config file found in the usual locations
func findConfigFile() string {
	locations := []string{
		"covidprep.yaml",
		"config.yaml",
		filepath.Join("configs", "covidprep.yaml"),
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Output = strings.ToLower(strings.TrimSpace(c.Logging.Output))
	c.Run.ExecutionMode = strings.ToLower(strings.TrimSpace(c.Run.ExecutionMode))
	c.Pipelines.Testing.WeekMode = strings.ToLower(strings.TrimSpace(c.Pipelines.Testing.WeekMode))
	c.Pipelines.Vaccination.WindowMode = strings.ToLower(strings.TrimSpace(c.Pipelines.Vaccination.WindowMode))
	c.Telemetry.TraceExporter = strings.ToLower(strings.TrimSpace(c.Telemetry.TraceExporter))
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// GetPaths resolves the configured directories into absolute paths
func (c *Config) GetPaths() (*Paths, error) {
	return NewPaths(c.Paths)
}

// Pipeline returns the file names configured for the given pipeline id
func (c *Config) Pipeline(id string) (PipelineFiles, bool) {
	switch id {
	case PipelineCases:
		return c.Pipelines.Cases.PipelineFiles, true
	case PipelineInterventions:
		return c.Pipelines.Interventions.PipelineFiles, true
	case PipelineTesting:
		return c.Pipelines.Testing.PipelineFiles, true
	case PipelineVaccination:
		return c.Pipelines.Vaccination.PipelineFiles, true
	default:
		return PipelineFiles{}, false
	}
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   DefaultLogOutput,
			FilePath: filepath.Join(DefaultLogsDir, DefaultLogFile),
		},
		Paths: PathsConfig{
			BaseDir:   DefaultBaseDir,
			InputDir:  DefaultInputDir,
			OutputDir: DefaultOutputDir,
			LogsDir:   DefaultLogsDir,
		},
		Run: RunConfig{
			ExecutionMode: ExecutionSequential,
			PreviewRows:   DefaultPreviewRows,
			Manifest:      true,
		},
		Pipelines: PipelinesConfig{
			Cases: CasesConfig{
				PipelineFiles: PipelineFiles{InputFile: CasesInputFile, OutputFile: CasesOutputFile},
			},
			Interventions: InterventionsConfig{
				PipelineFiles:   PipelineFiles{InputFile: InterventionsInputFile, OutputFile: InterventionsOutputFile},
				DailyOutputFile: InterventionsDailyOutputFile,
			},
			Testing: TestingConfig{
				PipelineFiles: PipelineFiles{InputFile: TestingInputFile, OutputFile: TestingOutputFile},
				WeekMode:      WeekModeISO,
			},
			Vaccination: VaccinationConfig{
				PipelineFiles: PipelineFiles{InputFile: VaccinationInputFile, OutputFile: VaccinationOutputFile},
				WindowMode:    WindowModeRows,
				WindowSize:    DefaultWindowSize,
			},
		},
		Telemetry: TelemetryConfig{
			TraceExporter: TraceExporterNone,
		},
	}
}
