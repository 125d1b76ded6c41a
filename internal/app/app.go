package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"covidprep/internal/config"
	"covidprep/internal/exporter"
	"covidprep/internal/infrastructure"
	"covidprep/internal/operations"
	"covidprep/internal/pipelines"
	"covidprep/internal/validation"
	"covidprep/pkg/contracts"
)

// Options supplies the process level collaborators of an Application
type Options struct {
	Stdout io.Writer // previews and progress
	Stderr io.Writer // console logs and spans
	Clock  clockwork.Clock
}

// Application wires configuration, logging, tracing, metrics and the
// pipeline steps for one invocation of the tool
type Application struct {
	Config  *config.Config
	Paths   *config.Paths
	Logger  *slog.Logger
	Metrics *infrastructure.Metrics
	Tracing *infrastructure.Tracing
	Steps   []*operations.PipelineStep

	clock   clockwork.Clock
	stdout  io.Writer
	logFile *os.File
}

// PipelineInfo describes one registered pipeline and its files
type PipelineInfo struct {
	ID      string
	Name    string
	Input   string
	Outputs []string
}

// RunResult is the outcome of Run
type RunResult struct {
	Response     *operations.OperationResponse
	Manifest     *operations.RunManifest
	ManifestPath string
	MetricsPath  string
}

// New builds an Application from cfg. The caller must Close it.
func New(cfg *config.Config, opts Options) (*Application, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	paths, err := cfg.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	logCfg := cfg.Logging
	if logCfg.Output != "console" && !filepath.IsAbs(logCfg.FilePath) {
		logCfg.FilePath = filepath.Join(paths.BaseDir, logCfg.FilePath)
	}
	logger, logFile, err := infrastructure.NewLogger(logCfg, opts.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &Application{
		Config:  cfg,
		Paths:   paths,
		Logger:  logger,
		Metrics: infrastructure.NewMetrics(),
		clock:   opts.Clock,
		stdout:  &syncWriter{w: opts.Stdout},
		logFile: logFile,
	}

	logger.Debug("Application starting",
		slog.String("version", contracts.GetVersionString()),
		slog.String("execution_mode", cfg.Run.ExecutionMode))
	paths.LogPathResolution(logger)

	traceCfg := cfg.Telemetry
	if traceCfg.TraceFile != "" && !filepath.IsAbs(traceCfg.TraceFile) {
		traceCfg.TraceFile = filepath.Join(paths.BaseDir, traceCfg.TraceFile)
	}
	if a.Tracing, err = infrastructure.InitializeTracing(traceCfg, opts.Stderr, logger); err != nil {
		a.closeLog()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	validator := validation.NewFileValidator(infrastructure.WithComponent(logger, "validation"))
	if err := validator.ValidateOutputDirectory(paths.OutputDir); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	if err := validator.ValidateInputDirectory(paths.InputDir, "*"); err != nil {
		// missing inputs are reported per pipeline, the run still goes ahead
		infrastructure.WithError(logger, err).Warn("Input directory not usable",
			slog.String("dir", paths.InputDir))
	}

	ref := config.DefaultReferenceData()
	a.Steps, err = operations.NewPipelineSteps(cfg, paths,
		pipelines.OptionsFromConfig(cfg, ref, logger),
		operations.StageOptions{
			Validator:   validator,
			Writer:      exporter.NewCSVWriter(paths, infrastructure.WithComponent(logger, "exporter")),
			WriteBOM:    cfg.Run.WriteBOM,
			PreviewOut:  a.stdout,
			PreviewRows: cfg.Run.PreviewRows,
			Logger:      logger,
		})
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}

	return a, nil
}

// Pipelines lists the registered pipelines in run order
func (a *Application) Pipelines() []PipelineInfo {
	return describe(a.Steps)
}

// Describe lists the pipelines cfg would run without touching the file
// system
func Describe(cfg *config.Config) ([]PipelineInfo, error) {
	paths, err := cfg.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	steps, err := operations.NewPipelineSteps(cfg, paths,
		pipelines.OptionsFromConfig(cfg, config.DefaultReferenceData(), slog.Default()),
		operations.StageOptions{})
	if err != nil {
		return nil, err
	}
	return describe(steps), nil
}

func describe(steps []*operations.PipelineStep) []PipelineInfo {
	out := make([]PipelineInfo, 0, len(steps))
	for _, s := range steps {
		out = append(out, PipelineInfo{
			ID:      s.ID(),
			Name:    s.Name(),
			Input:   s.InputFile(),
			Outputs: s.OutputFiles(),
		})
	}
	return out
}

// Run executes the selected pipelines, an empty selection meaning all of
// them, then saves the manifest and the metrics textfile when configured.
// The returned error joins pipeline failures with any reporting failure.
func (a *Application) Run(ctx context.Context, selection []string) (*RunResult, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	runID := infrastructure.GetRunID(ctx)

	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(ctx, "run")
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.StringSlice("run.pipelines", selection))
	defer span.End()

	registry := operations.NewRegistry()
	for _, s := range a.Steps {
		if err := registry.Register(s); err != nil {
			return nil, err
		}
	}

	manifest := operations.NewRunManifest(runID, a.clock)
	manager := operations.NewManager(registry, operations.ConfigFromApp(a.Config),
		operations.WithClock(a.clock),
		operations.WithLogger(a.Logger),
		operations.WithManifest(manifest),
		operations.WithMetrics(a.Metrics),
		operations.WithProgressReporter(&consoleReporter{out: a.stdout}),
	)

	resp, runErr := manager.Execute(ctx, operations.OperationRequest{ID: runID, Pipelines: selection})
	manifest.Finish(resp.Status, runErr)
	result := &RunResult{Response: resp, Manifest: manifest}

	errs := []error{runErr}
	if a.Config.Run.Manifest {
		result.ManifestPath = a.Paths.GetManifestPath()
		if err := manifest.SaveToFile(result.ManifestPath); err != nil {
			errs = append(errs, err)
		} else {
			a.Logger.InfoContext(ctx, "Manifest written", slog.String("path", result.ManifestPath))
		}
	}
	if file := a.Config.Run.MetricsFile; file != "" {
		if !filepath.IsAbs(file) {
			file = a.Paths.GetOutputPath(file)
		}
		result.MetricsPath = file
		if err := a.Metrics.WriteTextfile(file, a.clock.Now()); err != nil {
			errs = append(errs, err)
		} else {
			a.Logger.DebugContext(ctx, "Metrics written", slog.String("path", file))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(resp.Status))
	}
	return result, err
}

// Close flushes spans and releases the log file
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if err := a.Tracing.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down tracing: %w", err))
	}
	if err := a.closeLog(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
	}
	return errors.Join(errs...)
}

func (a *Application) closeLog() error {
	if a.logFile == nil {
		return nil
	}
	err := a.logFile.Close()
	a.logFile = nil
	return err
}

// syncWriter serializes writes from concurrently running pipelines
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// consoleReporter prints one line per finished pipeline
type consoleReporter struct {
	out io.Writer
}

func (r *consoleReporter) ReportProgress(stepID string, status operations.StepStatus, completed, total int) {
	fmt.Fprintf(r.out, "[%d/%d] %s %s\n", completed, total, stepID, status)
}
