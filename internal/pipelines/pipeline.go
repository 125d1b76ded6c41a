package pipelines

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"covidprep/internal/config"
	"covidprep/internal/dataprocessing"
	apperrors "covidprep/internal/errors"
)

// Pipeline turns one raw table into one processed table
type Pipeline interface {
	ID() string
	Name() string
	RequiredColumns() []string
	Run(ctx context.Context, in *dataprocessing.Table) (*Result, error)
}

// Artifact is a secondary table produced alongside the main output
type Artifact struct {
	Name  string
	Table *dataprocessing.Table
}

// Result is the outcome of a successful run
type Result struct {
	Table       *dataprocessing.Table
	Artifacts   []Artifact
	Diagnostics *dataprocessing.Diagnostics
	RowsIn      int
	Duration    time.Duration
}

// Artifact returns the secondary table with the given name
func (r *Result) Artifact(name string) (*dataprocessing.Table, bool) {
	for _, a := range r.Artifacts {
		if a.Name == name {
			return a.Table, true
		}
	}
	return nil, false
}

// Options configures pipeline construction
type Options struct {
	Reference  config.ReferenceData
	Logger     *slog.Logger
	WeekMode   string
	WindowMode string
	WindowSize int

	// GroupByIndicator keeps a separate case/death running total per indicator
	GroupByIndicator bool
}

// OptionsFromConfig builds Options from the loaded configuration
func OptionsFromConfig(cfg *config.Config, ref config.ReferenceData, logger *slog.Logger) Options {
	return Options{
		Reference:  ref,
		Logger:     logger,
		WeekMode:   cfg.Pipelines.Testing.WeekMode,
		WindowMode: cfg.Pipelines.Vaccination.WindowMode,
		WindowSize: cfg.Pipelines.Vaccination.WindowSize,

		GroupByIndicator: cfg.Pipelines.Cases.GroupByIndicator,
	}
}

// DefaultOptions returns options with the built-in reference data and defaults
func DefaultOptions() Options {
	return Options{
		Reference:  config.DefaultReferenceData(),
		Logger:     slog.Default(),
		WeekMode:   config.WeekModeISO,
		WindowMode: config.WindowModeRows,
		WindowSize: config.DefaultWindowSize,
	}
}

// New constructs the pipeline registered under id
func New(id string, opts Options) (Pipeline, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	switch id {
	case config.PipelineCases:
		return NewCaseDeath(opts), nil
	case config.PipelineInterventions:
		return NewStringency(opts), nil
	case config.PipelineTesting:
		return NewTesting(opts)
	case config.PipelineVaccination:
		return NewVaccination(opts)
	default:
		return nil, fmt.Errorf("unknown pipeline %q", id)
	}
}

// All constructs every pipeline in canonical order
func All(opts Options) ([]Pipeline, error) {
	var out []Pipeline
	for _, id := range config.PipelineIDs() {
		p, err := New(id, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// base carries the identity shared by every pipeline and runs the common
// prologue and epilogue around the pipeline body
type base struct {
	id       string
	name     string
	required []string
	logger   *slog.Logger
}

func (b *base) ID() string   { return b.id }
func (b *base) Name() string { return b.name }

func (b *base) RequiredColumns() []string {
	return append([]string(nil), b.required...)
}

type body func(ctx context.Context, t *dataprocessing.Table) (*dataprocessing.Table, []Artifact, error)

// run validates the input schema, then applies fn to a private copy of in
// with a fresh diagnostics collector on the context
func (b *base) run(ctx context.Context, in *dataprocessing.Table, fn body) (*Result, error) {
	ctx, span := otel.Tracer("covidprep/pipelines").Start(ctx, "pipeline."+b.id)
	defer span.End()

	logger := b.logger.With(slog.String("pipeline", b.id))
	start := time.Now()

	logger.InfoContext(ctx, "Pipeline started", slog.Int("rows_in", in.Len()))

	if err := in.Require(b.required...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "Input schema check failed", slog.String("error", err.Error()))
		return nil, apperrors.WithPipeline(err, b.id)
	}

	diag := dataprocessing.NewDiagnostics()
	out, artifacts, err := fn(dataprocessing.WithDiagnostics(ctx, diag), in.Clone())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "Pipeline failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("pipeline %s: %w", b.id, apperrors.WithPipeline(err, b.id))
	}

	result := &Result{
		Table:       out,
		Artifacts:   artifacts,
		Diagnostics: diag,
		RowsIn:      in.Len(),
		Duration:    time.Since(start),
	}

	span.SetAttributes(
		attribute.String("pipeline.id", b.id),
		attribute.Int("rows.in", result.RowsIn),
		attribute.Int("rows.out", out.Len()),
	)

	for _, e := range diag.Entries() {
		level := slog.LevelInfo
		if e.Code == apperrors.CodeCumulativeMismatch {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "Pipeline diagnostic",
			slog.String("code", string(e.Code)),
			slog.String("column", e.Column),
			slog.Int("count", e.Count))
	}

	logger.InfoContext(ctx, "Pipeline completed",
		slog.Int("rows_in", result.RowsIn),
		slog.Int("rows_out", out.Len()),
		slog.Int("artifacts", len(artifacts)),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// chain starts a transform chain logging through the pipeline logger
func (b *base) chain(steps ...dataprocessing.Transform) *dataprocessing.Chain {
	return dataprocessing.NewChain(b.id, steps...).WithLogger(b.logger.With(slog.String("pipeline", b.id)))
}

// keepCountries returns a filter step keeping rows whose col is in the allow-list
func keepCountries(col string, countries config.CountrySet) dataprocessing.Transform {
	return dataprocessing.NewTransform("filter_countries", func(_ context.Context, t *dataprocessing.Table) (*dataprocessing.Table, error) {
		if err := t.Require(col); err != nil {
			return nil, err
		}
		return t.Filter(func(r dataprocessing.RowView) bool {
			name, ok := r.Str(col)
			return ok && countries.Contains(name)
		}), nil
	})
}

// sortBy returns a stable sort step
func sortBy(cols ...string) dataprocessing.Transform {
	return dataprocessing.NewTransform("sort", func(_ context.Context, t *dataprocessing.Table) (*dataprocessing.Table, error) {
		return t.SortBy(cols...)
	})
}

// dropColumns returns a step removing cols, ignoring absent ones
func dropColumns(cols ...string) dataprocessing.Transform {
	return dataprocessing.InPlace("drop_columns", func(_ context.Context, t *dataprocessing.Table) error {
		t.Drop(cols...)
		return nil
	})
}

// countMismatches compares two columns row by row and records the rows
// that differ, including rows where either side is null
func countMismatches(ctx context.Context, t *dataprocessing.Table, a, b, flagCol string) {
	mismatches := 0
	t.Derive(flagCol, func(r dataprocessing.RowView) dataprocessing.Value {
		x, y := r.Get(a), r.Get(b)
		ok := !x.IsNull() && !y.IsNull() && x.Equal(y)
		if !ok {
			mismatches++
		}
		return dataprocessing.BoolValue(ok)
	})
	dataprocessing.DiagnosticsFrom(ctx).Record(apperrors.CodeCumulativeMismatch, a, mismatches)
}
