package operations

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidprep/internal/config"
	apperrors "covidprep/internal/errors"
	"covidprep/internal/exporter"
	"covidprep/internal/infrastructure"
	"covidprep/internal/pipelines"
	sharedtest "covidprep/internal/shared/testutil"
	"covidprep/internal/validation"
)

var casesHeader = strings.Split("country,continent,population,indicator,year_week,weekly_count,cumulative_count,rate_14_day,source,note", ",")

type stageFixture struct {
	cfg      *config.Config
	paths    *config.Paths
	preview  *lockedBuffer
	metrics  *infrastructure.Metrics
	manifest *RunManifest
	manager  *Manager
}

func newStageFixture(t *testing.T, mode ExecutionMode) *stageFixture {
	t.Helper()
	logger, _ := sharedtest.NewTestLogger(t)

	cfg := config.Default()
	cfg.Paths = config.PathsConfig{BaseDir: t.TempDir(), InputDir: "Data", OutputDir: "ProcessedData", LogsDir: "logs"}
	paths, err := cfg.GetPaths()
	require.NoError(t, err)

	popts := pipelines.DefaultOptions()
	popts.Logger = logger

	f := &stageFixture{
		cfg:      cfg,
		paths:    paths,
		preview:  &lockedBuffer{},
		metrics:  infrastructure.NewMetrics(),
		manifest: NewRunManifest("stage-run", nil),
	}
	steps, err := NewPipelineSteps(cfg, paths, popts, StageOptions{
		Validator:   validation.NewFileValidator(logger),
		Writer:      exporter.NewCSVWriter(paths, logger),
		PreviewOut:  f.preview,
		PreviewRows: 3,
		Logger:      logger,
	})
	require.NoError(t, err)

	registry := NewRegistry()
	for _, s := range steps {
		require.NoError(t, registry.Register(s))
	}
	f.manager = NewManager(registry,
		NewConfigBuilder().WithExecutionMode(mode).WithContinueOnError(true).Build(),
		WithLogger(logger),
		WithManifest(f.manifest),
		WithMetrics(f.metrics),
	)
	return f
}

func (f *stageFixture) writeCases(t *testing.T, header []string, rows ...[]string) {
	sharedtest.WriteCSV(t, f.paths.InputDir, config.CasesInputFile, header, rows...)
}

func (f *stageFixture) writeInterventions(t *testing.T) {
	sharedtest.WriteCSV(t, f.paths.InputDir, config.InterventionsInputFile,
		[]string{"Country", "Response_measure", "date_start", "date_end"},
		[]string{"France", "StayHomeOrder", "2020-03-17", "2020-05-11"},
		[]string{"France", "MasksMandatoryAllSpaces", "2020-03-17", ""},
		[]string{"Germany", "ClosSec", "2020-03-22", "2020-05-04"},
	)
}

func TestNewPipelineSteps(t *testing.T) {
	cfg := config.Default()
	cfg.Paths = config.PathsConfig{BaseDir: t.TempDir(), InputDir: "in", OutputDir: "out", LogsDir: "logs"}
	paths, err := cfg.GetPaths()
	require.NoError(t, err)

	steps, err := NewPipelineSteps(cfg, paths, pipelines.DefaultOptions(), StageOptions{})
	require.NoError(t, err)
	require.Len(t, steps, 4)

	var ids []string
	for _, s := range steps {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, config.PipelineIDs(), ids)

	assert.Equal(t, filepath.Join(paths.InputDir, config.TestingInputFile), steps[2].InputFile())
	assert.Equal(t, filepath.Join(paths.OutputDir, config.TestingOutputFile), steps[2].OutputFile())
	assert.Equal(t, filepath.Join(paths.OutputDir, config.InterventionsDailyOutputFile),
		steps[1].artifacts[pipelines.DailyStringencyArtifact])
	assert.Empty(t, steps[0].artifacts)
	assert.Equal(t, []string{
		filepath.Join(paths.OutputDir, config.InterventionsOutputFile),
		filepath.Join(paths.OutputDir, config.InterventionsDailyOutputFile),
	}, steps[1].OutputFiles())
}

func TestPipelineSteps_EndToEnd(t *testing.T) {
	for _, mode := range []ExecutionMode{ExecutionModeSequential, ExecutionModeParallel} {
		t.Run(string(mode), func(t *testing.T) {
			f := newStageFixture(t, mode)
			f.writeCases(t, casesHeader,
				[]string{"France", "Europe", "67000000", "cases", "2021-W05", "1000", "1000", "120.5", "TESSy", ""},
				[]string{"Canada", "America", "38000000", "cases", "2021-W05", "10", "10", "1", "TESSy", ""},
			)
			f.writeInterventions(t)

			resp, err := f.manager.Execute(context.Background(), OperationRequest{
				Pipelines: []string{StageIDCases, StageIDInterventions},
			})
			require.NoError(t, err)
			assert.Equal(t, OperationStatusCompleted, resp.Status)

			header, rows := sharedtest.ReadCSV(t, f.paths.GetOutputPath(config.CasesOutputFile))
			assert.Contains(t, header, "cases_per_million")
			assert.Equal(t, []string{"France"}, sharedtest.ColumnOf(t, header, rows, "country"))

			dailyHeader, dailyRows := sharedtest.ReadCSV(t, f.paths.GetOutputPath(config.InterventionsDailyOutputFile))
			assert.Equal(t, []string{"Country", "date_start", "stringency_score"}, dailyHeader)
			assert.Equal(t, []string{"France", "Germany"}, sharedtest.ColumnOf(t, dailyHeader, dailyRows, "Country"))
			assert.FileExists(t, f.paths.GetOutputPath(config.InterventionsOutputFile))

			rec, ok := f.manifest.Get(StageIDCases)
			require.True(t, ok)
			assert.Equal(t, "completed", rec.Status)
			assert.Equal(t, 2, rec.RowsIn)
			assert.Equal(t, 1, rec.RowsOut)
			assert.Equal(t, f.paths.GetInputPath(config.CasesInputFile), rec.InputFile)
			assert.Equal(t, header, rec.Columns)

			interventions, _ := f.manifest.Get(StageIDInterventions)
			assert.Len(t, interventions.OutputFiles, 2)

			assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.RowsRead.WithLabelValues(StageIDCases)), 1e-9)
			assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.RowsWritten.WithLabelValues(StageIDCases)), 1e-9)
			assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.PipelineRuns.WithLabelValues(StageIDInterventions, "completed")), 1e-9)

			out := f.preview.String()
			assert.Contains(t, out, "Cases and deaths")
			assert.Contains(t, out, "Intervention stringency")
			assert.Contains(t, out, "[1 rows x 10 columns]")
		})
	}
}

func TestPipelineSteps_MissingInput(t *testing.T) {
	f := newStageFixture(t, ExecutionModeSequential)

	resp, err := f.manager.Execute(context.Background(), OperationRequest{Pipelines: []string{StageIDTesting}})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeValidation, GetErrorType(err))
	assert.Equal(t, apperrors.CodeInputNotFound, apperrors.CodeOf(err))
	assert.Equal(t, StepStatusFailed, statusOf(resp, StageIDTesting))

	assert.NoFileExists(t, f.paths.GetOutputPath(config.TestingOutputFile))
	rec, _ := f.manifest.Get(StageIDTesting)
	assert.Equal(t, "failed", rec.Status)
	assert.Contains(t, rec.Error, "INPUT_NOT_FOUND")
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.PipelineRuns.WithLabelValues(StageIDTesting, "failed")), 1e-9)
}

func TestPipelineSteps_FailureWritesNothing(t *testing.T) {
	f := newStageFixture(t, ExecutionModeSequential)
	f.writeCases(t,
		[]string{"country", "indicator", "year_week"},
		[]string{"France", "cases", "2021-W05"},
	)
	f.writeInterventions(t)

	resp, err := f.manager.Execute(context.Background(), OperationRequest{
		Pipelines: []string{StageIDCases, StageIDInterventions},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeMissingColumn, apperrors.CodeOf(err))
	assert.Equal(t, StepStatusFailed, statusOf(resp, StageIDCases))
	assert.Equal(t, StepStatusCompleted, statusOf(resp, StageIDInterventions))

	assert.NoFileExists(t, f.paths.GetOutputPath(config.CasesOutputFile))
	entries, err := os.ReadDir(f.paths.OutputDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover %s", e.Name())
	}

	rec, _ := f.manifest.Get(StageIDCases)
	assert.Equal(t, 1, rec.RowsIn)
	assert.NotContains(t, f.preview.String(), "Cases and deaths")
}

func TestPipelineStep_ValidateUnsupportedFormat(t *testing.T) {
	logger, _ := sharedtest.NewTestLogger(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "cases.json")
	require.NoError(t, os.WriteFile(input, []byte("{}"), 0644))

	p, err := pipelines.New(config.PipelineCases, pipelines.DefaultOptions())
	require.NoError(t, err)
	step := NewPipelineStep(p, input, filepath.Join(dir, "out.csv"), StageOptions{
		Validator: validation.NewFileValidator(logger),
	})

	err = step.Validate(NewOperationState("run", testEpoch))
	assert.Equal(t, apperrors.CodeUnsupportedFormat, apperrors.CodeOf(err))

	unvalidated := NewPipelineStep(p, input, "out.csv", StageOptions{})
	assert.NoError(t, unvalidated.Validate(nil))
}
