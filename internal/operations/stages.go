package operations

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"

	"covidprep/internal/config"
	"covidprep/internal/dataprocessing"
	"covidprep/internal/exporter"
	"covidprep/internal/pipelines"
)

// StageOptions holds the collaborators shared by every pipeline step
type StageOptions struct {
	Validator   InputValidator
	Writer      TableWriter
	Load        dataprocessing.LoadOptions
	WriteBOM    bool
	PreviewOut  io.Writer // nil disables the preview; shared by parallel steps
	PreviewRows int
	Logger      *slog.Logger
}

// PipelineStep loads one raw input, runs one pipeline over it and writes
// the processed table plus any artifacts the pipeline produces
type PipelineStep struct {
	BaseStage
	pipeline   pipelines.Pipeline
	inputPath  string
	outputFile string
	artifacts  map[string]string // artifact name -> output file
	options    StageOptions
	logger     *slog.Logger
}

// NewPipelineStep wraps p as a step reading inputPath and writing outputFile
func NewPipelineStep(p pipelines.Pipeline, inputPath, outputFile string, options StageOptions) *PipelineStep {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineStep{
		BaseStage:  NewBaseStage(p.ID(), p.Name()),
		pipeline:   p,
		inputPath:  inputPath,
		outputFile: outputFile,
		artifacts:  make(map[string]string),
		options:    options,
		logger:     logger.With(slog.String("step", p.ID())),
	}
}

// WithArtifact persists the named pipeline artifact to file
func (s *PipelineStep) WithArtifact(name, file string) *PipelineStep {
	s.artifacts[name] = file
	return s
}

// InputFile returns the raw input path
func (s *PipelineStep) InputFile() string {
	return s.inputPath
}

// OutputFile returns the configured main output file
func (s *PipelineStep) OutputFile() string {
	return s.outputFile
}

// OutputFiles returns the main output followed by the artifact files in
// name order
func (s *PipelineStep) OutputFiles() []string {
	names := make([]string, 0, len(s.artifacts))
	for name := range s.artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	files := []string{s.outputFile}
	for _, name := range names {
		files = append(files, s.artifacts[name])
	}
	return files
}

// Validate checks that the input file exists and has a supported format
func (s *PipelineStep) Validate(state *OperationState) error {
	if s.options.Validator == nil {
		return nil
	}
	return s.options.Validator.ValidateInputFile(s.inputPath)
}

// Execute runs the pipeline. Nothing is written unless the whole pipeline
// succeeds.
func (s *PipelineStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStage(s.ID())

	in, err := dataprocessing.LoadFile(ctx, s.inputPath, s.options.Load)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", filepath.Base(s.inputPath), err)
	}
	if stepState != nil {
		stepState.SetMetadata(MetadataInputFile, s.inputPath)
		stepState.SetMetadata(MetadataRowsIn, in.Len())
	}

	result, err := s.pipeline.Run(ctx, in)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	written := make([]string, 0, 1+len(s.artifacts))
	path, err := s.options.Writer.WriteTable(s.outputFile, result.Table, s.options.WriteBOM)
	if err != nil {
		return err
	}
	written = append(written, path)

	for _, a := range result.Artifacts {
		file, ok := s.artifacts[a.Name]
		if !ok {
			s.logger.DebugContext(ctx, "Artifact not persisted", slog.String("artifact", a.Name))
			continue
		}
		path, err := s.options.Writer.WriteTable(file, a.Table, s.options.WriteBOM)
		if err != nil {
			return err
		}
		written = append(written, path)
	}

	s.preview(result.Table)

	outcome := PipelineOutcome{
		OutputFiles: written,
		RowsIn:      result.RowsIn,
		RowsOut:     result.Table.Len(),
		Columns:     result.Table.Columns(),
		Diagnostics: result.Diagnostics.Entries(),
	}
	SetOutcome(state, s.ID(), outcome)
	if stepState != nil {
		stepState.SetMetadata(MetadataRowsOut, outcome.RowsOut)
		stepState.SetMetadata(MetadataOutputFiles, written)
	}

	s.logger.InfoContext(ctx, "Pipeline output written",
		slog.Any("files", written),
		slog.Int("rows", outcome.RowsOut),
		slog.Int("columns", len(outcome.Columns)))
	return nil
}

// preview renders the head of t in one write so parallel steps do not
// interleave their tables
func (s *PipelineStep) preview(t *dataprocessing.Table) {
	if s.options.PreviewOut == nil || s.options.PreviewRows <= 0 {
		return
	}
	var buf bytes.Buffer
	exporter.Preview(&buf, s.Name(), t, s.options.PreviewRows)
	s.options.PreviewOut.Write(buf.Bytes())
}

// NewPipelineSteps builds one step per configured pipeline in canonical
// order, resolving inputs and outputs against the configured directories
func NewPipelineSteps(cfg *config.Config, paths *config.Paths, popts pipelines.Options, options StageOptions) ([]*PipelineStep, error) {
	steps := make([]*PipelineStep, 0, len(config.PipelineIDs()))
	for _, id := range config.PipelineIDs() {
		p, err := pipelines.New(id, popts)
		if err != nil {
			return nil, fmt.Errorf("failed to build pipeline %s: %w", id, err)
		}
		files, _ := cfg.Pipeline(id)
		step := NewPipelineStep(p, paths.GetInputPath(files.InputFile), paths.GetOutputPath(files.OutputFile), options)
		if id == config.PipelineInterventions {
			step.WithArtifact(pipelines.DailyStringencyArtifact, paths.GetOutputPath(cfg.Pipelines.Interventions.DailyOutputFile))
		}
		steps = append(steps, step)
	}
	return steps, nil
}
