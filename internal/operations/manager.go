package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"covidprep/internal/infrastructure"
)

// Manager orchestrates a run over the registered steps
type Manager struct {
	registry *Registry
	config   *Config
	clock    clockwork.Clock
	logger   *slog.Logger
	reporter ProgressReporter
	manifest *RunManifest
	metrics  MetricsSink
}

// ManagerOption customizes a Manager
type ManagerOption func(*Manager)

// WithClock replaces the wall clock, for tests
func WithClock(clock clockwork.Clock) ManagerOption {
	return func(m *Manager) { m.clock = clock }
}

// WithLogger sets the logger used for run and step events
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithProgressReporter registers a listener for finished steps
func WithProgressReporter(r ProgressReporter) ManagerOption {
	return func(m *Manager) { m.reporter = r }
}

// WithManifest records every step outcome in manifest
func WithManifest(manifest *RunManifest) ManagerOption {
	return func(m *Manager) { m.manifest = manifest }
}

// WithMetrics records every step outcome in sink
func WithMetrics(sink MetricsSink) ManagerOption {
	return func(m *Manager) { m.metrics = sink }
}

// NewManager creates a new manager
func NewManager(registry *Registry, config *Config, opts ...ManagerOption) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}

	m := &Manager{
		registry: registry,
		config:   config,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterStage registers a Step with the manager
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the registry of steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Execute runs the requested steps and returns their final states. The
// returned error joins every step failure.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = infrastructure.GetRunID(ctx)
	}
	if req.ID == "" {
		req.ID = infrastructure.GenerateRunID()
	}
	ctx = infrastructure.WithRunID(ctx, req.ID)

	state := NewOperationState(req.ID, m.clock.Now())

	steps, err := m.registry.Select(req.Pipelines)
	if err != nil {
		m.logger.ErrorContext(ctx, "Invalid pipeline selection",
			slog.Any("pipelines", req.Pipelines),
			slog.String("error", err.Error()))
		state.Fail(m.clock.Now(), err)
		return m.createResponse(state), err
	}

	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	state.Start(m.clock.Now())
	m.logger.InfoContext(ctx, "Run started",
		slog.Int("steps", len(steps)),
		slog.String("execution_mode", string(m.config.ExecutionMode)),
		slog.Bool("continue_on_error", m.config.ContinueOnError))

	tracker := NewProgressTracker(m.clock, len(steps))
	if m.config.ExecutionMode == ExecutionModeParallel {
		err = m.executeParallel(ctx, state, steps, tracker)
	} else {
		err = m.executeSequential(ctx, state, steps, tracker)
	}

	now := m.clock.Now()
	switch {
	case err != nil && ctx.Err() != nil:
		state.Cancel(now, err)
	case err != nil:
		state.Fail(now, err)
	default:
		state.Complete(now)
	}

	m.logger.InfoContext(ctx, "Run finished",
		slog.String("status", string(state.CurrentStatus())),
		slog.Int("completed", len(state.StepsWithStatus(StepStatusCompleted))),
		slog.Int("failed", len(state.StepsWithStatus(StepStatusFailed))),
		slog.Int("skipped", len(state.StepsWithStatus(StepStatusSkipped))),
		slog.Duration("duration", state.Duration()))

	return m.createResponse(state), err
}

// executeSequential executes steps one by one in registration order
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step, tracker *ProgressTracker) error {
	var errs []error
	for i, step := range steps {
		if ctx.Err() != nil {
			m.skipSteps(ctx, state, steps[i:], "operation cancelled", tracker)
			return errors.Join(append(errs, NewCancellationError(step.ID()))...)
		}

		if err := m.executeStage(ctx, state, step, tracker); err != nil {
			if !m.config.ContinueOnError {
				m.skipSteps(ctx, state, steps[i+1:], fmt.Sprintf("previous step %s failed", step.ID()), tracker)
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// executeParallel runs steps concurrently. Without ContinueOnError the first
// failure cancels the steps still running and skips those not yet started.
func (m *Manager) executeParallel(ctx context.Context, state *OperationState, steps []Step, tracker *ProgressTracker) error {
	var (
		g      *errgroup.Group
		runCtx = ctx
	)
	if m.config.ContinueOnError {
		g = new(errgroup.Group)
	} else {
		g, runCtx = errgroup.WithContext(ctx)
	}
	if m.config.MaxConcurrency > 0 {
		g.SetLimit(m.config.MaxConcurrency)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	for _, step := range steps {
		g.Go(func() error {
			if runCtx.Err() != nil {
				m.skipSteps(ctx, state, []Step{step}, "operation cancelled", tracker)
				return nil
			}
			err := m.executeStage(runCtx, state, step, tracker)
			if err == nil {
				return nil
			}
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			if m.config.ContinueOnError {
				return nil
			}
			return err
		})
	}
	_ = g.Wait()

	if len(errs) == 0 && ctx.Err() != nil {
		return NewCancellationError("")
	}
	return errors.Join(errs...)
}

// executeStage validates and runs a single step and records its outcome
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step, tracker *ProgressTracker) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		return NewFatalError(fmt.Sprintf("state for step %s not found", step.ID()), nil)
	}

	ctx = infrastructure.WithPipelineID(ctx, step.ID())
	stepState.Start(m.clock.Now())
	if m.manifest != nil {
		m.manifest.RecordStart(step.ID(), step.Name(), inputFileOf(step))
	}
	m.logger.InfoContext(ctx, "Step started", slog.String("step", step.ID()))

	if err := step.Validate(state); err != nil {
		return m.failStage(ctx, state, step, NewValidationError(step.ID(), err), tracker)
	}

	timeout := m.config.GetStageTimeout(step.ID())
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := step.Execute(stageCtx, state); err != nil {
		switch {
		case ctx.Err() != nil:
			cancelled := NewCancellationError(step.ID())
			cancelled.Cause = err
			err = cancelled
		case errors.Is(stageCtx.Err(), context.DeadlineExceeded):
			timedOut := NewTimeoutError(step.ID(), timeout.String())
			timedOut.Cause = err
			err = timedOut
		}
		return m.failStage(ctx, state, step, WrapError(err, step.ID()), tracker)
	}

	stepState.Complete(m.clock.Now())
	outcome, _ := GetOutcome(state, step.ID())
	if m.manifest != nil {
		m.manifest.RecordCompletion(step.ID(), outcome)
	}
	if m.metrics != nil {
		m.metrics.ObservePipeline(step.ID(), string(StepStatusCompleted), outcome.RowsIn, outcome.RowsOut, stepState.Duration())
		for _, d := range outcome.Diagnostics {
			m.metrics.ObserveDiagnostic(step.ID(), string(d.Code), d.Count)
		}
	}

	m.logger.InfoContext(ctx, "Step completed",
		slog.String("step", step.ID()),
		slog.Int("rows_in", outcome.RowsIn),
		slog.Int("rows_out", outcome.RowsOut),
		slog.Duration("duration", stepState.Duration()))
	m.finishStep(ctx, step.ID(), StepStatusCompleted, tracker)
	return nil
}

func (m *Manager) failStage(ctx context.Context, state *OperationState, step Step, err *OperationError, tracker *ProgressTracker) error {
	stepState := state.GetStage(step.ID())
	stepState.Fail(m.clock.Now(), err)

	rowsIn := 0
	if v, ok := stepState.GetMetadata(MetadataRowsIn); ok {
		rowsIn, _ = v.(int)
	}
	if m.manifest != nil {
		m.manifest.RecordFailure(step.ID(), rowsIn, err)
	}
	if m.metrics != nil {
		m.metrics.ObservePipeline(step.ID(), string(StepStatusFailed), rowsIn, 0, stepState.Duration())
	}

	m.logger.ErrorContext(ctx, "Step failed",
		slog.String("step", step.ID()),
		slog.String("error_type", string(err.Type)),
		slog.String("error", err.Error()))
	m.finishStep(ctx, step.ID(), StepStatusFailed, tracker)
	return err
}

// skipSteps marks steps that will not run
func (m *Manager) skipSteps(ctx context.Context, state *OperationState, steps []Step, reason string, tracker *ProgressTracker) {
	for _, step := range steps {
		stepState := state.GetStage(step.ID())
		if stepState == nil || stepState.CurrentStatus() != StepStatusPending {
			continue
		}
		stepState.Skip(m.clock.Now(), reason)
		if m.manifest != nil {
			m.manifest.RecordSkipped(step.ID(), step.Name(), reason)
		}
		if m.metrics != nil {
			m.metrics.ObservePipeline(step.ID(), string(StepStatusSkipped), 0, 0, 0)
		}
		m.logger.WarnContext(ctx, "Step skipped",
			slog.String("step", step.ID()),
			slog.String("reason", reason))
		m.finishStep(ctx, step.ID(), StepStatusSkipped, tracker)
	}
}

func (m *Manager) finishStep(ctx context.Context, stepID string, status StepStatus, tracker *ProgressTracker) {
	done := tracker.Increment(stepID)
	_, total, pct, _ := tracker.GetProgress()
	m.logger.DebugContext(ctx, "Run progress",
		slog.Int("finished", done),
		slog.Int("total", total),
		slog.Float64("percent", pct),
		slog.String("eta", tracker.GetETA()))
	if m.reporter != nil {
		m.reporter.ReportProgress(stepID, status, done, total)
	}
}

// createResponse creates a response from state
func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	resp := &OperationResponse{
		ID:       state.ID,
		Status:   state.CurrentStatus(),
		Duration: state.Duration(),
		Steps:    state.Snapshot(),
	}
	if err := state.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// inputFileOf returns the input path of steps that read one
func inputFileOf(step Step) string {
	if s, ok := step.(interface{ InputFile() string }); ok {
		return s.InputFile()
	}
	return ""
}

func outcomeKey(stepID string) string {
	return "outcome." + stepID
}

// SetOutcome publishes the result of a step for the manager to record
func SetOutcome(state *OperationState, stepID string, outcome PipelineOutcome) {
	state.SetContext(outcomeKey(stepID), outcome)
}

// GetOutcome returns the outcome published by a step
func GetOutcome(state *OperationState, stepID string) (PipelineOutcome, bool) {
	v, ok := state.GetContext(outcomeKey(stepID))
	if !ok {
		return PipelineOutcome{}, false
	}
	outcome, ok := v.(PipelineOutcome)
	return outcome, ok
}
