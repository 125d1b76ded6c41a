package operations

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"covidprep/internal/shared/testutil"
)

var testEpoch = time.Date(2022, time.August, 25, 9, 0, 0, 0, time.UTC)

// fakeStep is a Step whose behaviour is scripted by the test
type fakeStep struct {
	BaseStage
	validateErr error
	run         func(ctx context.Context, state *OperationState) error
}

func newFakeStep(id string, run func(ctx context.Context, state *OperationState) error) *fakeStep {
	return &fakeStep{BaseStage: NewBaseStage(id, "Fake "+id), run: run}
}

func (s *fakeStep) Validate(state *OperationState) error {
	return s.validateErr
}

func (s *fakeStep) Execute(ctx context.Context, state *OperationState) error {
	if s.run == nil {
		return nil
	}
	return s.run(ctx, state)
}

// succeed advances the fake clock by d and publishes outcome for step id
func succeed(clock *clockwork.FakeClock, id string, d time.Duration, outcome PipelineOutcome) func(context.Context, *OperationState) error {
	return func(ctx context.Context, state *OperationState) error {
		clock.Advance(d)
		SetOutcome(state, id, outcome)
		return nil
	}
}

// blockUntilDone waits for cancellation and returns the context error
func blockUntilDone(ctx context.Context, state *OperationState) error {
	<-ctx.Done()
	return ctx.Err()
}

// lockedBuffer is a bytes.Buffer safe for the writes of parallel steps
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type progressEvent struct {
	step      string
	status    StepStatus
	completed int
	total     int
}

type recordingReporter struct {
	mu     sync.Mutex
	events []progressEvent
}

func (r *recordingReporter) ReportProgress(stepID string, status StepStatus, completed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, progressEvent{stepID, status, completed, total})
}

type observation struct {
	status  string
	rowsIn  int
	rowsOut int
	d       time.Duration
}

type fakeMetrics struct {
	mu          sync.Mutex
	pipelines   map[string]observation
	diagnostics map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{pipelines: map[string]observation{}, diagnostics: map[string]int{}}
}

func (f *fakeMetrics) ObservePipeline(pipeline, status string, rowsIn, rowsOut int, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pipelines[pipeline] = observation{status, rowsIn, rowsOut, d}
}

func (f *fakeMetrics) ObserveDiagnostic(pipeline, code string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.diagnostics[pipeline+"/"+code] += n
}

type harness struct {
	clock    *clockwork.FakeClock
	manifest *RunManifest
	metrics  *fakeMetrics
	reporter *recordingReporter
	logs     *testutil.BufferedSlogHandler
	manager  *Manager
}

func newHarness(t *testing.T, cfg *Config) *harness {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	clock := clockwork.NewFakeClockAt(testEpoch)

	h := &harness{
		clock:    clock,
		manifest: NewRunManifest("run-1", clock),
		metrics:  newFakeMetrics(),
		reporter: &recordingReporter{},
		logs:     logs,
	}
	h.manager = NewManager(NewRegistry(), cfg,
		WithClock(clock),
		WithLogger(logger),
		WithManifest(h.manifest),
		WithMetrics(h.metrics),
		WithProgressReporter(h.reporter),
	)
	return h
}

func (h *harness) register(t *testing.T, steps ...Step) {
	t.Helper()
	for _, s := range steps {
		if err := h.manager.RegisterStage(s); err != nil {
			t.Fatalf("register %s: %v", s.ID(), err)
		}
	}
}

func statusOf(resp *OperationResponse, id string) StepStatus {
	if s, ok := resp.Steps[id]; ok {
		return s.Status
	}
	return ""
}
