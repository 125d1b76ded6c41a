package operations

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"covidprep/internal/dataprocessing"
	"covidprep/pkg/contracts"
)

// RunManifest records what one run read, produced and flagged.
// It is the single source of truth for a run's outcome on disk.
type RunManifest struct {
	mu    sync.RWMutex
	clock clockwork.Clock

	ID        string     `json:"id"`
	RunID     string     `json:"run_id"`
	Version   string     `json:"version"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Status    string     `json:"status"`
	Error     string     `json:"error,omitempty"`

	Pipelines []PipelineRecord `json:"pipelines"`
}

// PipelineRecord tracks the execution of a single pipeline
type PipelineRecord struct {
	ID          string                           `json:"id"`
	Name        string                           `json:"name"`
	Status      string                           `json:"status"` // "running", "completed", "failed", "skipped"
	InputFile   string                           `json:"input_file,omitempty"`
	OutputFiles []string                         `json:"output_files,omitempty"`
	RowsIn      int                              `json:"rows_in"`
	RowsOut     int                              `json:"rows_out"`
	Columns     []string                         `json:"columns,omitempty"`
	Diagnostics []dataprocessing.DiagnosticEntry `json:"diagnostics,omitempty"`
	StartTime   time.Time                        `json:"start_time"`
	EndTime     *time.Time                       `json:"end_time,omitempty"`
	Duration    string                           `json:"duration,omitempty"`
	Error       string                           `json:"error,omitempty"`
}

// PipelineOutcome is what a successful pipeline reports to the manifest
type PipelineOutcome struct {
	OutputFiles []string
	RowsIn      int
	RowsOut     int
	Columns     []string
	Diagnostics []dataprocessing.DiagnosticEntry
}

// NewRunManifest creates a manifest for the run identified by runID
func NewRunManifest(runID string, clock clockwork.Clock) *RunManifest {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RunManifest{
		clock:     clock,
		ID:        uuid.New().String(),
		RunID:     runID,
		Version:   contracts.Version,
		StartTime: clock.Now().UTC(),
		Status:    string(OperationStatusRunning),
		Pipelines: []PipelineRecord{},
	}
}

// find returns the index of the record for id; callers hold the lock
func (m *RunManifest) find(id string) int {
	for i := range m.Pipelines {
		if m.Pipelines[i].ID == id {
			return i
		}
	}
	return -1
}

// RecordStart records the start of a pipeline, resetting any earlier attempt
func (m *RunManifest) RecordStart(id, name, inputFile string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := PipelineRecord{
		ID:        id,
		Name:      name,
		Status:    string(StepStatusActive),
		InputFile: inputFile,
		StartTime: m.clock.Now().UTC(),
	}
	if i := m.find(id); i >= 0 {
		m.Pipelines[i] = rec
		return
	}
	m.Pipelines = append(m.Pipelines, rec)
}

// RecordCompletion records the outputs of a finished pipeline
func (m *RunManifest) RecordCompletion(id string, outcome PipelineOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(id)
	if i < 0 {
		return
	}
	rec := &m.Pipelines[i]
	m.finishRecord(rec, StepStatusCompleted)
	rec.OutputFiles = append([]string(nil), outcome.OutputFiles...)
	rec.RowsIn = outcome.RowsIn
	rec.RowsOut = outcome.RowsOut
	rec.Columns = append([]string(nil), outcome.Columns...)
	rec.Diagnostics = append([]dataprocessing.DiagnosticEntry(nil), outcome.Diagnostics...)
}

// RecordFailure records a pipeline failure. rowsIn is the number of rows
// loaded before the failure, zero when loading itself failed.
func (m *RunManifest) RecordFailure(id string, rowsIn int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(id)
	if i < 0 {
		return
	}
	rec := &m.Pipelines[i]
	m.finishRecord(rec, StepStatusFailed)
	rec.RowsIn = rowsIn
	if err != nil {
		rec.Error = err.Error()
	}
}

// RecordSkipped records a pipeline that never started
func (m *RunManifest) RecordSkipped(id, name, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now().UTC()
	rec := PipelineRecord{ID: id, Name: name, Status: string(StepStatusSkipped), StartTime: now, EndTime: &now, Error: reason}
	if i := m.find(id); i >= 0 {
		m.Pipelines[i] = rec
		return
	}
	m.Pipelines = append(m.Pipelines, rec)
}

func (m *RunManifest) finishRecord(rec *PipelineRecord, status StepStatus) {
	now := m.clock.Now().UTC()
	rec.EndTime = &now
	rec.Duration = now.Sub(rec.StartTime).String()
	rec.Status = string(status)
}

// Finish stamps the end of the run with its final status
func (m *RunManifest) Finish(status OperationStatusValue, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now().UTC()
	m.EndTime = &now
	m.Status = string(status)
	if err != nil {
		m.Error = err.Error()
	}
}

// Get returns a copy of the record for one pipeline
func (m *RunManifest) Get(id string) (PipelineRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.find(id); i >= 0 {
		return m.Pipelines[i], true
	}
	return PipelineRecord{}, false
}

// SaveToFile writes the manifest as indented JSON. The file is replaced
// atomically so a reader never sees a partial manifest.
func (m *RunManifest) SaveToFile(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create manifest file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}

// LoadManifestFromFile loads a manifest written by SaveToFile
func LoadManifestFromFile(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	manifest := &RunManifest{clock: clockwork.NewRealClock()}
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return manifest, nil
}
