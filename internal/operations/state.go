package operations

import (
	"sync"
	"time"
)

// OperationStatusValue represents the overall operation status
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState represents the complete state of one run
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	Steps map[string]*StepState `json:"steps"`

	// Context passes step results to whoever drives the run
	Context map[string]interface{} `json:"-"`

	Error error `json:"-"`
}

// NewOperationState creates a new operation state
func NewOperationState(id string, now time.Time) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: now,
		Steps:     make(map[string]*StepState),
		Context:   make(map[string]interface{}),
	}
}

// Start marks the operation as running
func (p *OperationState) Start(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = now
}

// Complete marks the operation as completed
func (p *OperationState) Complete(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the operation as failed
func (p *OperationState) Fail(now time.Time, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel(now time.Time, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
	p.Error = err
}

// CurrentStatus returns the status under the state lock
func (p *OperationState) CurrentStatus() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// Err returns the error that ended the run, if any
func (p *OperationState) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Error
}

// GetStage returns the state of a specific Step
func (p *OperationState) GetStage(stageID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stageID]
}

// SetStage updates the state of a specific Step
func (p *OperationState) SetStage(stageID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps[stageID] = state
}

// GetContext retrieves a value from the operation context
func (p *OperationState) GetContext(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Context[key]
	return val, ok
}

// SetContext sets a value in the operation context
func (p *OperationState) SetContext(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Context[key] = value
}

// Duration returns the duration of the run, zero until it ends
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime == nil {
		return 0
	}
	return p.EndTime.Sub(p.StartTime)
}

// StepsWithStatus returns the ids of steps in the given status, unordered
func (p *OperationState) StepsWithStatus(status StepStatus) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var ids []string
	for id, step := range p.Steps {
		if step.CurrentStatus() == status {
			ids = append(ids, id)
		}
	}
	return ids
}

// HasFailures returns true if any Step has failed
func (p *OperationState) HasFailures() bool {
	return len(p.StepsWithStatus(StepStatusFailed)) > 0
}

// IsComplete returns true if no step is pending or active
func (p *OperationState) IsComplete() bool {
	return len(p.StepsWithStatus(StepStatusPending)) == 0 &&
		len(p.StepsWithStatus(StepStatusActive)) == 0
}

// Snapshot copies the step states so callers can read them without locks
func (p *OperationState) Snapshot() map[string]*StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	steps := make(map[string]*StepState, len(p.Steps))
	for k, v := range p.Steps {
		steps[k] = v.clone()
	}
	return steps
}
