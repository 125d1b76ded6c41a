package operations

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ProgressTracker counts finished steps of a run
type ProgressTracker struct {
	clock     clockwork.Clock
	total     int
	current   int
	startTime time.Time
	message   string
	mu        sync.Mutex
}

// NewProgressTracker creates a tracker for total steps
func NewProgressTracker(clock clockwork.Clock, total int) *ProgressTracker {
	return &ProgressTracker{
		clock:     clock,
		total:     total,
		startTime: clock.Now(),
	}
}

// Increment records one more finished step and returns the new count
func (p *ProgressTracker) Increment(message string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	p.message = message
	return p.current
}

// GetProgress returns the current progress state
func (p *ProgressTracker) GetProgress() (current, total int, percentage float64, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100
	}
	return p.current, p.total, percentage, p.message
}

// GetETA estimates the remaining time from the average step duration
func (p *ProgressTracker) GetETA() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == 0 || p.total == 0 {
		return "calculating..."
	}
	if p.current >= p.total {
		return "done"
	}

	perStep := p.clock.Since(p.startTime) / time.Duration(p.current)
	return formatDuration(perStep * time.Duration(p.total-p.current))
}

// IsComplete returns true once every step has finished
func (p *ProgressTracker) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.current >= p.total
}

// GetElapsedTime returns the elapsed time since start
func (p *ProgressTracker) GetElapsedTime() time.Duration {
	return p.clock.Since(p.startTime)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0f seconds", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	default:
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
}
