package operations

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	p := NewProgressTracker(clock, 4)

	assert.Equal(t, "calculating...", p.GetETA())
	assert.False(t, p.IsComplete())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, p.Increment("cases"))

	current, total, pct, msg := p.GetProgress()
	assert.Equal(t, 1, current)
	assert.Equal(t, 4, total)
	assert.InDelta(t, 25.0, pct, 1e-9)
	assert.Equal(t, "cases", msg)
	assert.Equal(t, "1.5 minutes", p.GetETA())
	assert.Equal(t, 30*time.Second, p.GetElapsedTime())

	p.Increment("interventions")
	p.Increment("testing")
	assert.Equal(t, "10 seconds", p.GetETA())

	p.Increment("vaccination")
	assert.True(t, p.IsComplete())
	assert.Equal(t, "done", p.GetETA())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{12 * time.Second, "12 seconds"},
		{90 * time.Second, "1.5 minutes"},
		{150 * time.Minute, "2.5 hours"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}
