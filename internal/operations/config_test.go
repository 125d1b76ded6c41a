package operations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"covidprep/internal/config"
)

func TestConfigBuilder(t *testing.T) {
	cfg := NewConfigBuilder().
		WithExecutionMode(ExecutionModeParallel).
		WithStageTimeout("cases", time.Minute).
		WithContinueOnError(true).
		WithMaxConcurrency(3).
		Build()

	assert.Equal(t, ExecutionModeParallel, cfg.ExecutionMode)
	assert.Equal(t, time.Minute, cfg.GetStageTimeout("cases"))
	assert.Equal(t, DefaultStageTimeout, cfg.GetStageTimeout("testing"))
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, 3, cfg.MaxConcurrency)

	var zero Config
	zero.SetStageTimeout("x", time.Second)
	assert.Equal(t, time.Second, zero.GetStageTimeout("x"))
}

func TestConfigFromApp(t *testing.T) {
	assert.Equal(t, NewConfig(), ConfigFromApp(nil))

	app := config.Default()
	cfg := ConfigFromApp(app)
	assert.Equal(t, ExecutionModeSequential, cfg.ExecutionMode)
	assert.False(t, cfg.ContinueOnError)

	app.Run.ExecutionMode = config.ExecutionParallel
	app.Run.ContinueOnError = true
	app.Run.MaxConcurrency = 2
	cfg = ConfigFromApp(app)
	assert.Equal(t, ExecutionModeParallel, cfg.ExecutionMode)
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, 2, cfg.MaxConcurrency)
}
