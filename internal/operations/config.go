package operations

import (
	"time"

	"covidprep/internal/config"
)

// Config represents the run execution configuration
type Config struct {
	// Execution mode (sequential or parallel)
	ExecutionMode ExecutionMode `json:"execution_mode"`

	// Step-specific timeouts
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`

	// Whether the remaining pipelines still run after one fails
	ContinueOnError bool `json:"continue_on_error"`

	// Maximum concurrent steps in parallel mode, 0 means unlimited
	MaxConcurrency int `json:"max_concurrency"`
}

// NewConfig returns the default run configuration
func NewConfig() *Config {
	return &Config{
		ExecutionMode:   ExecutionModeSequential,
		StageTimeouts:   make(map[string]time.Duration),
		ContinueOnError: false,
	}
}

// ConfigFromApp derives the run configuration from the application config
func ConfigFromApp(cfg *config.Config) *Config {
	c := NewConfig()
	if cfg == nil {
		return c
	}
	if cfg.Run.ExecutionMode != "" {
		c.ExecutionMode = ExecutionMode(cfg.Run.ExecutionMode)
	}
	c.ContinueOnError = cfg.Run.ContinueOnError
	c.MaxConcurrency = cfg.Run.MaxConcurrency
	return c
}

// GetStageTimeout returns the timeout for a specific Step
func (c *Config) GetStageTimeout(stageID string) time.Duration {
	if timeout, ok := c.StageTimeouts[stageID]; ok {
		return timeout
	}
	return DefaultStageTimeout
}

// SetStageTimeout sets the timeout for a specific Step
func (c *Config) SetStageTimeout(stageID string, timeout time.Duration) {
	if c.StageTimeouts == nil {
		c.StageTimeouts = make(map[string]time.Duration)
	}
	c.StageTimeouts[stageID] = timeout
}

// ConfigBuilder provides a fluent interface for building run configurations
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: NewConfig(),
	}
}

// WithExecutionMode sets the execution mode
func (b *ConfigBuilder) WithExecutionMode(mode ExecutionMode) *ConfigBuilder {
	b.config.ExecutionMode = mode
	return b
}

// WithStageTimeout sets the timeout for a Step
func (b *ConfigBuilder) WithStageTimeout(stageID string, timeout time.Duration) *ConfigBuilder {
	b.config.SetStageTimeout(stageID, timeout)
	return b
}

// WithContinueOnError sets whether to continue on errors
func (b *ConfigBuilder) WithContinueOnError(continueOnError bool) *ConfigBuilder {
	b.config.ContinueOnError = continueOnError
	return b
}

// WithMaxConcurrency sets the maximum concurrency
func (b *ConfigBuilder) WithMaxConcurrency(maxConcurrency int) *ConfigBuilder {
	b.config.MaxConcurrency = maxConcurrency
	return b
}

// Build returns the built configuration
func (b *ConfigBuilder) Build() *Config {
	return b.config
}
