package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "covidprep/dataprocessing"

// Transform is one step applied to a table. Apply may modify t in place and
// return it, or return a new table.
type Transform interface {
	Name() string
	Apply(ctx context.Context, t *Table) (*Table, error)
}

type transformFunc struct {
	name string
	fn   func(ctx context.Context, t *Table) (*Table, error)
}

func (f transformFunc) Name() string { return f.name }

func (f transformFunc) Apply(ctx context.Context, t *Table) (*Table, error) {
	return f.fn(ctx, t)
}

// NewTransform adapts a function into a named Transform
func NewTransform(name string, fn func(ctx context.Context, t *Table) (*Table, error)) Transform {
	return transformFunc{name: name, fn: fn}
}

// InPlace adapts a function that mutates the table into a named Transform
func InPlace(name string, fn func(ctx context.Context, t *Table) error) Transform {
	return transformFunc{name: name, fn: func(ctx context.Context, t *Table) (*Table, error) {
		if err := fn(ctx, t); err != nil {
			return nil, err
		}
		return t, nil
	}}
}

// Chain applies transforms in sequence, each seeing the previous result
type Chain struct {
	name   string
	steps  []Transform
	logger *slog.Logger
}

// NewChain creates a chain of steps
func NewChain(name string, steps ...Transform) *Chain {
	return &Chain{name: name, steps: steps, logger: slog.Default()}
}

// WithLogger sets the logger used for per-step debug output
func (c *Chain) WithLogger(logger *slog.Logger) *Chain {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Add appends a step
func (c *Chain) Add(t Transform) *Chain {
	c.steps = append(c.steps, t)
	return c
}

// Steps returns the step names in order
func (c *Chain) Steps() []string {
	names := make([]string, len(c.steps))
	for i, s := range c.steps {
		names[i] = s.Name()
	}
	return names
}

// Run applies every step to t. It stops at the first error or when ctx is done.
func (c *Chain) Run(ctx context.Context, t *Table) (*Table, error) {
	tracer := otel.Tracer(tracerName)
	cur := t
	for _, step := range c.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stepCtx, span := tracer.Start(ctx, c.name+"."+step.Name())
		rowsIn := cur.Len()
		start := time.Now()

		next, err := step.Apply(stepCtx, cur)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		span.SetAttributes(
			attribute.Int("rows.in", rowsIn),
			attribute.Int("rows.out", next.Len()),
		)
		span.End()

		c.logger.DebugContext(ctx, "Transform applied",
			slog.String("chain", c.name),
			slog.String("step", step.Name()),
			slog.Int("rows_in", rowsIn),
			slog.Int("rows_out", next.Len()),
			slog.Duration("duration", time.Since(start)))

		cur = next
	}
	return cur, nil
}
