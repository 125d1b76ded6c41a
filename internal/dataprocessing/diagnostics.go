package dataprocessing

import (
	"context"
	"sort"
	"sync"

	apperrors "covidprep/internal/errors"
)

// DiagnosticEntry is the count of one non-fatal condition on one column
type DiagnosticEntry struct {
	Code   apperrors.Code `json:"code"`
	Column string         `json:"column"`
	Count  int            `json:"count"`
}

type diagnosticKey struct {
	code   apperrors.Code
	column string
}

// Diagnostics counts non-fatal conditions raised while transforming a table.
// A nil *Diagnostics discards everything.
type Diagnostics struct {
	mu     sync.Mutex
	counts map[diagnosticKey]int
}

// NewDiagnostics creates an empty collector
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{counts: make(map[diagnosticKey]int)}
}

// Record adds n occurrences of code on column
func (d *Diagnostics) Record(code apperrors.Code, column string, n int) {
	if d == nil || n <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts[diagnosticKey{code: code, column: column}] += n
}

// Count returns the occurrences of code on column
func (d *Diagnostics) Count(code apperrors.Code, column string) int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[diagnosticKey{code: code, column: column}]
}

// Total returns the occurrences of code across all columns
func (d *Diagnostics) Total(code apperrors.Code) int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for k, n := range d.counts {
		if k.code == code {
			total += n
		}
	}
	return total
}

// Entries returns every count sorted by code then column
func (d *Diagnostics) Entries() []DiagnosticEntry {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DiagnosticEntry, 0, len(d.counts))
	for k, n := range d.counts {
		out = append(out, DiagnosticEntry{Code: k.code, Column: k.column, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Column < out[j].Column
	})
	return out
}

type diagnosticsKey struct{}

// WithDiagnostics attaches d to ctx
func WithDiagnostics(ctx context.Context, d *Diagnostics) context.Context {
	return context.WithValue(ctx, diagnosticsKey{}, d)
}

// DiagnosticsFrom returns the collector attached to ctx, or nil
func DiagnosticsFrom(ctx context.Context) *Diagnostics {
	d, _ := ctx.Value(diagnosticsKey{}).(*Diagnostics)
	return d
}
