package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Code classifies a pipeline error
type Code string

const (
	// Fatal codes halt the pipeline and suppress its output file
	CodeMissingColumn     Code = "MISSING_COLUMN"
	CodeInputNotFound     Code = "INPUT_NOT_FOUND"
	CodeUnsupportedFormat Code = "UNSUPPORTED_FORMAT"
	CodeMalformedInput    Code = "MALFORMED_INPUT"
	CodeWriteFailed       Code = "WRITE_FAILED"

	// Non-fatal codes are counted as diagnostics; the offending cell becomes null
	CodeUnparseableValue   Code = "UNPARSEABLE_VALUE"
	CodeDivisionByZero     Code = "DIVISION_BY_ZERO"
	CodeCumulativeMismatch Code = "CUMULATIVE_MISMATCH"
	CodeFilledValue        Code = "FILLED_VALUE"
)

// IsFatal reports whether errors carrying this code stop a pipeline
func (c Code) IsFatal() bool {
	switch c {
	case CodeMissingColumn, CodeInputNotFound, CodeUnsupportedFormat, CodeMalformedInput, CodeWriteFailed:
		return true
	default:
		return false
	}
}

// PipelineError represents a structured error raised while transforming a table
type PipelineError struct {
	Code     Code        `json:"code"`
	Pipeline string      `json:"pipeline,omitempty"`
	Column   string      `json:"column,omitempty"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Cause    error       `json:"-"`
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(e.Code))
	b.WriteString("]")
	if e.Pipeline != "" {
		b.WriteString(" ")
		b.WriteString(e.Pipeline)
		b.WriteString(":")
	}
	b.WriteString(" ")
	b.WriteString(e.Message)
	if e.Column != "" {
		fmt.Fprintf(&b, " (column %q)", e.Column)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is matches any *PipelineError with the same code, so sentinels work with errors.Is
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new PipelineError
func New(code Code, message string) *PipelineError {
	return &PipelineError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails creates a new PipelineError with additional details
func NewWithDetails(code Code, message string, details interface{}) *PipelineError {
	return &PipelineError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Predefined errors for errors.Is comparisons
var (
	ErrMissingColumn     = New(CodeMissingColumn, "required column is missing")
	ErrInputNotFound     = New(CodeInputNotFound, "input file not found")
	ErrUnsupportedFormat = New(CodeUnsupportedFormat, "unsupported input format")
	ErrMalformedInput    = New(CodeMalformedInput, "malformed input")
	ErrWriteFailed       = New(CodeWriteFailed, "failed to write output")
	ErrUnparseableValue  = New(CodeUnparseableValue, "value could not be parsed")
	ErrDivisionByZero    = New(CodeDivisionByZero, "division by zero")
)

// MissingColumns creates a fatal error listing every absent column
func MissingColumns(columns ...string) *PipelineError {
	e := NewWithDetails(CodeMissingColumn,
		fmt.Sprintf("required column(s) missing: %s", strings.Join(columns, ", ")),
		append([]string(nil), columns...))
	if len(columns) == 1 {
		e.Column = columns[0]
	}
	return e
}

// InputNotFound creates an error for an absent input file
func InputNotFound(path string, cause error) *PipelineError {
	e := NewWithDetails(CodeInputNotFound, fmt.Sprintf("input file %s not found", path), path)
	e.Cause = cause
	return e
}

// UnsupportedFormat creates an error for an input with an unknown extension
func UnsupportedFormat(path string) *PipelineError {
	return NewWithDetails(CodeUnsupportedFormat, fmt.Sprintf("unsupported input format for %s", path), path)
}

// MalformedInput wraps a decoding failure of an input file
func MalformedInput(path string, cause error) *PipelineError {
	e := NewWithDetails(CodeMalformedInput, fmt.Sprintf("malformed input %s", path), path)
	e.Cause = cause
	return e
}

// WriteFailed wraps an output failure
func WriteFailed(path string, cause error) *PipelineError {
	e := NewWithDetails(CodeWriteFailed, fmt.Sprintf("failed to write %s", path), path)
	e.Cause = cause
	return e
}

// WithPipeline returns err annotated with the pipeline name when it is a PipelineError.
// Wrapped errors are returned unchanged so their wrapping context is preserved.
func WithPipeline(err error, pipeline string) error {
	pErr, ok := err.(*PipelineError)
	if !ok || pErr.Pipeline != "" {
		return err
	}
	annotated := *pErr
	annotated.Pipeline = pipeline
	return &annotated
}

// CodeOf returns the code of the first PipelineError in err's chain
func CodeOf(err error) Code {
	var pErr *PipelineError
	if stderrors.As(err, &pErr) {
		return pErr.Code
	}
	return ""
}

// IsFatal reports whether err must halt a pipeline.
// Errors that are not PipelineErrors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	code := CodeOf(err)
	if code == "" {
		return true
	}
	return code.IsFatal()
}
