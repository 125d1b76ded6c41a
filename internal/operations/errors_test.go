package operations

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationError_Error(t *testing.T) {
	cause := errors.New("file missing")

	tests := []struct {
		name string
		err  *OperationError
		want string
	}{
		{
			name: "validation with cause",
			err:  NewValidationError("cases", cause),
			want: "[validation] cases: step validation failed: file missing",
		},
		{
			name: "timeout",
			err:  NewTimeoutError("testing", "1m0s"),
			want: "[timeout] testing: step exceeded timeout of 1m0s",
		},
		{
			name: "fatal without step",
			err:  NewFatalError("no steps", nil),
			want: "[fatal] no steps",
		},
		{
			name: "nil",
			err:  nil,
			want: "unknown operation error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	err := NewExecutionError("cases", context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)

	var nilErr *OperationError
	assert.NoError(t, nilErr.Unwrap())
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorType(""), GetErrorType(nil))
	assert.Equal(t, ErrorTypeExecution, GetErrorType(errors.New("plain")))
	assert.Equal(t, ErrorTypeCancellation, GetErrorType(NewCancellationError("cases")))
	assert.Equal(t, ErrorTypeNotFound,
		GetErrorType(fmt.Errorf("select: %w", NewNotFoundError("hospital"))))
	assert.Equal(t, ErrorTypeTimeout,
		GetErrorType(errors.Join(errors.New("other"), NewTimeoutError("x", "1s"))))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "cases"))

	plain := WrapError(errors.New("boom"), "cases")
	assert.Equal(t, ErrorTypeExecution, plain.Type)
	assert.Equal(t, "cases", plain.Step)

	anonymous := NewCancellationError("")
	wrapped := WrapError(anonymous, "testing")
	assert.Equal(t, ErrorTypeCancellation, wrapped.Type)
	assert.Equal(t, "testing", wrapped.Step)
	assert.Empty(t, anonymous.Step, "original must not be mutated")

	owned := NewTimeoutError("vaccination", "1s")
	assert.Same(t, owned, WrapError(owned, "testing"))
}
