package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *PipelineError
		want string
	}{
		{
			name: "code and message",
			err:  New(CodeDivisionByZero, "division by zero"),
			want: "[DIVISION_BY_ZERO] division by zero",
		},
		{
			name: "with pipeline and column",
			err: &PipelineError{
				Code:     CodeUnparseableValue,
				Pipeline: "cases",
				Column:   "year_week",
				Message:  "value could not be parsed",
			},
			want: `[UNPARSEABLE_VALUE] cases: value could not be parsed (column "year_week")`,
		},
		{
			name: "with cause",
			err:  InputNotFound("Data/testing.csv", fs.ErrNotExist),
			want: "[INPUT_NOT_FOUND] input file Data/testing.csv not found: file does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestMissingColumns(t *testing.T) {
	err := MissingColumns("country", "year_week")

	assert.Equal(t, CodeMissingColumn, err.Code)
	assert.Equal(t, []string{"country", "year_week"}, err.Details)
	assert.Empty(t, err.Column)
	assert.Contains(t, err.Error(), "country, year_week")

	single := MissingColumns("Population")
	assert.Equal(t, "Population", single.Column)
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("load cases: %w", MissingColumns("country"))

	assert.True(t, stderrors.Is(wrapped, ErrMissingColumn))
	assert.False(t, stderrors.Is(wrapped, ErrWriteFailed))
	assert.Equal(t, CodeMissingColumn, CodeOf(wrapped))
}

func TestUnwrap(t *testing.T) {
	err := WriteFailed("out.csv", fs.ErrPermission)
	assert.True(t, stderrors.Is(err, fs.ErrPermission))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"missing column", MissingColumns("x"), true},
		{"write failed", WriteFailed("x", nil), true},
		{"unparseable value", ErrUnparseableValue, false},
		{"division by zero", fmt.Errorf("ratio: %w", ErrDivisionByZero), false},
		{"plain error", stderrors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestWithPipeline(t *testing.T) {
	err := WithPipeline(MissingColumns("country"), "cases")

	var pErr *PipelineError
	require.True(t, stderrors.As(err, &pErr))
	assert.Equal(t, "cases", pErr.Pipeline)

	// the shared sentinel must not be mutated
	annotated := WithPipeline(ErrMissingColumn, "testing")
	assert.Empty(t, ErrMissingColumn.Pipeline)
	assert.Contains(t, annotated.Error(), "testing:")

	plain := stderrors.New("boom")
	assert.Same(t, plain, WithPipeline(plain, "cases"))
}
