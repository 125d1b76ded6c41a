package dataprocessing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "covidprep/internal/errors"
)

func diagContext() (context.Context, *Diagnostics) {
	d := NewDiagnostics()
	return WithDiagnostics(context.Background(), d), d
}

func TestForwardFill(t *testing.T) {
	ctx, diag := diagContext()
	tbl := tableOf(t, []string{"v", "w"},
		[]string{"", "1"},
		[]string{"5", ""},
		[]string{"", ""},
		[]string{"7", "2"},
		[]string{"", ""},
	)

	require.NoError(t, ForwardFill(ctx, tbl, "v", "w"))

	assert.Equal(t, []string{"", "5", "5", "7", "7"}, columnStrings(t, tbl, "v"))
	assert.Equal(t, []string{"1", "1", "1", "2", "2"}, columnStrings(t, tbl, "w"))
	assert.Equal(t, 2, diag.Count(apperrors.CodeFilledValue, "v"))
	assert.Equal(t, 3, diag.Count(apperrors.CodeFilledValue, "w"))

	assert.ErrorIs(t, ForwardFill(ctx, tbl, "nope"), apperrors.ErrMissingColumn)
}

func TestInterpolate(t *testing.T) {
	ctx := context.Background()
	tbl := tableOf(t, []string{"v"},
		[]string{""},
		[]string{"10"},
		[]string{""},
		[]string{""},
		[]string{"40"},
		[]string{""},
	)

	require.NoError(t, Interpolate(ctx, tbl, "v"))

	assert.Equal(t, []string{"", "10", "20.0", "30.0", "40", "40"}, columnStrings(t, tbl, "v"))
}

func TestCoerceNumeric(t *testing.T) {
	ctx, diag := diagContext()
	tbl := NewTable("v")
	require.NoError(t, tbl.AppendRow(StringValue("12")))
	require.NoError(t, tbl.AppendRow(StringValue("n/a?")))
	require.NoError(t, tbl.AppendRow(FloatValue(1.5)))

	require.NoError(t, CoerceNumeric(ctx, tbl, "v"))

	assert.Equal(t, KindInt, tbl.Get(0, "v").Kind())
	assert.True(t, tbl.Get(1, "v").IsNull())
	assert.Equal(t, 1, diag.Count(apperrors.CodeUnparseableValue, "v"))
}

func TestFillNullsAllColumns(t *testing.T) {
	ctx := context.Background()
	tbl := tableOf(t, []string{"a", "b"}, []string{"", "x"}, []string{"1", ""})

	require.NoError(t, FillNulls(ctx, tbl, IntValue(0)))

	assert.Equal(t, []string{"0", "1"}, columnStrings(t, tbl, "a"))
	assert.Equal(t, []string{"x", "0"}, columnStrings(t, tbl, "b"))
}

func TestCumulativeSum(t *testing.T) {
	tbl := tableOf(t, []string{"country", "n"},
		[]string{"A", "1"},
		[]string{"B", "10"},
		[]string{"A", "2"},
		[]string{"A", ""},
		[]string{"B", "0.5"},
		[]string{"A", "3"},
		[]string{"", "100"},
	)

	require.NoError(t, CumulativeSum(tbl, []string{"country"}, "n", "cum"))

	assert.Equal(t, []string{"1", "10", "3", "", "10.5", "6", ""}, columnStrings(t, tbl, "cum"))
}

func TestCumulativeSumNonDecreasing(t *testing.T) {
	tbl := tableOf(t, []string{"g", "n"},
		[]string{"x", "0"}, []string{"x", "4"}, []string{"x", "0"}, []string{"x", "9"},
	)
	require.NoError(t, CumulativeSum(tbl, []string{"g"}, "n", "cum"))

	prev := -1.0
	for r := 0; r < tbl.Len(); r++ {
		f, ok := tbl.Get(r, "cum").Float()
		require.True(t, ok)
		assert.GreaterOrEqual(t, f, prev)
		prev = f
	}
}

func TestDifference(t *testing.T) {
	tbl := tableOf(t, []string{"g", "n"},
		[]string{"A", "5"},
		[]string{"B", "1"},
		[]string{"A", "8"},
		[]string{"A", ""},
		[]string{"B", "4.5"},
	)

	require.NoError(t, Difference(tbl, []string{"g"}, "n", "d"))

	assert.Equal(t, []string{"", "", "3", "", "3.5"}, columnStrings(t, tbl, "d"))
}

func TestRollingMean(t *testing.T) {
	rows := [][]string{}
	for _, n := range []string{"1", "2", "3", "4", "", "6"} {
		rows = append(rows, []string{n})
	}
	tbl := tableOf(t, []string{"n"}, rows...)

	require.NoError(t, RollingMean(tbl, nil, "n", "avg", 3))

	assert.Equal(t, []string{"", "", "2.0", "3.0", "", ""}, columnStrings(t, tbl, "avg"))
}

func TestRollingMeanByDate(t *testing.T) {
	tbl := NewTable("g", "date", "n")
	day := func(d int) Value { return DateValue(time.Date(2021, 1, d, 0, 0, 0, 0, time.UTC)) }
	require.NoError(t, tbl.AppendRow(StringValue("A"), day(4), IntValue(10)))
	require.NoError(t, tbl.AppendRow(StringValue("A"), day(11), IntValue(20)))
	// two week gap
	require.NoError(t, tbl.AppendRow(StringValue("A"), day(25), IntValue(60)))
	require.NoError(t, tbl.AppendRow(StringValue("B"), day(4), IntValue(1)))

	require.NoError(t, RollingMeanByDate(tbl, []string{"g"}, "date", "n", "avg", 14*24*time.Hour, 1))

	assert.Equal(t, []string{"10.0", "15.0", "60.0", "1.0"}, columnStrings(t, tbl, "avg"))
}

func TestRatio(t *testing.T) {
	ctx, diag := diagContext()
	tbl := tableOf(t, []string{"num", "den"},
		[]string{"1000", "67000000"},
		[]string{"5", "0"},
		[]string{"", "10"},
	)

	require.NoError(t, Ratio(ctx, tbl, "num", "den", "r", 1e6))

	f, ok := tbl.Get(0, "r").Float()
	require.True(t, ok)
	assert.InDelta(t, 14.925, f, 0.001)
	assert.True(t, tbl.Get(1, "r").IsNull())
	assert.True(t, tbl.Get(2, "r").IsNull())
	assert.Equal(t, 1, diag.Count(apperrors.CodeDivisionByZero, "r"))
}

func TestParseDates(t *testing.T) {
	ctx, diag := diagContext()
	tbl := tableOf(t, []string{"d"}, []string{"2021-03-01"}, []string{"garbage"}, []string{""})

	require.NoError(t, ParseDates(ctx, tbl, "d", "d", ParseDateValue))

	assert.Equal(t, []string{"2021-03-01", "", ""}, columnStrings(t, tbl, "d"))
	assert.Equal(t, KindDate, tbl.Get(0, "d").Kind())
	assert.Equal(t, 1, diag.Count(apperrors.CodeUnparseableValue, "d"))
}

func TestParseDatesMissingISOWeek(t *testing.T) {
	ctx, diag := diagContext()
	tbl := tableOf(t, []string{"w"}, []string{"2020-W53"}, []string{"2021-W53"}, []string{"2022-W01"})

	require.NoError(t, ParseDates(ctx, tbl, "w", "date", ParseISOWeekValue))

	assert.Equal(t, []string{"2020-12-28", "", "2022-01-03"}, columnStrings(t, tbl, "date"))
	assert.Equal(t, 1, diag.Count(apperrors.CodeUnparseableValue, "w"))
}

func TestDiagnosticsNilSafe(t *testing.T) {
	var d *Diagnostics
	d.Record(apperrors.CodeFilledValue, "x", 3)
	assert.Zero(t, d.Count(apperrors.CodeFilledValue, "x"))
	assert.Nil(t, d.Entries())
	assert.Nil(t, DiagnosticsFrom(context.Background()))
}

func TestDiagnosticsEntries(t *testing.T) {
	d := NewDiagnostics()
	d.Record(apperrors.CodeUnparseableValue, "b", 1)
	d.Record(apperrors.CodeDivisionByZero, "z", 2)
	d.Record(apperrors.CodeUnparseableValue, "a", 3)
	d.Record(apperrors.CodeUnparseableValue, "a", 0)

	assert.Equal(t, []DiagnosticEntry{
		{Code: apperrors.CodeDivisionByZero, Column: "z", Count: 2},
		{Code: apperrors.CodeUnparseableValue, Column: "a", Count: 3},
		{Code: apperrors.CodeUnparseableValue, Column: "b", Count: 1},
	}, d.Entries())
	assert.Equal(t, 4, d.Total(apperrors.CodeUnparseableValue))
}
