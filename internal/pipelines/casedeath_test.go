package pipelines

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidprep/internal/dataprocessing"
	apperrors "covidprep/internal/errors"
	"covidprep/internal/shared/testutil"
)

const casesHeader = "country,continent,population,indicator,year_week,weekly_count,cumulative_count,rate_14_day,source,note"

func TestCaseDeathFranceWeek5(t *testing.T) {
	opts, logs := testOptions(t)
	in := load(t,
		casesHeader,
		"France,Europe,67000000,cases,2021-W05,1000,1000,120.5,TESSy,",
	)

	res, err := NewCaseDeath(opts).Run(context.Background(), in)
	require.NoError(t, err)

	out := res.Table
	assert.Equal(t, []string{
		"country", "indicator", "weekly_count", "rate_14_day",
		"date", "cumulative", "pandemic_wave", "cases_per_million", "month", "quarter",
	}, out.Columns())
	require.Equal(t, 1, out.Len())

	assert.Equal(t, "2021-02-01", out.Get(0, "date").String())
	assert.InDelta(t, 14.925, floatAt(t, out, 0, "cases_per_million"), 0.001)
	assert.Equal(t, "First Wave", out.Get(0, "pandemic_wave").String())
	assert.Equal(t, "2021-02", out.Get(0, "month").String())
	assert.Equal(t, "2021Q1", out.Get(0, "quarter").String())
	assert.Equal(t, "1000", out.Get(0, "cumulative").String())

	assert.Equal(t, 1, res.RowsIn)
	assert.Zero(t, res.Diagnostics.Total(apperrors.CodeCumulativeMismatch))
	testutil.AssertLogContains(t, logs, slog.LevelInfo, "Pipeline completed")
	testutil.AssertLogAttr(t, logs, "pipeline", "cases")
	testutil.AssertNoErrors(t, logs)
}

func TestCaseDeathKeepsOnlyAllowListedCountries(t *testing.T) {
	opts, _ := testOptions(t)
	in := load(t,
		casesHeader,
		"France,Europe,67000000,cases,2021-W05,10,10,1,TESSy,",
		"United Kingdom,Europe,67000000,cases,2021-W05,10,10,1,TESSy,",
		"EU/EEA (total),Europe,447000000,cases,2021-W05,10,10,1,TESSy,",
		"Norway,Europe,5400000,cases,2021-W05,10,10,1,TESSy,",
	)

	res, err := NewCaseDeath(opts).Run(context.Background(), in)
	require.NoError(t, err)

	countries := opts.Reference.Countries
	for _, c := range strs(t, res.Table, "country") {
		assert.True(t, countries.Contains(c), "%s is not EU/EEA", c)
	}
	assert.Equal(t, []string{"France", "Norway"}, strs(t, res.Table, "country"))
	assert.Equal(t, 4, in.Len(), "input table is left untouched")
}

// cumulativeInput arrives out of order and mixes Spain's cases and deaths;
// the Spain W04 gap is forward filled from the deaths row before it in file
// order
func cumulativeInput(t *testing.T) *dataprocessing.Table {
	t.Helper()
	return load(t,
		casesHeader,
		"Spain,Europe,47000000,cases,2021-W02,5,5,1,TESSy,",
		"Austria,Europe,9000000,cases,2021-W03,7,12,1,TESSy,",
		"Spain,Europe,47000000,cases,2021-W03,6,12,1,TESSy,",
		"Austria,Europe,9000000,cases,2021-W02,5,5,1,TESSy,",
		"Spain,Europe,47000000,deaths,2021-W02,1,1,1,TESSy,",
		"Spain,Europe,47000000,cases,2021-W04,,,1,TESSy,",
	)
}

func TestCaseDeathCumulative(t *testing.T) {
	opts, logs := testOptions(t)

	res, err := NewCaseDeath(opts).Run(context.Background(), cumulativeInput(t))
	require.NoError(t, err)
	out := res.Table

	assert.Equal(t, []string{"Austria", "Austria", "Spain", "Spain", "Spain", "Spain"}, strs(t, out, "country"))
	assert.Equal(t, []string{"2021-01-11", "2021-01-18", "2021-01-11", "2021-01-11", "2021-01-18", "2021-01-25"}, strs(t, out, "date"))
	assert.Equal(t, []string{"cases", "cases", "cases", "deaths", "cases", "cases"}, strs(t, out, "indicator"))

	// one running total per country, whatever the indicator
	assert.Equal(t, []string{"5", "12", "5", "6", "12", "13"}, strs(t, out, "cumulative"))

	prev := map[string]float64{}
	for r := 0; r < out.Len(); r++ {
		country := out.Get(r, "country").String()
		cum := floatAt(t, out, r, "cumulative")
		assert.GreaterOrEqual(t, cum, prev[country])
		prev[country] = cum
	}

	assert.False(t, out.Has("cumulative_check"))
	assert.False(t, out.Has("cumulative_count"))
	// the deaths row (6 vs 1) and the filled W04 row (13 vs 1) disagree
	assert.Equal(t, 2, res.Diagnostics.Count(apperrors.CodeCumulativeMismatch, "cumulative"))
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "Pipeline diagnostic")
}

func TestCaseDeathCumulativeByIndicator(t *testing.T) {
	opts, _ := testOptions(t)
	opts.GroupByIndicator = true

	res, err := NewCaseDeath(opts).Run(context.Background(), cumulativeInput(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"5", "12", "5", "1", "11", "12"}, strs(t, res.Table, "cumulative"))
	// Spain cases W03 (11 vs 12) and the filled W04 row (12 vs 1) disagree
	assert.Equal(t, 2, res.Diagnostics.Count(apperrors.CodeCumulativeMismatch, "cumulative"))
}

func TestCaseDeathWaveBoundaries(t *testing.T) {
	opts, _ := testOptions(t)
	in := load(t,
		casesHeader,
		// Mondays 2021-02-22, 2021-03-01, 2021-08-30, 2021-09-06
		"Malta,Europe,500000,cases,2021-W08,1,1,1,TESSy,",
		"Malta,Europe,500000,cases,2021-W09,1,2,1,TESSy,",
		"Malta,Europe,500000,cases,2021-W35,1,3,1,TESSy,",
		"Malta,Europe,500000,cases,2021-W36,1,4,1,TESSy,",
		"Malta,Europe,500000,cases,2021-W99,1,5,1,TESSy,",
	)

	res, err := NewCaseDeath(opts).Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"First Wave", "Second Wave", "Second Wave", "Post-Vaccine Era", "Uncategorized",
	}, strs(t, res.Table, "pandemic_wave"))
	assert.Equal(t, []string{"2021-02", "2021-03", "2021-08", "2021-09", ""}, strs(t, res.Table, "month"))
	assert.Equal(t, 1, res.Diagnostics.Count(apperrors.CodeUnparseableValue, "year_week"))
}

func TestCaseDeathZeroPopulation(t *testing.T) {
	opts, _ := testOptions(t)
	in := load(t,
		casesHeader,
		"Iceland,Europe,0,cases,2021-W05,3,3,1,TESSy,",
	)

	res, err := NewCaseDeath(opts).Run(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, res.Table.Get(0, "cases_per_million").IsNull())
	assert.Equal(t, 1, res.Diagnostics.Count(apperrors.CodeDivisionByZero, "cases_per_million"))
}

func TestCaseDeathMissingColumns(t *testing.T) {
	opts, logs := testOptions(t)
	in := load(t,
		"country,year_week,weekly_count",
		"France,2021-W05,1000",
	)

	res, err := NewCaseDeath(opts).Run(context.Background(), in)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperrors.ErrMissingColumn)
	assert.True(t, apperrors.IsFatal(err))
	assert.Contains(t, err.Error(), "cumulative_count")
	assert.Contains(t, err.Error(), "population")
	testutil.AssertLogContains(t, logs, slog.LevelError, "Input schema check failed")
}
