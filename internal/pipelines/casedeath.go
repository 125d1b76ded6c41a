package pipelines

import (
	"context"

	"covidprep/internal/config"
	"covidprep/internal/dataprocessing"
	"covidprep/pkg/contracts/domain"
)

// Case/death column names as published by ECDC
const (
	colCountry         = "country"
	colYearWeek        = "year_week"
	colWeeklyCount     = "weekly_count"
	colCumulativeCount = "cumulative_count"
	colRate14Day       = "rate_14_day"
	colPopulation      = "population"
	colIndicator       = "indicator"
	colDate            = "date"

	colCumulative      = "cumulative"
	colCumulativeCheck = "cumulative_check"
	colPandemicWave    = "pandemic_wave"
	colCasesPerMillion = "cases_per_million"
	colMonth           = "month"
	colQuarter         = "quarter"
)

// CaseDeath cleans the weekly case and death notification table
type CaseDeath struct {
	base
	countries        config.CountrySet
	groupByIndicator bool
}

// NewCaseDeath creates the case/death pipeline
func NewCaseDeath(opts Options) *CaseDeath {
	return &CaseDeath{
		base: base{
			id:   config.PipelineCases,
			name: "Cases and deaths",
			required: []string{
				colCountry, colYearWeek, colWeeklyCount,
				colCumulativeCount, colRate14Day, colPopulation,
			},
			logger: opts.Logger,
		},
		countries:        opts.Reference.Countries,
		groupByIndicator: opts.GroupByIndicator,
	}
}

// Run executes the pipeline on in. in is not modified.
func (p *CaseDeath) Run(ctx context.Context, in *dataprocessing.Table) (*Result, error) {
	return p.run(ctx, in, func(ctx context.Context, t *dataprocessing.Table) (*dataprocessing.Table, []Artifact, error) {
		out, err := p.chain(
			keepCountries(colCountry, p.countries),
			dataprocessing.InPlace("coerce_numeric", func(ctx context.Context, t *dataprocessing.Table) error {
				return dataprocessing.CoerceNumeric(ctx, t, colWeeklyCount, colCumulativeCount, colRate14Day, colPopulation)
			}),
			dataprocessing.InPlace("forward_fill", func(ctx context.Context, t *dataprocessing.Table) error {
				return dataprocessing.ForwardFill(ctx, t, colRate14Day, colWeeklyCount, colCumulativeCount)
			}),
			dataprocessing.InPlace("week_start", func(ctx context.Context, t *dataprocessing.Table) error {
				return dataprocessing.ParseDates(ctx, t, colYearWeek, colDate, dataprocessing.ParseISOWeekValue)
			}),
			sortBy(colCountry, colDate),
			dataprocessing.InPlace("cumulative", p.cumulative),
			dataprocessing.InPlace("pandemic_wave", func(_ context.Context, t *dataprocessing.Table) error {
				t.Derive(colPandemicWave, func(r dataprocessing.RowView) dataprocessing.Value {
					d, _ := r.Date(colDate)
					return dataprocessing.StringValue(string(domain.WaveForDate(d)))
				})
				return nil
			}),
			dataprocessing.InPlace("cases_per_million", func(ctx context.Context, t *dataprocessing.Table) error {
				return dataprocessing.Ratio(ctx, t, colWeeklyCount, colPopulation, colCasesPerMillion, 1e6)
			}),
			dataprocessing.InPlace("period_labels", func(_ context.Context, t *dataprocessing.Table) error {
				derivePeriods(t, colDate, colMonth, colQuarter)
				return nil
			}),
			dropColumns("continent", colPopulation, colCumulativeCount, "source", "note", colCumulativeCheck, colYearWeek),
		).Run(ctx, t)
		return out, nil, err
	})
}

// cumulative computes the per-country running weekly total and checks it
// against the published cumulative_count. With groupByIndicator set, cases
// and deaths keep separate totals.
func (p *CaseDeath) cumulative(ctx context.Context, t *dataprocessing.Table) error {
	groups := []string{colCountry}
	if p.groupByIndicator && t.Has(colIndicator) {
		groups = append(groups, colIndicator)
	}
	if err := dataprocessing.CumulativeSum(t, groups, colWeeklyCount, colCumulative); err != nil {
		return err
	}
	countMismatches(ctx, t, colCumulative, colCumulativeCount, colCumulativeCheck)
	return nil
}

// derivePeriods adds month and quarter labels for dateCol; null dates stay null
func derivePeriods(t *dataprocessing.Table, dateCol, monthCol, quarterCol string) {
	t.Derive(monthCol, func(r dataprocessing.RowView) dataprocessing.Value {
		d, ok := r.Date(dateCol)
		if !ok {
			return dataprocessing.NullValue()
		}
		return dataprocessing.StringValue(dataprocessing.MonthLabel(d))
	})
	t.Derive(quarterCol, func(r dataprocessing.RowView) dataprocessing.Value {
		d, ok := r.Date(dateCol)
		if !ok {
			return dataprocessing.NullValue()
		}
		return dataprocessing.StringValue(dataprocessing.QuarterLabel(d))
	})
}
