package pipelines

import (
	"context"
	"fmt"
	"math"
	"time"

	"covidprep/internal/config"
	"covidprep/internal/dataprocessing"
	"covidprep/pkg/contracts/domain"
)

// Vaccination column names
const (
	colReportingCountry          = "ReportingCountry"
	colYearWeekISO               = "YearWeekISO"
	colDosesReceived             = "NumberDosesReceived"
	colVaccPopulation            = "Population"
	colVaccDate                  = "Date"
	colCumulativeVaccinations    = "CumulativeVaccinations"
	colCumulativeVaccinationRate = "CumulativeVaccinationRate"
	colVaccinationRateWeekly     = "VaccinationRateWeekly"
	colVaccinationRate7dAvg      = "VaccinationRate_7d_avg"
	colVaccinationMilestone      = "VaccinationMilestone"
	colRecalculatedCumulative    = "RecalculatedCumulative"
	colCumulativeCheckVacc       = "CumulativeCheck"
)

// Vaccination derives cumulative coverage and milestones from weekly doses
type Vaccination struct {
	base
	windowMode string
	windowSize int
}

// NewVaccination creates the vaccination pipeline. The smoothing window is
// counted in rows by default; calendar mode counts weeks per country.
func NewVaccination(opts Options) (*Vaccination, error) {
	mode := opts.WindowMode
	if mode == "" {
		mode = config.WindowModeRows
	}
	if mode != config.WindowModeRows && mode != config.WindowModeCalendar {
		return nil, fmt.Errorf("unknown window mode %q", opts.WindowMode)
	}
	size := opts.WindowSize
	if size == 0 {
		size = config.DefaultWindowSize
	}
	if size < 1 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}
	return &Vaccination{
		base: base{
			id:       config.PipelineVaccination,
			name:     "Vaccination",
			required: []string{colReportingCountry, colYearWeekISO, colDosesReceived, colVaccPopulation},
			logger:   opts.Logger,
		},
		windowMode: mode,
		windowSize: size,
	}, nil
}

// Run executes the pipeline on in. in is not modified.
func (p *Vaccination) Run(ctx context.Context, in *dataprocessing.Table) (*Result, error) {
	return p.run(ctx, in, func(ctx context.Context, t *dataprocessing.Table) (*dataprocessing.Table, []Artifact, error) {
		out, err := p.chain(
			dataprocessing.InPlace("coerce_numeric", func(ctx context.Context, t *dataprocessing.Table) error {
				return dataprocessing.CoerceNumeric(ctx, t, colDosesReceived, colVaccPopulation)
			}),
			dataprocessing.InPlace("week_start", func(ctx context.Context, t *dataprocessing.Table) error {
				return dataprocessing.ParseDates(ctx, t, colYearWeekISO, colVaccDate, dataprocessing.ParseISOWeekValue)
			}),
			sortBy(colReportingCountry, colVaccDate),
			dataprocessing.InPlace("cumulative", func(_ context.Context, t *dataprocessing.Table) error {
				return dataprocessing.CumulativeSum(t, []string{colReportingCountry}, colDosesReceived, colCumulativeVaccinations)
			}),
			dataprocessing.InPlace("cumulative_rate", func(ctx context.Context, t *dataprocessing.Table) error {
				return dataprocessing.Ratio(ctx, t, colCumulativeVaccinations, colVaccPopulation, colCumulativeVaccinationRate, 100)
			}),
			dataprocessing.InPlace("weekly_rate", func(ctx context.Context, t *dataprocessing.Table) error {
				if err := dataprocessing.Difference(t, []string{colReportingCountry}, colDosesReceived, colVaccinationRateWeekly); err != nil {
					return err
				}
				return dataprocessing.FillNulls(ctx, t, dataprocessing.IntValue(0), colVaccinationRateWeekly)
			}),
			dataprocessing.InPlace("rolling_average", p.smooth),
			dataprocessing.InPlace("milestone", func(_ context.Context, t *dataprocessing.Table) error {
				t.Derive(colVaccinationMilestone, func(r dataprocessing.RowView) dataprocessing.Value {
					rate, ok := r.Float(colCumulativeVaccinationRate)
					if !ok {
						rate = math.NaN()
					}
					return dataprocessing.StringValue(string(domain.MilestoneForRate(rate)))
				})
				return nil
			}),
			dropColumns(colYearWeekISO, "Denominator",
				"DoseAdditional1", "DoseAdditional2", "DoseAdditional3", "DoseAdditional4", "DoseAdditional5",
				"UnknownDose", "TargetGroup", "Vaccine"),
			sortBy(colReportingCountry, colVaccDate),
			dataprocessing.InPlace("cumulative_check", func(ctx context.Context, t *dataprocessing.Table) error {
				if err := dataprocessing.CumulativeSum(t, []string{colReportingCountry}, colDosesReceived, colRecalculatedCumulative); err != nil {
					return err
				}
				countMismatches(ctx, t, colCumulativeVaccinations, colRecalculatedCumulative, colCumulativeCheckVacc)
				return nil
			}),
			dropColumns("NumberDosesExported", "FirstDoseRefused", "Region", colRecalculatedCumulative, colCumulativeCheckVacc),
		).Run(ctx, t)
		return out, nil, err
	})
}

// smooth writes the trailing mean of the weekly rate. Rows mode averages the
// last windowSize rows of the whole table; calendar mode averages the
// country's rows dated within the last windowSize weeks.
func (p *Vaccination) smooth(_ context.Context, t *dataprocessing.Table) error {
	if p.windowMode == config.WindowModeCalendar {
		span := time.Duration(p.windowSize) * 7 * 24 * time.Hour
		return dataprocessing.RollingMeanByDate(t, []string{colReportingCountry}, colVaccDate,
			colVaccinationRateWeekly, colVaccinationRate7dAvg, span, 1)
	}
	return dataprocessing.RollingMean(t, nil, colVaccinationRateWeekly, colVaccinationRate7dAvg, p.windowSize)
}
