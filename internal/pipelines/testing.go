package pipelines

import (
	"context"
	"fmt"
	"time"

	"covidprep/internal/config"
	"covidprep/internal/dataprocessing"
	apperrors "covidprep/internal/errors"
)

// Testing column names
const (
	colTestsDone            = "tests_done"
	colPositivityRate       = "positivity_rate"
	colNewCases             = "new_cases"
	colTestingEffectiveness = "testing_effectiveness"
)

// Testing cleans the weekly testing volume and positivity table
type Testing struct {
	base
	weekMode string
}

// NewTesting creates the testing pipeline. weekMode selects how year_week is
// renumbered and defaults to ISO numbering.
func NewTesting(opts Options) (*Testing, error) {
	mode := opts.WeekMode
	if mode == "" {
		mode = config.WeekModeISO
	}
	if mode != config.WeekModeISO && mode != config.WeekModeUS {
		return nil, fmt.Errorf("unknown week mode %q", opts.WeekMode)
	}
	return &Testing{
		base: base{
			id:       config.PipelineTesting,
			name:     "Testing",
			required: []string{colCountry, colYearWeek, colTestsDone, colPositivityRate, colNewCases},
			logger:   opts.Logger,
		},
		weekMode: mode,
	}, nil
}

// Run executes the pipeline on in. in is not modified.
func (p *Testing) Run(ctx context.Context, in *dataprocessing.Table) (*Result, error) {
	return p.run(ctx, in, func(ctx context.Context, t *dataprocessing.Table) (*dataprocessing.Table, []Artifact, error) {
		out, err := p.chain(
			dataprocessing.InPlace("coerce_numeric", func(ctx context.Context, t *dataprocessing.Table) error {
				return dataprocessing.CoerceNumeric(ctx, t, colTestsDone, colPositivityRate, colNewCases)
			}),
			dataprocessing.InPlace("repair_gaps", func(ctx context.Context, t *dataprocessing.Table) error {
				if err := dataprocessing.ForwardFill(ctx, t, colTestsDone, colPositivityRate); err != nil {
					return err
				}
				return dataprocessing.Interpolate(ctx, t, colTestsDone, colPositivityRate)
			}),
			dataprocessing.InPlace("normalize_week", p.normalizeWeek),
			dataprocessing.InPlace("testing_effectiveness", func(ctx context.Context, t *dataprocessing.Table) error {
				return dataprocessing.Ratio(ctx, t, colNewCases, colTestsDone, colTestingEffectiveness, 100)
			}),
			dropColumns("country_code", "level", "region", "region_name", colPopulation, "testing_data_source"),
			sortBy(colCountry, colDate),
			dataprocessing.InPlace("fill_nulls", func(ctx context.Context, t *dataprocessing.Table) error {
				return dataprocessing.FillNulls(ctx, t, dataprocessing.IntValue(0))
			}),
		).Run(ctx, t)
		return out, nil, err
	})
}

// normalizeWeek rewrites year_week as "YYYY-WW" and adds the week's Monday
// as date. Values that cannot be read keep their text and get a null date.
func (p *Testing) normalizeWeek(ctx context.Context, t *dataprocessing.Table) error {
	weeks, err := t.Column(colYearWeek)
	if err != nil {
		return err
	}
	dates := make([]dataprocessing.Value, len(weeks))
	bad := 0
	for r, v := range weeks {
		dates[r] = dataprocessing.NullValue()
		s, ok := v.Str()
		if !ok {
			if !v.IsNull() {
				bad++
			}
			continue
		}
		token, monday, err := p.week(s)
		if err != nil {
			bad++
			continue
		}
		weeks[r] = dataprocessing.StringValue(token)
		dates[r] = dataprocessing.DateValue(monday)
	}
	dataprocessing.DiagnosticsFrom(ctx).Record(apperrors.CodeUnparseableValue, colYearWeek, bad)

	if err := t.SetColumn(colYearWeek, weeks); err != nil {
		return err
	}
	return t.SetColumn(colDate, dates)
}

func (p *Testing) week(s string) (string, time.Time, error) {
	if p.weekMode == config.WeekModeUS {
		return dataprocessing.USWeekToken(s)
	}
	monday, err := dataprocessing.ParseISOWeek(s)
	if err != nil {
		return "", time.Time{}, err
	}
	return dataprocessing.ISOWeekToken(monday), monday, nil
}
