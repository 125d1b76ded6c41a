package pipelines

import (
	"context"
	"math"
	"time"

	"covidprep/internal/config"
	"covidprep/internal/dataprocessing"
	apperrors "covidprep/internal/errors"
	"covidprep/pkg/contracts/domain"
)

// Response measure column names
const (
	colRespCountry          = "Country"
	colResponseMeasure      = "Response_measure"
	colDateStart            = "date_start"
	colDateEnd              = "date_end"
	colStringencyScore      = "stringency_score"
	colInterventionDuration = "intervention_duration"
	colInterventionCategory = "intervention_category"
	colStringencyCategory   = "stringency_category"
)

// DailyStringencyArtifact names the per country and start date aggregate
const DailyStringencyArtifact = "daily_stringency"

// Stringency scores the government response measures table
type Stringency struct {
	base
	ref config.ReferenceData
}

// NewStringency creates the intervention stringency pipeline
func NewStringency(opts Options) *Stringency {
	return &Stringency{
		base: base{
			id:       config.PipelineInterventions,
			name:     "Intervention stringency",
			required: []string{colRespCountry, colResponseMeasure, colDateStart, colDateEnd},
			logger:   opts.Logger,
		},
		ref: opts.Reference,
	}
}

// Run executes the pipeline on in. The daily aggregate is returned as the
// DailyStringencyArtifact artifact.
func (p *Stringency) Run(ctx context.Context, in *dataprocessing.Table) (*Result, error) {
	return p.run(ctx, in, func(ctx context.Context, t *dataprocessing.Table) (*dataprocessing.Table, []Artifact, error) {
		var daily *dataprocessing.Table
		out, err := p.chain(
			keepCountries(colRespCountry, p.ref.Countries),
			dataprocessing.InPlace("parse_dates", func(ctx context.Context, t *dataprocessing.Table) error {
				if err := dataprocessing.ParseDates(ctx, t, colDateStart, colDateStart, dataprocessing.ParseDateValue); err != nil {
					return err
				}
				return dataprocessing.ParseDates(ctx, t, colDateEnd, colDateEnd, dataprocessing.ParseDateValue)
			}),
			dataprocessing.InPlace("fill_date_end", fillOpenEnded),
			dataprocessing.InPlace("stringency_score", p.score),
			dataprocessing.InPlace("rescale", rescaleScores),
			dataprocessing.InPlace("intervention_duration", func(_ context.Context, t *dataprocessing.Table) error {
				t.Derive(colInterventionDuration, func(r dataprocessing.RowView) dataprocessing.Value {
					start, okS := r.Date(colDateStart)
					end, okE := r.Date(colDateEnd)
					if !okS || !okE {
						return dataprocessing.NullValue()
					}
					return dataprocessing.IntValue(int64(math.Floor(end.Sub(start).Hours() / 24)))
				})
				return nil
			}),
			dataprocessing.InPlace("daily_aggregate", func(_ context.Context, t *dataprocessing.Table) error {
				var err error
				daily, err = AggregateDailyStringency(t)
				return err
			}),
			dataprocessing.InPlace("intervention_category", func(_ context.Context, t *dataprocessing.Table) error {
				t.Derive(colInterventionCategory, func(r dataprocessing.RowView) dataprocessing.Value {
					measure, _ := r.Str(colResponseMeasure)
					return dataprocessing.StringValue(string(p.ref.Categories.Category(measure)))
				})
				return nil
			}),
			dataprocessing.InPlace("stringency_category", func(_ context.Context, t *dataprocessing.Table) error {
				t.Derive(colStringencyCategory, func(r dataprocessing.RowView) dataprocessing.Value {
					score, ok := r.Float(colStringencyScore)
					if !ok {
						score = math.NaN()
					}
					return dataprocessing.StringValue(string(domain.StringencyCategoryForScore(score)))
				})
				return nil
			}),
		).Run(ctx, t)
		if err != nil {
			return nil, nil, err
		}
		return out, []Artifact{{Name: DailyStringencyArtifact, Table: daily}}, nil
	})
}

// fillOpenEnded gives measures with no end date the latest end date seen
func fillOpenEnded(ctx context.Context, t *dataprocessing.Table) error {
	var latest time.Time
	for r := 0; r < t.Len(); r++ {
		if d, ok := t.Get(r, colDateEnd).Date(); ok && d.After(latest) {
			latest = d
		}
	}
	if latest.IsZero() {
		return nil
	}
	return dataprocessing.FillNulls(ctx, t, dataprocessing.DateValue(latest), colDateEnd)
}

func (p *Stringency) score(_ context.Context, t *dataprocessing.Table) error {
	t.Derive(colStringencyScore, func(r dataprocessing.RowView) dataprocessing.Value {
		measure, _ := r.Str(colResponseMeasure)
		return dataprocessing.FloatValue(p.ref.Weights.Weight(measure))
	})
	return nil
}

// rescaleScores maps stringency_score onto 0-100 by dividing by the table
// maximum. A zero maximum nulls every score.
func rescaleScores(ctx context.Context, t *dataprocessing.Table) error {
	maxScore := math.Inf(-1)
	for r := 0; r < t.Len(); r++ {
		if f, ok := t.Get(r, colStringencyScore).Float(); ok && f > maxScore {
			maxScore = f
		}
	}
	if math.IsInf(maxScore, -1) {
		return nil
	}

	zero := 0
	t.Derive(colStringencyScore, func(r dataprocessing.RowView) dataprocessing.Value {
		f, ok := r.Float(colStringencyScore)
		if !ok {
			return dataprocessing.NullValue()
		}
		if maxScore == 0 {
			zero++
			return dataprocessing.NullValue()
		}
		return dataprocessing.FloatValue(f / maxScore * 100)
	})
	dataprocessing.DiagnosticsFrom(ctx).Record(apperrors.CodeDivisionByZero, colStringencyScore, zero)
	return nil
}

// AggregateDailyStringency sums stringency_score per (Country, date_start).
// Groups are returned sorted by key; rows with a null key are left out.
func AggregateDailyStringency(t *dataprocessing.Table) (*dataprocessing.Table, error) {
	if err := t.Require(colRespCountry, colDateStart, colStringencyScore); err != nil {
		return nil, err
	}
	groups, err := t.Groups(colRespCountry, colDateStart)
	if err != nil {
		return nil, err
	}

	out := dataprocessing.NewTable(colRespCountry, colDateStart, colStringencyScore)
	for _, g := range groups {
		if g.HasNullKey() {
			continue
		}
		sum := 0.0
		for _, r := range g.Rows {
			if f, ok := t.Get(r, colStringencyScore).Float(); ok {
				sum += f
			}
		}
		if err := out.AppendRow(g.Key[0], g.Key[1], dataprocessing.FloatValue(sum)); err != nil {
			return nil, err
		}
	}
	return out.SortBy(colRespCountry, colDateStart)
}
