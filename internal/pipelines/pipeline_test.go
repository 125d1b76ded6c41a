package pipelines

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidprep/internal/config"
)

func TestNew(t *testing.T) {
	opts, _ := testOptions(t)

	tests := []struct {
		id       string
		wantName string
		wantErr  bool
	}{
		{id: config.PipelineCases, wantName: "Cases and deaths"},
		{id: config.PipelineInterventions, wantName: "Intervention stringency"},
		{id: config.PipelineTesting, wantName: "Testing"},
		{id: config.PipelineVaccination, wantName: "Vaccination"},
		{id: "hospitalisations", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p, err := New(tt.id, opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, p.ID())
			assert.Equal(t, tt.wantName, p.Name())
			assert.NotEmpty(t, p.RequiredColumns())
		})
	}
}

func TestAll(t *testing.T) {
	opts, _ := testOptions(t)

	all, err := All(opts)
	require.NoError(t, err)

	var ids []string
	for _, p := range all {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, config.PipelineIDs(), ids)

	opts.WeekMode = "bogus"
	_, err = All(opts)
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Pipelines.Testing.WeekMode = config.WeekModeUS
	cfg.Pipelines.Vaccination.WindowMode = config.WindowModeCalendar
	cfg.Pipelines.Vaccination.WindowSize = 3

	assert.False(t, OptionsFromConfig(cfg, config.DefaultReferenceData(), nil).GroupByIndicator)

	cfg.Pipelines.Cases.GroupByIndicator = true
	opts := OptionsFromConfig(cfg, config.DefaultReferenceData(), nil)
	assert.True(t, opts.GroupByIndicator)

	assert.Equal(t, config.WeekModeUS, opts.WeekMode)
	assert.Equal(t, config.WindowModeCalendar, opts.WindowMode)
	assert.Equal(t, 3, opts.WindowSize)

	// a nil logger falls back to the default logger
	p, err := New(config.PipelineVaccination, opts)
	require.NoError(t, err)
	assert.Equal(t, config.PipelineVaccination, p.ID())
}

func TestRequiredColumnsIsACopy(t *testing.T) {
	opts, _ := testOptions(t)
	p := NewCaseDeath(opts)

	cols := p.RequiredColumns()
	cols[0] = "mutated"

	assert.Equal(t, "country", p.RequiredColumns()[0])
}

func TestRunDoesNotMutateInput(t *testing.T) {
	opts, _ := testOptions(t)
	in := vaccinationTable(t)
	before := in.Records()

	_, err := NewStringency(opts).Run(context.Background(), responseMeasures(t))
	require.NoError(t, err)

	p, err := NewVaccination(opts)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, before, in.Records())
}
