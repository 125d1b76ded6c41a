package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "covidprep"

// Metrics collects per pipeline counters for one run. Each instance owns a
// private registry so that runs and tests never share series.
type Metrics struct {
	registry *prometheus.Registry

	RowsRead        *prometheus.CounterVec
	RowsWritten     *prometheus.CounterVec
	Diagnostics     *prometheus.CounterVec
	PipelineRuns    *prometheus.CounterVec
	PipelineSeconds *prometheus.GaugeVec
	LastRunTime     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_read_total",
			Help:      "Rows loaded from pipeline inputs",
		}, []string{"pipeline"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_written_total",
			Help:      "Rows written to pipeline outputs",
		}, []string{"pipeline"}),
		Diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "diagnostics_total",
			Help:      "Cells repaired or flagged while processing, by diagnostic code",
		}, []string{"pipeline", "code"}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline executions by final status",
		}, []string{"pipeline", "status"}),
		PipelineSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of the last execution of each pipeline",
		}, []string{"pipeline"}),
		LastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}

	m.registry.MustRegister(
		m.RowsRead, m.RowsWritten, m.Diagnostics,
		m.PipelineRuns, m.PipelineSeconds, m.LastRunTime,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePipeline records the outcome of one pipeline execution
func (m *Metrics) ObservePipeline(pipeline, status string, rowsIn, rowsOut int, d time.Duration) {
	m.RowsRead.WithLabelValues(pipeline).Add(float64(rowsIn))
	m.RowsWritten.WithLabelValues(pipeline).Add(float64(rowsOut))
	m.PipelineRuns.WithLabelValues(pipeline, status).Inc()
	m.PipelineSeconds.WithLabelValues(pipeline).Set(d.Seconds())
}

// ObserveDiagnostic adds n occurrences of a diagnostic code
func (m *Metrics) ObserveDiagnostic(pipeline, code string, n int) {
	if n <= 0 {
		return
	}
	m.Diagnostics.WithLabelValues(pipeline, code).Add(float64(n))
}

// WriteTextfile writes every series in the node exporter textfile format.
// The write is atomic, so a collector never reads a partial file.
func (m *Metrics) WriteTextfile(path string, finished time.Time) error {
	m.LastRunTime.Set(float64(finished.Unix()))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
