package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"

	"covidprep/internal/config"
	"covidprep/pkg/contracts"
)

// ServiceName identifies this tool in exported spans
const ServiceName = "covidprep"

// Tracing holds the tracer provider installed for a run
type Tracing struct {
	provider *sdktrace.TracerProvider
	file     *os.File
}

// InitializeTracing installs a global tracer provider for the configured
// exporter. With exporter "none" the otel no-op provider stays in place and
// Shutdown does nothing. Spans go to cfg.TraceFile when set, else to w.
func InitializeTracing(cfg config.TelemetryConfig, w io.Writer, logger *slog.Logger) (*Tracing, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.TraceExporter {
	case "", config.TraceExporterNone:
		return &Tracing{}, nil
	case config.TraceExporterStdout:
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	t := &Tracing{}
	if cfg.TraceFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.TraceFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create trace directory: %w", err)
		}
		file, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace file: %w", err)
		}
		t.file = file
		w = file
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		t.closeFile()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(contracts.Version),
		attribute.String("service.instance.id", GenerateRunID()),
	)

	// runs are short and batch exports would be lost on exit
	t.provider = sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(t.provider)

	logger.Info("Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.String("trace_file", cfg.TraceFile))

	return t, nil
}

// Enabled reports whether spans are being exported
func (t *Tracing) Enabled() bool {
	return t != nil && t.provider != nil
}

// Shutdown flushes pending spans and releases the trace file
func (t *Tracing) Shutdown(ctx context.Context) error {
	if !t.Enabled() {
		return nil
	}
	err := t.provider.Shutdown(ctx)
	if cerr := t.closeFile(); err == nil {
		err = cerr
	}
	return err
}

func (t *Tracing) closeFile() error {
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}
