// Package tracing installs the OpenTelemetry tracer provider used by the search spans.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kailas-cloud/playsearch/internal/version"
)

// ErrUnknownExporter is returned for an exporter name Init does not support.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// Config controls tracer setup.
type Config struct {
	Enabled     bool
	Exporter    string // stdout
	Environment string
	Writer      io.Writer // stdout exporter destination, os.Stdout when nil
}

// Shutdown flushes pending spans.
type Shutdown func(context.Context) error

// Init sets the global tracer provider. With tracing disabled the global
// no-op provider stays in place and Shutdown does nothing.
func Init(cfg Config) (Shutdown, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch cfg.Exporter {
	case "stdout", "":
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if cfg.Writer != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Writer))
		}
		exporter, err = stdouttrace.New(opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", "playsearch"),
		attribute.String("service.version", version.Version),
		attribute.String("deployment.environment", cfg.Environment),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
