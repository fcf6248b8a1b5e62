// Package telemetry wires OTLP trace and log export when an endpoint is configured.
package telemetry

import (
	"context"
	"datapack/internal/config"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Telemetry holds the installed providers. The zero value is a no-op.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	LoggerProvider *sdklog.LoggerProvider
}

// Enabled reports whether anything is exported.
func (t *Telemetry) Enabled() bool {
	return t != nil && t.TracerProvider != nil
}

// Setup installs global trace and log providers exporting to cfg.OTLPEndpoint.
// With no endpoint the global no-op providers are left in place.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (*Telemetry, error) {
	if cfg.OTLPEndpoint == "" {
		return &Telemetry{}, nil
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	traceExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	logExporter, err := otlploghttp.New(ctx, otlploghttp.WithEndpointURL(cfg.OTLPEndpoint))
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		return nil, fmt.Errorf("create log exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	global.SetLoggerProvider(lp)

	slog.InfoContext(ctx, "telemetry export enabled", "endpoint", cfg.OTLPEndpoint, "service", cfg.ServiceName)
	return &Telemetry{TracerProvider: tp, LoggerProvider: lp}, nil
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if !t.Enabled() {
		return nil
	}
	return errors.Join(
		t.TracerProvider.Shutdown(ctx),
		t.LoggerProvider.Shutdown(ctx),
	)
}
