package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"PriceRadar/internal/config"
)

// Shutdown flushes and stops the installed providers.
type Shutdown func(ctx context.Context) error

func noop(context.Context) error { return nil }

// Setup installs global trace and meter providers exporting over OTLP/HTTP.
// Without an endpoint the otel no-op providers stay in place.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) (Shutdown, error) {
	if cfg.Endpoint == "" {
		return noop, nil
	}
	service := cfg.ServiceName
	if service == "" {
		service = "priceradar"
	}

	r, err := newResource(service)
	if err != nil {
		return noop, fmt.Errorf("telemetry resource: %w", err)
	}

	tp, err := newTraceProvider(ctx, r, cfg)
	if err != nil {
		return noop, fmt.Errorf("trace exporter: %w", err)
	}
	mp, err := newMetricProvider(ctx, r, cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return noop, fmt.Errorf("metric exporter: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	if logger != nil {
		logger.Info("telemetry export initialized", "endpoint", cfg.Endpoint, "headers", len(cfg.Headers) > 0)
	}

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, cfg config.TelemetryConfig) (*trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
		otlptracehttp.WithHeaders(cfg.Headers),
	)
	if err != nil {
		return nil, err
	}

	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

func newMetricProvider(ctx context.Context, r *resource.Resource, cfg config.TelemetryConfig) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	exporter, err := otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(cfg.Endpoint),
		otlpmetrichttp.WithHeaders(cfg.Headers),
	)
	if err != nil {
		return nil, err
	}

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(5*time.Second))),
		metric.WithResource(r),
	), nil
}
