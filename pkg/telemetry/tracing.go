// Package telemetry provides OpenTelemetry tracing for openskills
package telemetry

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Config represents the configuration for the telemetry system
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	// SamplerType is one of always, never or ratio.
	SamplerType  string
	SamplerRatio float64
}

// InitTracer installs a global tracer provider exporting over OTLP/HTTP and
// returns its shutdown function. The exporter reads OTEL_EXPORTER_OTLP_*
// environment variables. When tracing is disabled the global no-op provider
// is left in place.
func InitTracer(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	sampler, err := newSampler(cfg)
	if err != nil {
		return nil, err
	}

	var shutdownFuncs []func(context.Context) error

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create resource")
	}

	traceExporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create trace exporter")
	}
	shutdownFuncs = append(shutdownFuncs, traceExporter.Shutdown)

	batchSpanProcessor := trace.NewBatchSpanProcessor(
		traceExporter,
		trace.WithMaxExportBatchSize(512),
		trace.WithBatchTimeout(1*time.Second),
	)

	tracerProvider := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSpanProcessor(batchSpanProcessor),
		trace.WithSampler(sampler),
	)
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		return err
	}, nil
}

// Validate checks the sampler settings.
func (c Config) Validate() error {
	_, err := newSampler(c)
	return err
}

// newSampler builds the sampler named by cfg. Ratio sampling respects the
// parent's decision so a request traced upstream stays traced.
func newSampler(cfg Config) (trace.Sampler, error) {
	switch cfg.SamplerType {
	case "always":
		return trace.AlwaysSample(), nil
	case "never":
		return trace.NeverSample(), nil
	case "ratio", "":
		if cfg.SamplerRatio < 0 || cfg.SamplerRatio > 1 {
			return nil, pkgerrors.Errorf("tracing ratio must be between 0 and 1, got %g", cfg.SamplerRatio)
		}
		return trace.ParentBased(trace.TraceIDRatioBased(cfg.SamplerRatio)), nil
	default:
		return nil, pkgerrors.Errorf("unknown tracing sampler %q (expected always, never or ratio)", cfg.SamplerType)
	}
}
