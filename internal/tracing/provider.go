package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Provider owns the SDK tracer provider when exporting is enabled.
type Provider struct {
	provider *sdktrace.TracerProvider
}

// InitProvider installs an OTLP/HTTP exporting tracer provider for the
// advisory service. When tracing is disabled it returns an empty Provider
// and spans stay no-op. Empty service name and endpoint take the values
// from DefaultConfig.
func InitProvider(ctx context.Context, cfg Config, version string) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}
	cfg = withDefaults(cfg)

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter for %s: %w", cfg.Endpoint, err)
	}

	res, err := resource.Merge(resource.Default(), serviceResource(cfg, version))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(Propagator())
	tracer = tp.Tracer(TracerName)

	return &Provider{provider: tp}, nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.ServiceName == "" {
		cfg.ServiceName = def.ServiceName
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	return cfg
}

func serviceResource(cfg Config, version string) *resource.Resource {
	if version == "" {
		version = "dev"
	}
	return resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version),
		attribute.String("krishi.region", "kerala"),
	)
}

// newSampler honours an upstream sampling decision and otherwise samples
// root spans at rate, clamped to [0, 1].
func newSampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}
