// Package tracing provides OpenTelemetry tracing for Krishi Sakhi.
package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the instrumentation name used for all spans.
	TracerName = "github.com/mabhinav2955-coder/kisan-sub000"
)

// Config holds tracing configuration.
type Config struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`    // OTLP/HTTP host:port
	SampleRate  float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

// DefaultConfig returns the default tracing configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		ServiceName: "krishi-sakhi",
		Endpoint:    "localhost:4318",
		SampleRate:  1.0,
	}
}

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer(TracerName)
}

// GetTracer returns the package tracer.
func GetTracer() trace.Tracer {
	return tracer
}

// SetTracer replaces the package tracer (useful for testing).
func SetTracer(t trace.Tracer) {
	tracer = t
}

// Span attributes.
var (
	AttrSource     = attribute.Key("krishi.source")
	AttrTier       = attribute.Key("krishi.source.tier")
	AttrProvenance = attribute.Key("krishi.provenance")
	AttrProvider   = attribute.Key("krishi.llm.provider")
	AttrLanguage   = attribute.Key("krishi.language")
	AttrCacheKey   = attribute.Key("krishi.cache.key")
)

// StartFetchSpan starts a span for one upstream feed request.
func StartFetchSpan(ctx context.Context, source, tier, url string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "feed.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrSource.String(source),
			AttrTier.String(tier),
			attribute.String("http.url", url),
		),
	)
}

// StartLLMSpan starts a span for a provider completion call.
func StartLLMSpan(ctx context.Context, provider string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "llm.complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(AttrProvider.String(provider)),
	)
}

// StartAssembleSpan starts a span for gathering chat context.
func StartAssembleSpan(ctx context.Context, language string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "advisor.assemble",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(AttrLanguage.String(language)),
	)
}

// RecordError records an error on the span.
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanOK marks the span as successful.
func SetSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// Propagator returns the context propagator for distributed tracing.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// InjectHTTP writes the trace context of ctx into outgoing request headers.
func InjectHTTP(ctx context.Context, req *http.Request) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

// ExtractHTTP returns ctx enriched with the trace context carried by r.
func ExtractHTTP(ctx context.Context, r *http.Request) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(r.Header))
}
