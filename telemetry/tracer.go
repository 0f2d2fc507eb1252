// Package telemetry provides the OpenTelemetry tracer provider and span
// helper the gateway uses to trace each request as a single span; the
// planning, optimizing, executing and rendering stages get no spans of
// their own, and no per-step shapes or timings are recorded. Grounded on the teacher's
// otelhttp.NewTransport wiring in gateway/gateway.go (there, tracing wraps
// outbound subgraph HTTP calls; here it wraps the in-process pipeline
// stages a single-schema engine actually has).
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies this module's spans in any exporter/backend.
const TracerName = "github.com/grafast-dev/grafast"

// Config configures the OTLP/HTTP exporter. Endpoint is the collector's
// host:port (no scheme); an empty Endpoint disables export entirely and
// NewProvider returns a provider that only ever produces no-op spans.
type Config struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
}

// NewProvider builds an SDK TracerProvider exporting spans over OTLP/HTTP,
// or a no-op-equivalent provider (sampler.Never) when cfg.Endpoint is empty
// so that instrumented code pays no tracing cost when tracing is disabled.
func NewProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
	))
	if err != nil {
		return nil, err
	}

	if cfg.Endpoint == "" {
		return sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.NeverSample()),
		), nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	), nil
}

// Tracer returns the package-wide tracer off the global TracerProvider;
// call otel.SetTracerProvider(provider) once at startup with a provider
// from NewProvider.
func Tracer() trace.Tracer { return otel.Tracer(TracerName) }

// StartStage starts a span named for one pipeline stage (plan, optimize,
// execute, render), tagging it under the operation's request id.
func StartStage(ctx context.Context, requestID, stage string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "grafast."+stage, trace.WithAttributes(
		attribute.String("grafast.request_id", requestID),
	))
}
