// Package observability bootstraps the process-wide OpenTelemetry tracer
// provider that internal/kernel's spans attach to.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// TraceConfig configures the process tracer provider.
type TraceConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// SamplingRate controls what fraction of traces are recorded, from 0.0
	// to 1.0. Defaults to 1.0 if zero.
	SamplingRate float64
}

// NewTracerProvider builds and registers the global TracerProvider that
// internal/kernel's otel.Tracer(...) calls resolve against, and returns a
// shutdown func to flush and release it on exit.
//
// No OTLP exporter is wired here: shipping spans to a concrete collector
// (Jaeger, Tempo, a SaaS backend) is an operator-side concern outside this
// runtime's scope, the same way a concrete LLM SDK adapter is left out of
// internal/provider. The provider still samples and records spans under
// cfg.SamplingRate, so TestXxx code and in-process span inspection work;
// wiring a real exporter is an sdktrace.WithBatcher(exporter) option added
// here, not a change to any span-producing call site.
func NewTracerProvider(cfg TraceConfig) (func(context.Context) error, error) {
	if cfg.SamplingRate == 0 {
		cfg.SamplingRate = 1.0
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "orchkernel"
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		res = resource.Default()
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
