package kernel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/haasonsaas/orchkernel/internal/kernel"

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// startSessionSpan opens a span covering one activation's full session
// loop, tagged with the identifiers a trace backend needs to correlate it
// with the event log.
func startSessionSpan(ctx context.Context, activationID, agentID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "kernel.session",
		trace.WithAttributes(
			attribute.String("activation.id", activationID),
			attribute.String("agent.id", agentID),
		),
	)
}

// startToolSpan opens a span covering one tool execution.
func startToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "kernel.tool_exec",
		trace.WithAttributes(attribute.String("tool.name", toolName)),
	)
}

// startProviderSpan opens a span covering one provider streaming call.
func startProviderSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "kernel.provider_call",
		trace.WithAttributes(attribute.String("model", model)),
	)
}
