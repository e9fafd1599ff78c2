// Package tracing wires OpenTelemetry spans around the proxy's routed
// calls and bus operations.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/piizei/a2a-proxy"

// NewProvider builds a TracerProvider tagged with this proxy instance's
// id, so spans from different proxies in the same trace are
// distinguishable.
func NewProvider(proxyID string) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceNameKey.String("a2a-proxy"),
		attribute.String("proxy.id", proxyID),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartRouteSpan starts a span around a single routed call.
func StartRouteSpan(ctx context.Context, agentID, locality string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "router.route",
		trace.WithAttributes(
			attribute.String("a2a.agent_id", agentID),
			attribute.String("a2a.locality", locality),
		),
	)
}

// StartBusSpan starts a span around a single publish or receive
// operation.
func StartBusSpan(ctx context.Context, operation, topic string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "bus."+operation,
		trace.WithAttributes(attribute.String("messaging.destination", topic)),
	)
}

// EndWithError records err on span (if non-nil) and ends it.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
