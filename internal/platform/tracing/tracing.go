// Package tracing holds the span conventions shared by the domain services.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "agencyhub/pkg/domain-errors"
)

const instrumentation = "agencyhub"

// Tracer returns the named tracer from the global provider. Without an
// installed SDK this is a no-op tracer.
func Tracer(component string) trace.Tracer {
	return otel.Tracer(instrumentation + "/" + component)
}

// Start opens a span named component.operation.
func Start(ctx context.Context, tracer trace.Tracer, name string, kv ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(kv...))
}

// Finish records err on span, tagged with its domain code, and ends it.
func Finish(span trace.Span, err error) {
	if err != nil {
		code := dErrors.CodeOf(err)
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.code", string(code)))
		span.SetStatus(codes.Error, string(code))
	}
	span.End()
}

// ID renders a typed id as a span attribute.
func ID(key string, v interface{ String() string }) attribute.KeyValue {
	return attribute.String(key, v.String())
}
