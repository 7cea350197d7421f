package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "satprep"

var globalTracer trace.Tracer

// InitGlobalTracer binds the package tracer to the current global provider
func InitGlobalTracer() {
	globalTracer = otel.Tracer(tracerName)
}

// GetGlobalTracer returns the package tracer, falling back to the global provider
func GetGlobalTracer() trace.Tracer {
	if globalTracer == nil {
		return otel.Tracer(tracerName)
	}
	return globalTracer
}

// TraceFunction starts a span named "<area>.<function>"
func TraceFunction(ctx context.Context, area, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return GetGlobalTracer().Start(ctx, fmt.Sprintf("%s.%s", area, functionName), trace.WithAttributes(attributes...))
}

// TraceLearningFunction starts a span for a learning path service function
func TraceLearningFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "learning_path", functionName, attributes...)
}

// TraceHandlerFunction starts a span for a handler function
func TraceHandlerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", functionName, attributes...)
}

// TraceDatabaseFunction starts a span for a database function
func TraceDatabaseFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "database", functionName, attributes...)
}

// TraceCacheFunction starts a span for a catalog cache function
func TraceCacheFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "cache", functionName, attributes...)
}

// FinishSpan ends a span and records any error pointed to by errPtr.
// Use with a named error return: `defer observability.FinishSpan(span, &err)`
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	if errPtr != nil && *errPtr != nil {
		span.RecordError(*errPtr, trace.WithStackTrace(true))
		span.SetStatus(codes.Error, (*errPtr).Error())
	}
	span.End()
}

// AttributeUserID returns a tracing attribute for a user ID
func AttributeUserID(id int) attribute.KeyValue {
	return attribute.Int("user.id", id)
}

// AttributeRecommendationID returns a tracing attribute for a recommendation ID
func AttributeRecommendationID(id int) attribute.KeyValue {
	return attribute.Int("recommendation.id", id)
}

// AttributeMajorTopicID returns a tracing attribute for a major topic ID
func AttributeMajorTopicID(id int) attribute.KeyValue {
	return attribute.Int("major_topic.id", id)
}

// AttributeLimit returns a tracing attribute for a limit value
func AttributeLimit(limit int) attribute.KeyValue {
	return attribute.Int("limit", limit)
}
