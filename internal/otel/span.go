// Package otel provides OpenTelemetry span helpers shared by the feed and gateway code.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by the feed, submission and gateway spans
const (
	AttrCollection     = attribute.Key("feed.collection")
	AttrPostID         = attribute.Key("feed.post_id")
	AttrRowCount       = attribute.Key("feed.row_count")
	AttrResultCount    = attribute.Key("result.count")
	AttrFailureCount   = attribute.Key("feed.failure_count")
	AttrCoalesced      = attribute.Key("feed.coalesced")
	AttrIdempotencyKey = attribute.Key("submission.idempotency_key")
	AttrImageBytes     = attribute.Key("submission.image_bytes")
)

// StartSpan starts a child span on tracer. With a nil tracer nothing is started
// and the span already carried by ctx is returned, so callers can End it unconditionally.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError adds err as an exception event and marks span failed. Nil span or err is a no-op.
// The status description stays generic; session tokens and server URLs only reach the event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
