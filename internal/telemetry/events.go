package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var businessTracer = otel.Tracer("business-events")

// FeedEventAttrs describes one feed composition
type FeedEventAttrs struct {
	ViewerID  string
	Limit     int
	ColdStart bool
}

// TraceFeed opens a span around a feed request
func TraceFeed(ctx context.Context, attrs FeedEventAttrs) (context.Context, trace.Span) {
	return businessTracer.Start(ctx, "feed.hybrid",
		trace.WithAttributes(
			attribute.String("user.id", attrs.ViewerID),
			attribute.Int("feed.limit", attrs.Limit),
			attribute.Bool("feed.cold_start", attrs.ColdStart),
		),
	)
}

// TraceInteraction opens a span for a like, comment, repost or follow
func TraceInteraction(ctx context.Context, kind, actorID, targetID string) (context.Context, trace.Span) {
	return businessTracer.Start(ctx, "interaction."+kind,
		trace.WithAttributes(
			attribute.String("user.id", actorID),
			attribute.String("interaction.target", targetID),
		),
	)
}

// EndSpan records err (if any) and ends span
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	span.End()
}
