package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware wraps otelgin and tags the span with the caller and
// paging parameters
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	base := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		if userID := c.GetString(util.ContextUserID); userID != "" {
			span.SetAttributes(attribute.String("user.id", userID))
		}
		if requestID := c.GetString(RequestIDKey); requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}
		if limit := c.Query("limit"); limit != "" {
			span.SetAttributes(attribute.String("query.limit", limit))
		}
		if cursor := c.Query("cursor"); cursor != "" {
			span.SetAttributes(attribute.String("query.cursor", cursor))
		}

		for _, ginErr := range c.Errors {
			if ginErr.Err != nil {
				span.RecordError(ginErr.Err)
				span.SetStatus(codes.Error, ginErr.Error())
			}
		}
	}
}
