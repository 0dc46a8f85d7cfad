package middleware

import (
	"time"

	"roomhub/internal/core/domain"
	"roomhub/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TracingMiddleware opens a span per request and tags it with the route,
// the caller and, when the route carries one, the room id.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, c.FullPath())
		defer span.End()

		span.SetAttributes(
			attribute.String("http.host", c.Request.Host),
			attribute.String("http.user_agent", c.Request.UserAgent()),
			attribute.String("http.remote_addr", c.ClientIP()),
		)
		if roomID := c.Param("id"); roomID != "" {
			span.SetAttributes(tracing.RoomIDKey.String(roomID))
		}
		if slug := c.Param("slug"); slug != "" {
			span.SetAttributes(tracing.SlugKey.String(slug))
		}

		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		span.SetAttributes(
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.response_size", int64(c.Writer.Size())),
			tracing.DurationKey.Int64(time.Since(start).Milliseconds()),
		)
		if userID, ok := c.Get("user_id"); ok {
			if id, ok := userID.(domain.UserID); ok {
				span.SetAttributes(tracing.UserIDKey.String(string(id)))
			}
		}

		if c.Writer.Status() >= 400 {
			span.SetStatus(codes.Error, c.Errors.String())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
