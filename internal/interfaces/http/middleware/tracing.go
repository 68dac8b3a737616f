// Package middleware provides the gin middleware of the cheque entry API.
package middleware

import (
	"net/http"

	"github.com/erp/cheques/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps caller supplied request IDs
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig wraps otelgin. Spans are named after the route pattern
// and carry request_id, plus cheque_entry on document routes.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnricher tags the active span once routing and auth have run.
// Place it after TracingWithConfig and JWTAuth.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpan(c, span)
		}
		c.Next()

		if !span.IsRecording() {
			return
		}
		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			span.SetAttributes(attribute.Int("http.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		}
	}
}

func enrichSpan(c *gin.Context, span trace.Span) {
	if requestID := getRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if subject := GetSubject(c); subject != "" {
		span.SetAttributes(attribute.String("subject", subject))
	}
	if entryID := c.Param("id"); entryID != "" {
		span.SetAttributes(attribute.String(telemetry.SpanAttrEntryID, entryID))
	}
	if table := c.Param("table"); table != "" {
		span.SetAttributes(attribute.String(telemetry.SpanAttrTable, table))
	}
	if rowID := c.Param("row_id"); rowID != "" {
		span.SetAttributes(attribute.String(telemetry.SpanAttrRowID, rowID))
	}
}

// getRequestID reads the ID set by RequestID, falling back to a truncated header
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	id := c.GetHeader(RequestIDHeader)
	if len(id) > MaxRequestIDLength {
		return id[:MaxRequestIDLength]
	}
	return id
}
