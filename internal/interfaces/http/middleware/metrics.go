package middleware

import (
	"time"

	"github.com/erp/cheques/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Enabled       bool
}

var sizeBuckets = []float64{256, 1 << 10, 4 << 10, 16 << 10, 64 << 10, 256 << 10, 1 << 20, 4 << 20, 10 << 20}

// serverMetrics are the per-route HTTP instruments
type serverMetrics struct {
	requests     *telemetry.Counter
	duration     *telemetry.Histogram
	requestSize  *telemetry.Histogram
	responseSize *telemetry.Histogram
	inFlight     metric.Int64UpDownCounter
}

func newServerMetrics(meter metric.Meter) (*serverMetrics, error) {
	var (
		m   serverMetrics
		err error
	)
	if m.requests, err = telemetry.NewCounter(meter,
		"http_server_request_total", "HTTP requests by route and status", "{request}"); err != nil {
		return nil, err
	}
	if m.duration, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}
	// Request bodies are mostly small JSON edits; cheque picture uploads
	// make up the tail.
	if m.requestSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "HTTP request body size",
		Unit:        "By",
		Boundaries:  sizeBuckets,
	}); err != nil {
		return nil, err
	}
	if m.responseSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size",
		Unit:        "By",
		Boundaries:  sizeBuckets,
	}); err != nil {
		return nil, err
	}
	if m.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests currently being served"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *serverMetrics) handle(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()
	m.inFlight.Add(ctx, 1)
	defer m.inFlight.Add(ctx, -1)

	c.Next()

	// Label by route pattern so entry IDs never become label values
	route := c.FullPath()
	if route == "" {
		route = "unknown"
	}
	attrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(c.Request.Method),
		telemetry.AttrHTTPRoute.String(route),
	}
	m.requests.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))...)
	m.duration.RecordDuration(ctx, time.Since(start), attrs...)
	if n := c.Request.ContentLength; n > 0 {
		m.requestSize.Record(ctx, float64(n), attrs...)
	}
	if n := c.Writer.Size(); n > 0 {
		m.responseSize.Record(ctx, float64(n), attrs...)
	}
}

// HTTPMetrics records request count, latency and body sizes per route.
// It is a no-op when metrics are disabled.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"))
}

// HTTPMetricsWithMeter builds the middleware on an existing meter. If the
// instruments cannot be created requests pass through unmeasured.
func HTTPMetricsWithMeter(meter metric.Meter) gin.HandlerFunc {
	m, err := newServerMetrics(meter)
	if err != nil {
		return passThrough
	}
	return m.handle
}

func passThrough(c *gin.Context) { c.Next() }
