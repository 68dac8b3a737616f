// Package telemetry provides OpenTelemetry integration for tracing, metrics and logs.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "cheques"

// Span attribute keys. Metric attribute keys live in instruments.go.
const (
	SpanAttrEntryID      = "cheque_entry.id"
	SpanAttrEntryName    = "cheque_entry.name"
	SpanAttrPaymentType  = "cheque_entry.payment_type"
	SpanAttrTable        = "cheque_entry.table"
	SpanAttrRowID        = "cheque_entry.row_id"
	SpanAttrRowIdx       = "cheque_entry.row_idx"
	SpanAttrField        = "cheque_entry.field"
	SpanAttrPaymentEntry = "payment_entry.name"
	SpanAttrCurrencyFrom = "currency.from"
	SpanAttrCurrencyTo   = "currency.to"
	SpanAttrRowCount     = "row_count"
	SpanAttrIssuedCount  = "issued_count"
	SpanAttrHostMethod   = "host.method"
)

// SpanOption configures StartSpan
type SpanOption func(*spanConfig)

type spanConfig struct {
	kind  trace.SpanKind
	attrs []attribute.KeyValue
}

// WithAttribute sets an attribute when the span starts
func WithAttribute(key string, value any) SpanOption {
	return func(c *spanConfig) { c.attrs = append(c.attrs, toAttribute(key, value)) }
}

// StartSpan starts an internal span on the global tracer provider. The
// caller ends it.
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	return startSpan(ctx, name, trace.SpanKindInternal, opts)
}

// StartServiceSpan starts a span named "{service}.{method}", e.g. "cheque_entry.submit".
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return startSpan(ctx, service+"."+method, trace.SpanKindInternal, opts)
}

// StartClientSpan starts a client span for an outbound call.
func StartClientSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return startSpan(ctx, service+"."+method, trace.SpanKindClient, opts)
}

func startSpan(ctx context.Context, name string, kind trace.SpanKind, opts []SpanOption) (context.Context, trace.Span) {
	cfg := spanConfig{kind: kind}
	for _, opt := range opts {
		opt(&cfg)
	}
	startOpts := []trace.SpanStartOption{trace.WithSpanKind(cfg.kind)}
	if len(cfg.attrs) > 0 {
		startOpts = append(startOpts, trace.WithAttributes(cfg.attrs...))
	}
	return otel.GetTracerProvider().Tracer(tracerName).Start(ctx, name, startOpts...)
}

// SetAttributes adds alternating key/value pairs to span. Pairs whose key
// is not a string are skipped, as is a trailing key without a value.
func SetAttributes(span trace.Span, keyValues ...any) {
	if span != nil {
		span.SetAttributes(pairs(keyValues)...)
	}
}

func SetAttribute(span trace.Span, key string, value any) {
	if span != nil {
		span.SetAttributes(toAttribute(key, value))
	}
}

// AddEvent records a named event with alternating key/value attributes.
func AddEvent(span trace.Span, name string, keyValues ...any) {
	if span != nil {
		span.AddEvent(name, trace.WithAttributes(pairs(keyValues)...))
	}
}

// RecordError records err on span and marks it failed. A nil err is a no-op.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetOK(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

func pairs(keyValues []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		if key, ok := keyValues[i].(string); ok {
			attrs = append(attrs, toAttribute(key, keyValues[i+1]))
		}
	}
	return attrs
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case uint64:
		return attribute.Int64(key, int64(v))
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
