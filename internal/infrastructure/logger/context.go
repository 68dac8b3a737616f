package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	entryKey
	subjectKey
)

// contextTags are the request-scoped values copied onto loggers that did not
// come from the context.
var contextTags = []struct {
	key   ctxKey
	field string
}{
	{requestIDKey, "request_id"},
	{entryKey, "cheque_entry"},
	{subjectKey, "subject"},
}

// WithContext stores l in ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID tags ctx and l with the request ID. The tagged logger is
// stored in the returned context.
func WithRequestID(ctx context.Context, l *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return tag(ctx, l, requestIDKey, "request_id", requestID)
}

// WithEntry tags ctx and l with the cheque entry being edited.
func WithEntry(ctx context.Context, l *zap.Logger, entryID string) (context.Context, *zap.Logger) {
	return tag(ctx, l, entryKey, "cheque_entry", entryID)
}

// WithSubject tags ctx and l with the authenticated caller.
func WithSubject(ctx context.Context, l *zap.Logger, subject string) (context.Context, *zap.Logger) {
	return tag(ctx, l, subjectKey, "subject", subject)
}

func tag(ctx context.Context, l *zap.Logger, key ctxKey, field, value string) (context.Context, *zap.Logger) {
	l = l.With(zap.String(field, value))
	return WithContext(context.WithValue(ctx, key, value), l), l
}

func GetRequestID(ctx context.Context) string { return value(ctx, requestIDKey) }

func GetEntry(ctx context.Context) string { return value(ctx, entryKey) }

func GetSubject(ctx context.Context) string { return value(ctx, subjectKey) }

func value(ctx context.Context, key ctxKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// WithTraceContext adds trace_id and span_id from the span in ctx. l is
// returned unchanged when there is no valid span.
func WithTraceContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// ContextLogger is a zap logger bound to one request context.
type ContextLogger struct {
	logger *zap.Logger
}

// L returns the logger stored in ctx with the current trace attached.
// Request tags are already on it.
//
//	logger.L(ctx).Warn("rate missing", zap.String("pair", "USD/EUR"))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{logger: WithTraceContext(ctx, FromContext(ctx))}
}

// WithLogger binds a long-lived component logger to ctx, copying the trace
// and every request tag found in ctx.
func WithLogger(ctx context.Context, l *zap.Logger) *ContextLogger {
	if l == nil {
		l = zap.NewNop()
	}
	l = WithTraceContext(ctx, l)
	for _, t := range contextTags {
		if v := value(ctx, t.key); v != "" {
			l = l.With(zap.String(t.field, v))
		}
	}
	return &ContextLogger{logger: l}
}

func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{logger: cl.logger.With(fields...)}
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.logger.Debug(msg, fields...) }
func (cl *ContextLogger) Info(msg string, fields ...zap.Field)  { cl.logger.Info(msg, fields...) }
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field)  { cl.logger.Warn(msg, fields...) }
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.logger.Error(msg, fields...) }

// Zap exposes the bound logger
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.logger
}
