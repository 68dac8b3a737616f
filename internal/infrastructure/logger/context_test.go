package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestFromContext(t *testing.T) {
	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))

	assert.NotNil(t, FromContext(context.Background()))
	wrong := context.WithValue(context.Background(), loggerKey, "not a logger")
	assert.NotNil(t, FromContext(wrong))
}

func TestContextEnrichment(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, l := WithRequestID(context.Background(), base, "req-1")
	ctx, l = WithEntry(ctx, l, "entry-9")
	ctx, l = WithSubject(ctx, l, "clerk")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "entry-9", GetEntry(ctx))
	assert.Equal(t, "clerk", GetSubject(ctx))
	assert.Same(t, l, FromContext(ctx))

	l.Info("edited")
	entry := recorded.All()[0]
	assert.Equal(t, "entry-9", entry.ContextMap()["cheque_entry"])
	assert.Equal(t, "clerk", entry.ContextMap()["subject"])
}

func TestContextGetters_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetEntry(ctx))
	assert.Empty(t, GetSubject(ctx))
}

func TestWithTraceContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	assert.Same(t, base, WithTraceContext(context.Background(), base))

	WithTraceContext(spanContext(t), base).Info("traced")
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", fields["trace_id"])
	assert.Equal(t, "0102030405060708", fields["span_id"])
}

func TestContextLogger(t *testing.T) {
	t.Run("WithLogger copies context tags", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		ctx, _ := WithRequestID(spanContext(t), zap.NewNop(), "req-2")
		ctx, _ = WithEntry(ctx, zap.NewNop(), "entry-3")

		WithLogger(ctx, zap.New(core)).With(zap.String("row", "r1")).Warn("rate missing")

		logs := recorded.All()
		require.Len(t, logs, 1)
		fields := logs[0].ContextMap()
		assert.Equal(t, "req-2", fields["request_id"])
		assert.Equal(t, "entry-3", fields["cheque_entry"])
		assert.Equal(t, "r1", fields["row"])
		assert.Contains(t, fields, "trace_id")
		assert.NotContains(t, fields, "subject")
	})

	t.Run("L uses the tagged context logger once", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		ctx, _ := WithRequestID(context.Background(), zap.New(core), "req-4")

		L(ctx).Info("handled")

		logs := recorded.All()
		require.Len(t, logs, 1)
		n := 0
		for _, f := range logs[0].Context {
			if f.Key == "request_id" {
				n++
			}
		}
		assert.Equal(t, 1, n)
		assert.NotContains(t, logs[0].ContextMap(), "trace_id")
	})

	t.Run("levels", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		cl := WithLogger(context.Background(), zap.New(core))

		cl.Debug("d")
		cl.Info("i")
		cl.Warn("w")
		cl.Error("e")
		cl.Zap().Info("z")

		assert.Len(t, recorded.All(), 5)
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		cl := WithLogger(context.Background(), nil)
		assert.NotPanics(t, func() { cl.Info("dropped") })
	})
}
