package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"
)

func TestAnnotateStatement(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		startedAt time.Duration
		wantError bool
		wantSlow  bool
	}{
		{name: "fast and clean", startedAt: 0},
		{name: "slow", startedAt: time.Second, wantSlow: true},
		{name: "failed", err: errors.New("relation does not exist"), wantError: true},
		{name: "record not found is not an error", err: gorm.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
			defer func() { _ = tp.Shutdown(context.Background()) }()

			ctx, span := tp.Tracer("test").Start(context.Background(), "gorm.Query")
			ctx = context.WithValue(ctx, dbTimingKey{}, time.Now().Add(-tt.startedAt))

			tx := &gorm.DB{Statement: &gorm.Statement{Context: ctx, Table: "currency_exchanges"}, Error: tt.err}
			tx.Statement.DB = tx
			annotateStatement(tx, 200*time.Millisecond)
			span.End()

			ended := sr.Ended()
			require.Len(t, ended, 1)
			attrs := map[string]bool{}
			for _, a := range ended[0].Attributes() {
				attrs[string(a.Key)] = true
			}
			assert.True(t, attrs["db.sql.table"])
			assert.Equal(t, tt.wantSlow, attrs["db.slow_query"])
			if tt.wantError {
				assert.Equal(t, codes.Error, ended[0].Status().Code)
			} else {
				assert.NotEqual(t, codes.Error, ended[0].Status().Code)
			}
		})
	}
}
