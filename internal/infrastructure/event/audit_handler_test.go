package event

import (
	"context"
	"testing"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuditLogHandler(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewAuditLogHandler(zap.New(core))
	ctx := context.Background()
	e := newEntry(t)

	require.NoError(t, h.Handle(ctx, cheque.NewChequeEntryCreatedEvent(e)))
	require.NoError(t, h.Handle(ctx, cheque.NewPaymentEntryFailedEvent(e, uuid.New(), 2, "rate missing")))

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "audit", entries[0].LoggerName)
	assert.Equal(t, "MCE-0001", entries[0].ContextMap()["name"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "rate missing", entries[1].ContextMap()["reason"])
	assert.Equal(t, int64(2), entries[1].ContextMap()["row"])
}
