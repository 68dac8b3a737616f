package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func fieldValue(entry observer.LoggedEntry, key string) (string, bool) {
	for _, f := range entry.Context {
		if f.Key == key {
			return f.String, true
		}
	}
	return "", false
}

func TestGormLogger_Options(t *testing.T) {
	gormLog := NewGormLogger(zap.NewNop(), gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, 500*time.Millisecond, gormLog.slowQuery)
	assert.False(t, gormLog.skipNotFound)

	warn, ok := gormLog.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, warn.level)
	assert.Equal(t, gormlogger.Info, gormLog.level, "LogMode must not mutate the receiver")

	var _ gormlogger.Interface = gormLog
}

func TestGormLogger_Trace(t *testing.T) {
	query := func() (string, int64) { return "SELECT * FROM cheque_entries", 1 }

	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		begin     time.Time
		err       error
		wantLevel zapcore.Level
		wantMsg   string
		wantNone  bool
	}{
		{name: "query error", level: gormlogger.Info, begin: time.Now(), err: errors.New("boom"), wantLevel: zapcore.ErrorLevel, wantMsg: "SQL Error"},
		{name: "record not found ignored", level: gormlogger.Info, begin: time.Now(), err: gormlogger.ErrRecordNotFound, wantNone: true},
		{name: "slow query", level: gormlogger.Warn, begin: time.Now().Add(-time.Second), wantLevel: zapcore.WarnLevel, wantMsg: "SLOW SQL >= 200ms"},
		{name: "normal query", level: gormlogger.Info, begin: time.Now(), wantLevel: zapcore.DebugLevel, wantMsg: "SQL Query"},
		{name: "silent", level: gormlogger.Silent, begin: time.Now(), err: errors.New("boom"), wantNone: true},
		{name: "fast query below info", level: gormlogger.Warn, begin: time.Now(), wantNone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gormLog := NewGormLogger(zap.New(core), tt.level)

			gormLog.Trace(context.Background(), tt.begin, query, tt.err)

			if tt.wantNone {
				assert.Empty(t, recorded.All())
				return
			}
			logs := recorded.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.wantLevel, logs[0].Level)
			assert.Equal(t, tt.wantMsg, logs[0].Message)
		})
	}
}

func TestGormLogger_Trace_ContextFields(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gormLog := NewGormLogger(zap.New(core), gormlogger.Info)

	ctx := context.WithValue(context.Background(), requestIDKey, "req-7")
	ctx = context.WithValue(ctx, entryKey, "MCE-0001")

	gormLog.Trace(ctx, time.Now(), func() (string, int64) { return "UPDATE cheque_rows", 1 }, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	reqID, ok := fieldValue(logs[0], "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-7", reqID)
	entry, ok := fieldValue(logs[0], "cheque_entry")
	require.True(t, ok)
	assert.Equal(t, "MCE-0001", entry)
}

func TestGormLogger_Messages(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gormLog := NewGormLogger(zap.New(core), gormlogger.Warn)

	gormLog.Info(context.Background(), "migrated %d tables", 3)
	gormLog.Warn(context.Background(), "deprecated %s", "option")
	gormLog.Error(context.Background(), "failed: %v", "x")

	logs := recorded.All()
	require.Len(t, logs, 2, "info is below the configured level")
	assert.Equal(t, "deprecated option", logs[0].Message)
	assert.Equal(t, "failed: x", logs[1].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
