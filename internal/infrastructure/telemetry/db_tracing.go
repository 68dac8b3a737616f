package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include bound variables; development only
	SlowQueryThresh time.Duration // default 200ms
	DBSystem        string        // default "postgresql"
}

// DefaultDBTracingConfig returns tracing off with variables hidden.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

type dbTimingKey struct{}

// RegisterDBTracing installs otelgorm on db plus callbacks that flag slow
// statements and record errors on the statement span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	start := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, dbTimingKey{}, time.Now())
		}
	}
	finish := func(tx *gorm.DB) { annotateStatement(tx, cfg.SlowQueryThresh) }

	// The after hooks must run before otelgorm ends the statement span.
	cb := db.Callback()
	hooks := []struct {
		op     string
		before interface{ Register(string, func(*gorm.DB)) error }
		after  interface{ Register(string, func(*gorm.DB)) error }
	}{
		{"create", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create").Before("otel:after:create")},
		{"query", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query").Before("otel:after:query")},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update").Before("otel:after:update")},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete").Before("otel:after:delete")},
		{"raw", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw").Before("otel:after:raw")},
	}
	for _, h := range hooks {
		if err := h.before.Register("cheques:timing_before_"+h.op, start); err != nil {
			return err
		}
		if err := h.after.Register("cheques:timing_after_"+h.op, finish); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
		zap.String("db_system", cfg.DBSystem),
	)
	return nil
}

func annotateStatement(tx *gorm.DB, slow time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))

	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.RecordError(tx.Error)
		span.SetStatus(codes.Error, tx.Error.Error())
	}

	began, ok := ctx.Value(dbTimingKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(began); elapsed > slow {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", slow.Milliseconds()),
		))
	}
}
