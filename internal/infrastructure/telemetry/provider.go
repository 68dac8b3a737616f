package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// serviceResource describes this process to every exporter.
func serviceResource(name, version string) (*resource.Resource, error) {
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

// shutdownSignal flushes one OTel signal pipeline within shutdownTimeout.
// A nil shutdown func means the signal was never started.
func shutdownSignal(ctx context.Context, logger *zap.Logger, signal string, shutdown func(context.Context) error) error {
	if shutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := shutdown(ctx); err != nil {
		logger.Error("telemetry flush failed", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("shutdown %s provider: %w", signal, err)
	}
	logger.Debug("telemetry flushed", zap.String("signal", signal))
	return nil
}

func started(signal string, logger *zap.Logger, fields ...zap.Field) {
	logger.Info("telemetry pipeline started", append([]zap.Field{zap.String("signal", signal)}, fields...)...)
}
