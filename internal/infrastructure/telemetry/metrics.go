package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Metric exporters
const (
	ExporterOTLP       = "otlp"
	ExporterPrometheus = "prometheus"
)

const defaultExportInterval = time.Minute

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled           bool
	Exporter          string // otlp (default) or prometheus
	CollectorEndpoint string
	ExportInterval    time.Duration // otlp only
	ServiceName       string
	ServiceVersion    string
	Insecure          bool
}

// MeterProvider owns the SDK meter provider and, for the Prometheus
// exporter, the registry scraped through Handler.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
	logger   *zap.Logger
	config   MetricsConfig
}

// NewMeterProvider installs a global meter provider for the configured
// exporter. When metrics are disabled the global no-op provider is left in
// place and every instrument records nothing.
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	if cfg.Exporter == "" {
		cfg.Exporter = ExporterOTLP
	}
	mp := &MeterProvider{logger: logger, config: cfg}
	if !cfg.Enabled {
		logger.Info("metrics disabled")
		return mp, nil
	}

	reader, err := mp.newReader(ctx)
	if err != nil {
		return nil, err
	}
	res, err := serviceResource(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}
	mp.provider = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp.provider)

	started("metrics", logger, zap.String("exporter", cfg.Exporter), zap.String("collector_endpoint", cfg.CollectorEndpoint))
	return mp, nil
}

// newReader builds the metric reader. The Prometheus reader registers on a
// private registry so only this service's instruments are exposed.
func (mp *MeterProvider) newReader(ctx context.Context) (sdkmetric.Reader, error) {
	switch mp.config.Exporter {
	case ExporterPrometheus:
		mp.registry = prometheus.NewRegistry()
		exporter, err := promexporter.New(promexporter.WithRegisterer(mp.registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus metrics exporter: %w", err)
		}
		return exporter, nil

	case ExporterOTLP:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(mp.config.CollectorEndpoint)}
		if mp.config.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		interval := mp.config.ExportInterval
		if interval <= 0 {
			interval = defaultExportInterval
		}
		return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)), nil

	default:
		return nil, fmt.Errorf("unknown metrics exporter %q", mp.config.Exporter)
	}
}

// Handler serves the Prometheus exposition format, or nil unless the
// Prometheus exporter is active.
func (mp *MeterProvider) Handler() http.Handler {
	if mp.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(mp.registry, promhttp.HandlerOpts{Registry: mp.registry})
}

// Meter returns a named meter, falling back to the global provider
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// IsEnabled reports whether instruments are exported
func (mp *MeterProvider) IsEnabled() bool {
	return mp.config.Enabled && mp.provider != nil
}

// Shutdown flushes pending metrics. Safe to call when disabled.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	return shutdownSignal(ctx, mp.logger, "metrics", mp.provider.Shutdown)
}
