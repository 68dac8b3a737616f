package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ChequeMetrics records cheque entry activity: Payment Entry issuance,
// exchange-rate lookups and the notices raised while cascading edits.
// A nil *ChequeMetrics is valid and records nothing.
type ChequeMetrics struct {
	logger *zap.Logger

	issuanceTotal  *Counter
	lookupTotal    *Counter
	lookupDuration *Histogram
	noticeTotal    *Counter
	sessionsActive *Gauge
}

// ChequeMetricsConfig holds configuration for cheque metrics.
type ChequeMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// Issuance outcomes
const (
	IssuanceIssued        = "issued"
	IssuanceSkipped       = "skipped"
	IssuanceZeroRate      = "zero_rate"
	IssuanceRemoteFailure = "remote_failure"
)

// Lookup outcomes
const (
	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupError    = "error"
)

// NewChequeMetrics creates the cheque instruments on the given meter.
func NewChequeMetrics(cfg ChequeMetricsConfig) (*ChequeMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cm := &ChequeMetrics{logger: logger}

	var err error
	cm.issuanceTotal, err = NewCounter(
		cfg.Meter,
		"cheque_payment_entry_issuance_total",
		"Payment Entry issuance attempts by outcome",
		"{rows}",
	)
	if err != nil {
		return nil, err
	}

	cm.lookupTotal, err = NewCounter(
		cfg.Meter,
		"cheque_exchange_rate_lookup_total",
		"Exchange rate lookups by outcome",
		"{lookups}",
	)
	if err != nil {
		return nil, err
	}

	cm.lookupDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "cheque_exchange_rate_lookup_duration_seconds",
		Description: "Exchange rate lookup latency",
		Unit:        "s",
		Boundaries:  SmallDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	cm.noticeTotal, err = NewCounter(
		cfg.Meter,
		"cheque_cascade_notice_total",
		"Notices raised while cascading field edits",
		"{notices}",
	)
	if err != nil {
		return nil, err
	}

	cm.sessionsActive, err = NewGauge(
		cfg.Meter,
		"cheque_sessions_active",
		"Documents currently held in memory",
		"{documents}",
	)
	if err != nil {
		return nil, err
	}

	return cm, nil
}

// RecordIssuance counts one row issuance attempt.
func (cm *ChequeMetrics) RecordIssuance(ctx context.Context, paymentType, outcome string) {
	if cm == nil {
		return
	}
	cm.issuanceTotal.Inc(ctx,
		AttrPaymentType.String(paymentType),
		AttrOutcome.String(outcome),
	)
}

// RecordLookup counts one exchange rate lookup and its latency.
func (cm *ChequeMetrics) RecordLookup(ctx context.Context, from, to, outcome string, d time.Duration) {
	if cm == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrCurrencyPair.String(from + "/" + to),
		AttrOutcome.String(outcome),
	}
	cm.lookupTotal.Inc(ctx, attrs...)
	cm.lookupDuration.RecordDuration(ctx, d, attrs...)
}

// RecordNotice counts a cascade notice by level.
func (cm *ChequeMetrics) RecordNotice(ctx context.Context, level string) {
	if cm == nil {
		return
	}
	cm.noticeTotal.Inc(ctx, AttrNoticeLevel.String(level))
}

// RecordSessions records how many documents are held in memory.
func (cm *ChequeMetrics) RecordSessions(ctx context.Context, n int) {
	if cm == nil {
		return
	}
	cm.sessionsActive.Record(ctx, int64(n))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewChequeMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
