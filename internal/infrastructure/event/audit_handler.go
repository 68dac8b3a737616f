package event

import (
	"context"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes one structured log line per lifecycle event
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an AuditLogHandler
func NewAuditLogHandler(log *zap.Logger) *AuditLogHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditLogHandler{logger: log.Named("audit")}
}

// EventTypes returns nil so every event is audited
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle implements shared.EventHandler
func (h *AuditLogHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
		zap.String("aggregate_id", ev.AggregateID().String()),
	}

	switch e := ev.(type) {
	case *cheque.ChequeEntryCreatedEvent:
		fields = append(fields, zap.String("name", e.Name), zap.String("payment_type", string(e.PaymentType)))
	case *cheque.ChequeEntrySubmittedEvent:
		fields = append(fields, zap.String("name", e.Name), zap.Strings("payment_entries", e.PaymentEntries))
	case *cheque.ChequeEntryCancelledEvent:
		fields = append(fields, zap.String("name", e.Name))
	case *cheque.PaymentEntryIssuedEvent:
		fields = append(fields,
			zap.String("name", e.EntryName),
			zap.Int("row", e.RowIdx),
			zap.String("payment_entry", e.PaymentEntry),
			zap.String("paid_amount", e.PaidAmount.String()))
	case *cheque.PaymentEntryFailedEvent:
		fields = append(fields, zap.String("name", e.EntryName), zap.Int("row", e.RowIdx), zap.String("reason", e.Reason))
		logger.WithLogger(ctx, h.logger).Warn("cheque entry event", fields...)
		return nil
	}

	logger.WithLogger(ctx, h.logger).Info("cheque entry event", fields...)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
