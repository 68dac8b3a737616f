package cheque

import (
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names published on the bus
const (
	EventTypeChequeEntryCreated   = "cheque_entry.created"
	EventTypeChequeEntrySubmitted = "cheque_entry.submitted"
	EventTypeChequeEntryCancelled = "cheque_entry.cancelled"
	EventTypePaymentEntryIssued   = "cheque_entry.payment_entry_issued"
	EventTypePaymentEntryFailed   = "cheque_entry.payment_entry_failed"
	AggregateTypeChequeEntry      = "ChequeEntry"
)

// ChequeEntryCreatedEvent is raised when a draft is created
type ChequeEntryCreatedEvent struct {
	shared.BaseDomainEvent
	Name        string      `json:"name"`
	PaymentType PaymentType `json:"payment_type"`
	Company     string      `json:"company"`
}

// NewChequeEntryCreatedEvent creates a ChequeEntryCreatedEvent
func NewChequeEntryCreatedEvent(e *ChequeEntry) *ChequeEntryCreatedEvent {
	return &ChequeEntryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChequeEntryCreated, AggregateTypeChequeEntry, e.ID),
		Name:            e.Name,
		PaymentType:     e.PaymentType,
		Company:         e.Company,
	}
}

// ChequeEntrySubmittedEvent is raised once every row has a Payment Entry
type ChequeEntrySubmittedEvent struct {
	shared.BaseDomainEvent
	Name           string      `json:"name"`
	PaymentType    PaymentType `json:"payment_type"`
	PaymentEntries []string    `json:"payment_entries"`
}

// NewChequeEntrySubmittedEvent creates a ChequeEntrySubmittedEvent
func NewChequeEntrySubmittedEvent(e *ChequeEntry) *ChequeEntrySubmittedEvent {
	names := make([]string, 0, len(e.ActiveRows()))
	for _, r := range e.ActiveRows() {
		names = append(names, r.PaymentEntry)
	}
	return &ChequeEntrySubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChequeEntrySubmitted, AggregateTypeChequeEntry, e.ID),
		Name:            e.Name,
		PaymentType:     e.PaymentType,
		PaymentEntries:  names,
	}
}

// ChequeEntryCancelledEvent is raised after linked Payment Entries are cancelled
type ChequeEntryCancelledEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
}

// NewChequeEntryCancelledEvent creates a ChequeEntryCancelledEvent
func NewChequeEntryCancelledEvent(e *ChequeEntry) *ChequeEntryCancelledEvent {
	return &ChequeEntryCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChequeEntryCancelled, AggregateTypeChequeEntry, e.ID),
		Name:            e.Name,
	}
}

// PaymentEntryIssuedEvent is raised per row when its Payment Entry is created
type PaymentEntryIssuedEvent struct {
	shared.BaseDomainEvent
	EntryName    string          `json:"entry_name"`
	RowID        uuid.UUID       `json:"row_id"`
	RowIdx       int             `json:"row_idx"`
	PaymentEntry string          `json:"payment_entry"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
}

// NewPaymentEntryIssuedEvent creates a PaymentEntryIssuedEvent
func NewPaymentEntryIssuedEvent(e *ChequeEntry, row *ChequeRow) *PaymentEntryIssuedEvent {
	return &PaymentEntryIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentEntryIssued, AggregateTypeChequeEntry, e.ID),
		EntryName:       e.Name,
		RowID:           row.ID,
		RowIdx:          row.Idx,
		PaymentEntry:    row.PaymentEntry,
		PaidAmount:      row.PaidAmount,
	}
}

// PaymentEntryFailedEvent is raised per row when issuance did not happen
type PaymentEntryFailedEvent struct {
	shared.BaseDomainEvent
	EntryName string    `json:"entry_name"`
	RowID     uuid.UUID `json:"row_id"`
	RowIdx    int       `json:"row_idx"`
	Reason    string    `json:"reason"`
}

// NewPaymentEntryFailedEvent creates a PaymentEntryFailedEvent
func NewPaymentEntryFailedEvent(e *ChequeEntry, rowID uuid.UUID, rowIdx int, reason string) *PaymentEntryFailedEvent {
	return &PaymentEntryFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentEntryFailed, AggregateTypeChequeEntry, e.ID),
		EntryName:       e.Name,
		RowID:           rowID,
		RowIdx:          rowIdx,
		Reason:          reason,
	}
}
