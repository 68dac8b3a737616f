package cheque

import (
	"context"

	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Repository persists ChequeEntry aggregates together with their rows
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ChequeEntry, error)
	FindByName(ctx context.Context, name string) (*ChequeEntry, error)
	// Save writes the document and replaces its rows. It fails with
	// shared.ErrConcurrencyConflict when the stored version moved on.
	Save(ctx context.Context, entry *ChequeEntry) error
	// SetRowPaymentEntry records an issued Payment Entry on a single row
	SetRowPaymentEntry(ctx context.Context, rowID uuid.UUID, paymentEntry string) error
}

// CompanyDefaults are the company-level accounts used to seed a document
type CompanyDefaults struct {
	DefaultCurrency      valueobject.Currency `json:"default_currency"`
	ReceivableAccount    string               `json:"default_receivable_account"`
	PayableAccount       string               `json:"default_payable_account"`
	IncomingChequeWallet string               `json:"default_incoming_cheque_wallet_account"`
}

// ModeOfPaymentInfo is a Mode of Payment record resolved for one company
type ModeOfPaymentInfo struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	DefaultAccount string `json:"default_account"`
}

// Directory reads master data from the host
type Directory interface {
	// AccountCurrency returns the account's currency, or "" when the master has none
	AccountCurrency(ctx context.Context, account string) (valueobject.Currency, error)
	PartyName(ctx context.Context, partyType PartyType, party string) (string, error)
	PartyAccount(ctx context.Context, partyType PartyType, party, company string) (string, error)
	CompanyDefaults(ctx context.Context, company string) (*CompanyDefaults, error)
	ModeOfPayment(ctx context.Context, name, company string) (*ModeOfPaymentInfo, error)
}

// LinkedPaymentEntry is a Payment Entry referencing a Multiple Cheque Entry
type LinkedPaymentEntry struct {
	Name      string    `json:"name"`
	DocStatus DocStatus `json:"docstatus"`
}

// PaymentEntryGateway creates and manages Payment Entries on the host
type PaymentEntryGateway interface {
	// Create inserts and submits the Payment Entry and returns its name
	Create(ctx context.Context, req *PaymentEntryRequest) (string, error)
	ListLinked(ctx context.Context, entryName string) ([]LinkedPaymentEntry, error)
	Cancel(ctx context.Context, name string) error
}
