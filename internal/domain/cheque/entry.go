package cheque

import (
	"fmt"
	"time"

	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ChequeEntry is the Multiple Cheque Entry aggregate root.
// Rows are only mutated through the aggregate so that idx stays dense and
// asynchronous work can re-resolve a row by its ID.
type ChequeEntry struct {
	shared.BaseAggregateRoot
	Name                 string               `json:"name"`
	PaymentType          PaymentType          `json:"payment_type"`
	PartyType            PartyType            `json:"party_type"`
	Party                string               `json:"party"`
	PartyName            string               `json:"party_name"`
	Company              string               `json:"company"`
	CompanyCurrency      valueobject.Currency `json:"company_currency"`
	PostingDate          time.Time            `json:"posting_date"`
	BankAcc              string               `json:"bank_acc"`
	ChequeBank           string               `json:"cheque_bank"`
	ModeOfPayment        string               `json:"mode_of_payment"`
	ModeOfPaymentType    string               `json:"mode_of_payment_type"`
	PaidFrom             string               `json:"paid_from"`
	PaidTo               string               `json:"paid_to"`
	Account              string               `json:"account"`
	CollectionFeeAccount string               `json:"collection_fee_account"`
	PayableAccount       string               `json:"payable_account"`
	DocStatus            DocStatus            `json:"docstatus"`
	ReceiveRows          []*ChequeRow         `json:"cheque_table"`
	PayRows              []*ChequeRow         `json:"cheque_table_2"`
}

// NewChequeEntry creates a draft document
func NewChequeEntry(name string, paymentType PaymentType, company string, companyCurrency valueobject.Currency, postingDate time.Time) (*ChequeEntry, error) {
	if !paymentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_TYPE", "Payment type must be Receive or Pay")
	}
	if company == "" {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company is required")
	}

	e := &ChequeEntry{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PaymentType:       paymentType,
		PartyType:         paymentType.DefaultPartyType(),
		Company:           company,
		CompanyCurrency:   companyCurrency,
		PostingDate:       postingDate,
		DocStatus:         DocStatusDraft,
		ReceiveRows:       make([]*ChequeRow, 0),
		PayRows:           make([]*ChequeRow, 0),
	}
	if name == "" {
		name = "MCE-" + e.ID.String()[:8]
	}
	e.Name = name

	e.AddDomainEvent(NewChequeEntryCreatedEvent(e))

	return e, nil
}

// EffectivePostingDate returns the posting date, or today when unset
func (e *ChequeEntry) EffectivePostingDate() time.Time {
	if e.PostingDate.IsZero() {
		return time.Now()
	}
	return e.PostingDate
}

// IsDraft reports whether the document can still be edited
func (e *ChequeEntry) IsDraft() bool {
	return e.DocStatus == DocStatusDraft
}

// EnsureDraft returns ErrInvalidState unless the document is a draft
func (e *ChequeEntry) EnsureDraft() error {
	if !e.IsDraft() {
		return fmt.Errorf("cheque entry %s is %s: %w", e.Name, e.DocStatus, shared.ErrInvalidState)
	}
	return nil
}

// ActiveTable returns the table used by the current payment type
func (e *ChequeEntry) ActiveTable() Table {
	return e.PaymentType.ActiveTable()
}

// ActiveRows returns the rows of the current payment type
func (e *ChequeEntry) ActiveRows() []*ChequeRow {
	return e.Rows(e.ActiveTable())
}

// Rows returns the rows of a table
func (e *ChequeEntry) Rows(table Table) []*ChequeRow {
	if table == TablePay {
		return e.PayRows
	}
	return e.ReceiveRows
}

// Row finds a row by ID; nil when it no longer exists
func (e *ChequeEntry) Row(table Table, id uuid.UUID) *ChequeRow {
	for _, r := range e.Rows(table) {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// FindRow searches both tables
func (e *ChequeEntry) FindRow(id uuid.UUID) (*ChequeRow, Table, bool) {
	for _, t := range []Table{TableReceive, TablePay} {
		if r := e.Row(t, id); r != nil {
			return r, t, true
		}
	}
	return nil, "", false
}

// AddRow appends a row to a table with the parent defaults applied
func (e *ChequeEntry) AddRow(table Table) (*ChequeRow, error) {
	if err := e.EnsureDraft(); err != nil {
		return nil, err
	}
	if !table.IsValid() {
		return nil, shared.NewDomainError("INVALID_TABLE", fmt.Sprintf("Unknown cheque table %q", table))
	}

	row := NewChequeRow()
	row.PartyType = e.PartyType
	row.IssuerName = e.PartyName
	row.ModeOfPayment = e.ModeOfPayment

	rows := append(e.Rows(table), row)
	row.Idx = len(rows)
	e.setRows(table, rows)
	e.Touch()

	return row, nil
}

// RemoveRow deletes a row and renumbers idx
func (e *ChequeEntry) RemoveRow(table Table, id uuid.UUID) error {
	if err := e.EnsureDraft(); err != nil {
		return err
	}
	rows := e.Rows(table)
	kept := make([]*ChequeRow, 0, len(rows))
	found := false
	for _, r := range rows {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return fmt.Errorf("row %s in %s: %w", id, table, shared.ErrNotFound)
	}
	for i, r := range kept {
		r.Idx = i + 1
	}
	e.setRows(table, kept)
	e.Touch()
	return nil
}

// SetRows replaces a table wholesale, used when rehydrating from storage
func (e *ChequeEntry) SetRows(table Table, rows []*ChequeRow) {
	e.setRows(table, rows)
}

func (e *ChequeEntry) setRows(table Table, rows []*ChequeRow) {
	if table == TablePay {
		e.PayRows = rows
		return
	}
	e.ReceiveRows = rows
}

// AllRowsIssued reports whether every active row carries a Payment Entry
func (e *ChequeEntry) AllRowsIssued() bool {
	rows := e.ActiveRows()
	if len(rows) == 0 {
		return false
	}
	for _, r := range rows {
		if !r.IsProcessed() {
			return false
		}
	}
	return true
}

// MarkSubmitted moves the document to submitted
func (e *ChequeEntry) MarkSubmitted() error {
	if err := e.EnsureDraft(); err != nil {
		return err
	}
	e.DocStatus = DocStatusSubmitted
	e.Touch()
	e.AddDomainEvent(NewChequeEntrySubmittedEvent(e))
	return nil
}

// MarkCancelled moves a submitted document to cancelled
func (e *ChequeEntry) MarkCancelled() error {
	if e.DocStatus != DocStatusSubmitted {
		return fmt.Errorf("cannot cancel cheque entry %s in %s status: %w", e.Name, e.DocStatus, shared.ErrInvalidState)
	}
	e.DocStatus = DocStatusCancelled
	e.Touch()
	e.AddDomainEvent(NewChequeEntryCancelledEvent(e))
	return nil
}
