package cheque

import (
	"time"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/google/uuid"
)

// CreateEntryRequest creates a draft Multiple Cheque Entry
type CreateEntryRequest struct {
	Name          string             `json:"name"`
	PaymentType   cheque.PaymentType `json:"payment_type" binding:"required,oneof=Receive Pay"`
	Company       string             `json:"company" binding:"required,min=1,max=140"`
	PostingDate   string             `json:"posting_date"`
	ModeOfPayment string             `json:"mode_of_payment"`
	ChequeBank    string             `json:"cheque_bank"`
	BankAcc       string             `json:"bank_acc"`
}

// FieldChange is one user edit. Table and RowID are empty for parent fields.
type FieldChange struct {
	EntryID uuid.UUID
	Table   cheque.Table
	RowID   uuid.UUID
	Field   string
	Value   string
}

// IsRowChange reports whether the edit targets a child row
func (c FieldChange) IsRowChange() bool {
	return c.Table != ""
}

// EntryResponse is a point-in-time copy of a document
type EntryResponse struct {
	ID                   uuid.UUID           `json:"id"`
	Name                 string              `json:"name"`
	PaymentType          cheque.PaymentType  `json:"payment_type"`
	PartyType            cheque.PartyType    `json:"party_type"`
	Party                string              `json:"party"`
	PartyName            string              `json:"party_name"`
	Company              string              `json:"company"`
	CompanyCurrency      string              `json:"company_currency"`
	PostingDate          string              `json:"posting_date"`
	BankAcc              string              `json:"bank_acc"`
	ChequeBank           string              `json:"cheque_bank"`
	ModeOfPayment        string              `json:"mode_of_payment"`
	ModeOfPaymentType    string              `json:"mode_of_payment_type"`
	PaidFrom             string              `json:"paid_from"`
	PaidTo               string              `json:"paid_to"`
	Account              string              `json:"account"`
	CollectionFeeAccount string              `json:"collection_fee_account"`
	PayableAccount       string              `json:"payable_account"`
	DocStatus            cheque.DocStatus    `json:"docstatus"`
	Status               string              `json:"status"`
	ReceiveRows          []*cheque.ChequeRow `json:"cheque_table"`
	PayRows              []*cheque.ChequeRow `json:"cheque_table_2"`
	Version              int                 `json:"version"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// ToEntryResponse copies an entry so it can be serialized outside the session lock
func ToEntryResponse(e *cheque.ChequeEntry) *EntryResponse {
	resp := &EntryResponse{
		ID:                   e.ID,
		Name:                 e.Name,
		PaymentType:          e.PaymentType,
		PartyType:            e.PartyType,
		Party:                e.Party,
		PartyName:            e.PartyName,
		Company:              e.Company,
		CompanyCurrency:      e.CompanyCurrency.String(),
		BankAcc:              e.BankAcc,
		ChequeBank:           e.ChequeBank,
		ModeOfPayment:        e.ModeOfPayment,
		ModeOfPaymentType:    e.ModeOfPaymentType,
		PaidFrom:             e.PaidFrom,
		PaidTo:               e.PaidTo,
		Account:              e.Account,
		CollectionFeeAccount: e.CollectionFeeAccount,
		PayableAccount:       e.PayableAccount,
		DocStatus:            e.DocStatus,
		Status:               e.DocStatus.String(),
		ReceiveRows:          cloneRows(e.ReceiveRows),
		PayRows:              cloneRows(e.PayRows),
		Version:              e.Version,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
	if !e.PostingDate.IsZero() {
		resp.PostingDate = e.PostingDate.Format("2006-01-02")
	}
	return resp
}

func cloneRows(rows []*cheque.ChequeRow) []*cheque.ChequeRow {
	out := make([]*cheque.ChequeRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Clone())
	}
	return out
}

// MutationResult is returned by every document edit
type MutationResult struct {
	Entry   *EntryResponse  `json:"entry"`
	Notices []cheque.Notice `json:"notices"`
}

// OutcomeStatus classifies what happened to a row during issuance
type OutcomeStatus string

const (
	OutcomeIssued        OutcomeStatus = "issued"
	OutcomeSkipped       OutcomeStatus = "skipped"
	OutcomeZeroRate      OutcomeStatus = "zero_rate"
	OutcomeRemoteFailure OutcomeStatus = "remote_failure"
)

// RowOutcome is the issuance result of one row
type RowOutcome struct {
	RowID        uuid.UUID     `json:"row_id"`
	RowIdx       int           `json:"row_idx"`
	Status       OutcomeStatus `json:"status"`
	PaymentEntry string        `json:"payment_entry,omitempty"`
	Message      string        `json:"message,omitempty"`
	Err          error         `json:"-"`
}

// SubmitResult summarizes a submission
type SubmitResult struct {
	Entry          *EntryResponse `json:"entry"`
	Submitted      bool           `json:"submitted"`
	PaymentEntries []string       `json:"payment_entries"`
	Outcomes       []RowOutcome   `json:"outcomes"`
}

// CancelResult lists the Payment Entries cancelled with the document
type CancelResult struct {
	Entry     *EntryResponse `json:"entry"`
	Cancelled []string       `json:"cancelled_payment_entries"`
}
