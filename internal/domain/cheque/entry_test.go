package cheque

import (
	"testing"
	"time"

	"github.com/erp/cheques/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChequeEntry(t *testing.T) {
	t.Run("derives party type from direction", func(t *testing.T) {
		e := newTestEntry(t, PaymentTypePay)
		assert.Equal(t, PartyTypeSupplier, e.PartyType)
		assert.Equal(t, DocStatusDraft, e.DocStatus)
		assert.Equal(t, TablePay, e.ActiveTable())

		events := e.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeChequeEntryCreated, events[0].EventType())
	})

	t.Run("generates a name", func(t *testing.T) {
		e, err := NewChequeEntry("", PaymentTypeReceive, "Test Co", "EGP", postingDate)
		require.NoError(t, err)
		assert.Contains(t, e.Name, "MCE-")
	})

	t.Run("rejects unknown payment type", func(t *testing.T) {
		_, err := NewChequeEntry("x", PaymentType("Internal Transfer"), "Test Co", "EGP", postingDate)
		assert.Error(t, err)
	})

	t.Run("requires company", func(t *testing.T) {
		_, err := NewChequeEntry("x", PaymentTypeReceive, "", "EGP", postingDate)
		assert.Error(t, err)
	})
}

func TestChequeEntry_AddRow(t *testing.T) {
	e := newTestEntry(t, PaymentTypeReceive)
	e.PartyName = "Acme Trading"
	e.ModeOfPayment = "Cheque"

	row, err := e.AddRow(TableReceive)
	require.NoError(t, err)

	assert.Equal(t, 1, row.Idx)
	assert.Equal(t, PartyTypeCustomer, row.PartyType)
	assert.Equal(t, "Acme Trading", row.IssuerName)
	assert.Equal(t, "Cheque", row.ModeOfPayment)
	assert.True(t, row.TargetExchangeRate.Equal(dec("1")))
	assert.Same(t, row, e.Row(TableReceive, row.ID))

	_, err = e.AddRow(Table("bogus"))
	assert.Error(t, err)
}

func TestChequeEntry_RemoveRow(t *testing.T) {
	e := newTestEntry(t, PaymentTypeReceive)
	first, _ := e.AddRow(TableReceive)
	second, _ := e.AddRow(TableReceive)
	third, _ := e.AddRow(TableReceive)

	require.NoError(t, e.RemoveRow(TableReceive, second.ID))

	rows := e.Rows(TableReceive)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, 1, rows[0].Idx)
	assert.Equal(t, third.ID, rows[1].ID)
	assert.Equal(t, 2, rows[1].Idx)
	assert.Nil(t, e.Row(TableReceive, second.ID))

	err := e.RemoveRow(TableReceive, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestChequeEntry_Lifecycle(t *testing.T) {
	e := newTestEntry(t, PaymentTypeReceive)
	row := receiveRow(t, e)

	assert.False(t, e.AllRowsIssued())
	row.PaymentEntry = "ACC-PAY-0001"
	assert.True(t, e.AllRowsIssued())

	require.NoError(t, e.MarkSubmitted())
	assert.Equal(t, DocStatusSubmitted, e.DocStatus)

	_, err := e.AddRow(TableReceive)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.ErrorIs(t, e.MarkSubmitted(), shared.ErrInvalidState)

	require.NoError(t, e.MarkCancelled())
	assert.Equal(t, DocStatusCancelled, e.DocStatus)
	assert.ErrorIs(t, e.MarkCancelled(), shared.ErrInvalidState)
}

func TestChequeRow_Sides(t *testing.T) {
	row := NewChequeRow()

	row.SetBankAccount(PaymentTypeReceive, "Wallet")
	row.SetPartyAccount(PaymentTypeReceive, "Debtors")
	assert.Equal(t, "Wallet", row.AccountPaidTo)
	assert.Equal(t, "Debtors", row.AccountPaidFrom)

	row.SetBankAccount(PaymentTypePay, "Bank")
	row.SetPartyAccount(PaymentTypePay, "Creditors")
	assert.Equal(t, "Bank", row.AccountPaidFrom)
	assert.Equal(t, "Creditors", row.AccountPaidTo)

	assert.Equal(t, FieldAccountPaidTo, BankAccountField(PaymentTypeReceive))
	assert.Equal(t, FieldAccountPaidFrom, BankAccountField(PaymentTypePay))
	assert.Equal(t, FieldAccountPaidFrom, PartyAccountField(PaymentTypeReceive))
}

func TestChequeRow_SameIssuance(t *testing.T) {
	base := NewChequeRow()
	base.Party = "CUST-001"
	base.AccountPaidFrom = "Debtors"
	base.AccountPaidTo = "Wallet"
	base.PaidAmount = decimal.RequireFromString("100")
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	base.ReferenceDate = &due

	tests := []struct {
		name   string
		mutate func(r *ChequeRow)
		same   bool
	}{
		{name: "clone", mutate: func(*ChequeRow) {}, same: true},
		{name: "equal amount with other scale", mutate: func(r *ChequeRow) { r.PaidAmount = decimal.RequireFromString("100.00") }, same: true},
		{name: "derived amount only", mutate: func(r *ChequeRow) { r.AmountInCompanyCurrency = decimal.RequireFromString("3000") }, same: true},
		{name: "amount", mutate: func(r *ChequeRow) { r.PaidAmount = decimal.RequireFromString("250") }},
		{name: "rate", mutate: func(r *ChequeRow) { r.TargetExchangeRate = decimal.RequireFromString("30") }},
		{name: "party", mutate: func(r *ChequeRow) { r.Party = "CUST-002" }},
		{name: "bank account", mutate: func(r *ChequeRow) { r.AccountPaidTo = "Bank" }},
		{name: "reference date cleared", mutate: func(r *ChequeRow) { r.ReferenceDate = nil }},
		{name: "reference date moved", mutate: func(r *ChequeRow) {
			later := due.AddDate(0, 0, 1)
			r.ReferenceDate = &later
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base.Clone()
			tt.mutate(other)
			assert.Equal(t, tt.same, base.SameIssuance(other))
		})
	}
}
