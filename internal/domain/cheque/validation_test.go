package cheque

import (
	"errors"
	"testing"

	"github.com/erp/cheques/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateForSubmit(t *testing.T) {
	t.Run("empty table", func(t *testing.T) {
		e := newTestEntry(t, PaymentTypeReceive)
		err := ValidateForSubmit(e)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, "Please add cheque entries before submitting.", err.Error())
	})

	t.Run("only the active table counts", func(t *testing.T) {
		e := newTestEntry(t, PaymentTypePay)
		receiveRow(t, e)
		assert.Error(t, ValidateForSubmit(e))
	})

	tests := []struct {
		name    string
		mutate  func(r *ChequeRow)
		field   string
		message string
	}{
		{"party type", func(r *ChequeRow) { r.PartyType = "" }, FieldPartyType, "Party Type is required in row 1"},
		{"party", func(r *ChequeRow) { r.Party = "" }, FieldParty, "Party is required in row 1"},
		{"paid from", func(r *ChequeRow) { r.AccountPaidFrom = "" }, FieldAccountPaidFrom, "Account Paid From is required in row 1"},
		{"currency from", func(r *ChequeRow) { r.AccountCurrencyFrom = "" }, FieldAccountCurrencyFrom, "Account Currency (From) is required in row 1"},
		{"paid to", func(r *ChequeRow) { r.AccountPaidTo = "" }, FieldAccountPaidTo, "Account Paid To is required in row 1"},
		{"currency to", func(r *ChequeRow) { r.AccountCurrency = "" }, FieldAccountCurrency, "Account Currency (To) is required in row 1"},
		{"zero amount", func(r *ChequeRow) { r.PaidAmount = decimal.Zero }, FieldPaidAmount, "Paid Amount is required and must be greater than zero in row 1"},
		{"negative amount", func(r *ChequeRow) { r.PaidAmount = dec("-5") }, FieldPaidAmount, "Paid Amount is required and must be greater than zero in row 1"},
		{"zero rate", func(r *ChequeRow) { r.TargetExchangeRate = decimal.Zero }, FieldTargetExchangeRate,
			"Exchange Rate is required and must be greater than zero in row 1 (currencies differ: USD ≠ EGP). Please create a Currency Exchange record."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEntry(t, PaymentTypeReceive)
			row := receiveRow(t, e)
			row.TargetExchangeRate = dec("30")
			tt.mutate(row)

			err := ValidateForSubmit(e)
			require.Error(t, err)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, 1, ve.RowIdx)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.message, ve.Message)
		})
	}

	t.Run("zero rate is fine for same currency", func(t *testing.T) {
		e := newTestEntry(t, PaymentTypeReceive)
		row := receiveRow(t, e)
		row.AccountCurrency = "EGP"
		row.TargetExchangeRate = decimal.Zero
		assert.NoError(t, ValidateForSubmit(e))
	})

	t.Run("first violation wins", func(t *testing.T) {
		e := newTestEntry(t, PaymentTypeReceive)
		ok := receiveRow(t, e)
		ok.TargetExchangeRate = dec("30")
		bad := receiveRow(t, e)
		bad.Party = ""
		bad.PaidAmount = decimal.Zero

		var ve *ValidationError
		require.True(t, errors.As(ValidateForSubmit(e), &ve))
		assert.Equal(t, 2, ve.RowIdx)
		assert.Equal(t, FieldParty, ve.Field)
	})
}
