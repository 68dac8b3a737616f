package cheque

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPaymentEntryRequest(t *testing.T) {
	t.Run("receive maps cheque amount to received", func(t *testing.T) {
		e := newTestEntry(t, PaymentTypeReceive)
		e.ModeOfPayment = "Cheque"
		e.ModeOfPaymentType = "Cheque"
		e.ChequeBank = "CIB"
		e.BankAcc = "Wallet USD - TC"
		row := receiveRow(t, e)
		row.TargetExchangeRate = dec("30")
		row.Bank = "HSBC"
		row.ReferenceNo = "000123"
		ref := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
		row.ReferenceDate = &ref

		req, err := BuildPaymentEntryRequest(e, row, IssueCurrencies{PaidFrom: "EGP", PaidTo: "USD"})
		require.NoError(t, err)

		assert.Equal(t, "Payment Entry", req.Doctype)
		assert.Equal(t, Doctype, req.ReferenceDoctype)
		assert.Equal(t, "MCE-0001", req.ReferenceLink)
		assert.Equal(t, "2024-03-15", req.PostingDate)
		assert.Equal(t, "2024-04-01", req.ReferenceDate)
		assert.True(t, req.SourceExchangeRate.Equal(decimal.NewFromInt(1)))
		assert.True(t, req.TargetExchangeRate.Equal(dec("30")))
		assert.True(t, req.ReceivedAmount.Equal(dec("100")))
		assert.True(t, req.PaidAmount.Equal(dec("3000")))
		assert.Equal(t, row.ID.String(), req.ChequeTableNo)
		assert.Empty(t, req.ChequeTableNo2)
		assert.Equal(t, "HSBC", req.DrawnBank)
		assert.Equal(t, "Cheque", req.ModeOfPayment)
		assert.Equal(t, "CIB", req.ChequeBank)
	})

	t.Run("pay maps cheque amount to paid", func(t *testing.T) {
		e := newTestEntry(t, PaymentTypePay)
		row := payRow(t, e)
		row.TargetExchangeRate = dec("30")
		row.Bank = "HSBC"

		req, err := BuildPaymentEntryRequest(e, row, IssueCurrencies{PaidFrom: "USD", PaidTo: "EGP"})
		require.NoError(t, err)

		assert.True(t, req.SourceExchangeRate.Equal(dec("30")))
		assert.True(t, req.TargetExchangeRate.Equal(decimal.NewFromInt(1)))
		assert.True(t, req.PaidAmount.Equal(dec("100")))
		assert.True(t, req.ReceivedAmount.Equal(dec("3000")))
		assert.Equal(t, row.ID.String(), req.ChequeTableNo2)
		assert.Empty(t, req.ChequeTableNo)
		assert.Empty(t, req.DrawnBank)
	})

	t.Run("same currency normalizes to parity", func(t *testing.T) {
		e := newTestEntry(t, PaymentTypeReceive)
		row := receiveRow(t, e)
		row.TargetExchangeRate = dec("30")

		req, err := BuildPaymentEntryRequest(e, row, IssueCurrencies{PaidFrom: "EGP", PaidTo: "EGP"})
		require.NoError(t, err)
		assert.True(t, req.SourceExchangeRate.Equal(decimal.NewFromInt(1)))
		assert.True(t, req.TargetExchangeRate.Equal(decimal.NewFromInt(1)))
		assert.True(t, req.PaidAmount.Equal(req.ReceivedAmount))
	})

	t.Run("row mode of payment wins over parent", func(t *testing.T) {
		e := newTestEntry(t, PaymentTypeReceive)
		e.ModeOfPayment = "Cheque"
		row := receiveRow(t, e)
		row.ModeOfPayment = "Post-dated Cheque"
		row.TargetExchangeRate = dec("30")

		req, err := BuildPaymentEntryRequest(e, row, IssueCurrencies{PaidFrom: "EGP", PaidTo: "USD"})
		require.NoError(t, err)
		assert.Equal(t, "Post-dated Cheque", req.ModeOfPayment)
	})

	t.Run("zero rate is rejected", func(t *testing.T) {
		e := newTestEntry(t, PaymentTypeReceive)
		row := receiveRow(t, e)
		row.TargetExchangeRate = decimal.Zero

		_, err := BuildPaymentEntryRequest(e, row, IssueCurrencies{PaidFrom: "EGP", PaidTo: "USD"})
		var zr *ZeroRateError
		require.True(t, errors.As(err, &zr))
		assert.Equal(t, valueobject.Currency("USD"), zr.Cheque)
		assert.Equal(t, valueobject.Currency("EGP"), zr.Party)
		assert.Equal(t, "Row 1: Cannot create Payment Entry - Exchange Rate is missing or zero for USD → EGP.", zr.Error())
	})
}

func TestCheckZeroRate_Pay(t *testing.T) {
	e := newTestEntry(t, PaymentTypePay)
	row := payRow(t, e)
	row.TargetExchangeRate = decimal.Zero

	err := CheckZeroRate(row, PaymentTypePay, IssueCurrencies{PaidFrom: "USD", PaidTo: "EGP"})
	var zr *ZeroRateError
	require.True(t, errors.As(err, &zr))
	assert.Equal(t, valueobject.Currency("USD"), zr.Cheque)
	assert.Equal(t, valueobject.Currency("EGP"), zr.Party)

	assert.NoError(t, CheckZeroRate(row, PaymentTypePay, IssueCurrencies{PaidFrom: "EGP", PaidTo: "EGP"}))
}
