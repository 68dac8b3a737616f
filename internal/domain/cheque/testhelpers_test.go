package cheque

import (
	"testing"
	"time"

	"github.com/erp/cheques/internal/domain/currency"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var postingDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEntry(t *testing.T, pt PaymentType) *ChequeEntry {
	t.Helper()
	e, err := NewChequeEntry("MCE-0001", pt, "Test Co", "EGP", postingDate)
	require.NoError(t, err)
	return e
}

// receiveRow is a 100 USD cheque received against an EGP receivable
func receiveRow(t *testing.T, e *ChequeEntry) *ChequeRow {
	t.Helper()
	row, err := e.AddRow(TableReceive)
	require.NoError(t, err)
	row.Party = "CUST-001"
	row.AccountPaidFrom = "Debtors - TC"
	row.AccountCurrencyFrom = "EGP"
	row.AccountPaidTo = "Cheque Wallet USD - TC"
	row.AccountCurrency = "USD"
	row.PaidAmount = dec("100")
	return row
}

// payRow is a 100 USD cheque paid against an EGP payable
func payRow(t *testing.T, e *ChequeEntry) *ChequeRow {
	t.Helper()
	row, err := e.AddRow(TablePay)
	require.NoError(t, err)
	row.Party = "SUPP-001"
	row.AccountPaidFrom = "Bank USD - TC"
	row.AccountCurrencyFrom = "USD"
	row.AccountPaidTo = "Creditors - TC"
	row.AccountCurrency = "EGP"
	row.PaidAmount = dec("100")
	return row
}

func usdEgpLookup(t *testing.T) *currency.ExchangeRateLookup {
	t.Helper()
	r, err := currency.NewExchangeRate("USD", "EGP", dec("30"), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return currency.NewExchangeRateLookup(currency.NewMemoryRateStore(r))
}
