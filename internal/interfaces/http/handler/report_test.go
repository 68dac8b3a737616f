package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	reportapp "github.com/erp/cheques/internal/application/report"
	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/report"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReportHandler_FormatGeneralLedger(t *testing.T) {
	directory := new(MockDirectory)
	directory.On("CompanyDefaults", mock.Anything, "Cairo Co").Return(cairoDefaults(), nil)
	directory.On("CompanyDefaults", mock.Anything, "Ghost Co").Return(nil, shared.ErrNotFound)
	directory.On("CompanyDefaults", mock.Anything, "Down Co").Return(nil, errors.New("connection refused"))

	engine := gin.New()
	engine.POST("/reports/general-ledger/format", NewReportHandler(reportapp.NewGLService(directory, nil), nil).FormatGeneralLedger)

	columns := []map[string]any{
		{"fieldname": "debit", "fieldtype": "Currency"},
		{"fieldname": "debit_in_account_currency", "fieldtype": "Currency"},
		{"fieldname": "account", "fieldtype": "Link"},
	}
	rows := []map[string]any{
		{"account_currency": "USD", "values": map[string]any{"debit": "3000", "debit_in_account_currency": "100"}},
	}

	t.Run("company currency from the company", func(t *testing.T) {
		w := doJSON(engine, http.MethodPost, "/reports/general-ledger/format", map[string]any{
			"company": "Cairo Co", "columns": columns, "rows": rows,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got reportapp.FormatGLResponse
		decodeData(t, w, &got)
		assert.Equal(t, "EGP", got.CompanyCurrency)
		assert.Equal(t, []string{"debit", "debit_in_account_currency"}, got.CurrencyColumns)
		require.Len(t, got.Rows, 1)
		assert.Contains(t, got.Rows[0]["debit"], "EGP")
		assert.Contains(t, got.Rows[0]["debit_in_account_currency"], "USD")
		assert.NotContains(t, got.Rows[0], "account")
	})

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{name: "columns are required", body: map[string]any{"company": "Cairo Co"}, wantStatus: http.StatusBadRequest},
		{name: "no company or currency", body: map[string]any{"columns": columns}, wantStatus: http.StatusBadRequest},
		{name: "unknown company", body: map[string]any{"company": "Ghost Co", "columns": columns}, wantStatus: http.StatusNotFound},
		{name: "host unavailable", body: map[string]any{"company": "Down Co", "columns": columns}, wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(engine, http.MethodPost, "/reports/general-ledger/format", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

type stubBalanceSource struct {
	customers []report.Customer
	payments  []report.ChequePayment
	err       error
}

func (s *stubBalanceSource) Customers(context.Context, []string) ([]report.Customer, error) {
	return s.customers, s.err
}

func (s *stubBalanceSource) ChequePayments(context.Context, report.CustomerBalanceFilter) ([]report.ChequePayment, error) {
	return s.payments, nil
}

func (s *stubBalanceSource) PartyBalance(context.Context, string, time.Time, time.Time) (decimal.Decimal, error) {
	return decimal.RequireFromString("40"), nil
}

func TestReportHandler_CustomerBalanceByChequeStatus(t *testing.T) {
	const path = "/reports/customer-balance-by-cheque-status"
	src := &stubBalanceSource{
		customers: []report.Customer{{Party: "CUST-001", PartyName: "Nile Traders"}},
		payments: []report.ChequePayment{
			{Party: "CUST-001", ChequeStatus: cheque.StatusIncomingWallet, PaidAmount: decimal.RequireFromString("60")},
		},
	}
	engine := gin.New()
	engine.GET(path, NewReportHandler(nil, reportapp.NewCustomerBalanceService(src, nil)).CustomerBalanceByChequeStatus)

	t.Run("report rows", func(t *testing.T) {
		w := doJSON(engine, http.MethodGet, path+"?from_date=2024-03-01&to_date=2024-03-31&customer=CUST-001", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got reportapp.CustomerBalanceResponse
		decodeData(t, w, &got)
		require.Len(t, got.Rows, 1)
		assert.Equal(t, "Nile Traders", got.Rows[0].PartyName)
		assert.Equal(t, 1, got.Rows[0].NoOfCheques)
		assert.True(t, got.Rows[0].Balance.Equal(decimal.RequireFromString("100")))
		assert.Equal(t, "balance", got.Columns[len(got.Columns)-1].FieldName)
	})

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{name: "dates are required", query: "?from_date=2024-03-01", wantStatus: http.StatusBadRequest},
		{name: "inverted window", query: "?from_date=2024-04-01&to_date=2024-03-01", wantStatus: http.StatusBadRequest},
		{name: "malformed date", query: "?from_date=March&to_date=2024-03-01", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(engine, http.MethodGet, path+tt.query, nil)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	t.Run("host unavailable", func(t *testing.T) {
		down := gin.New()
		down.GET(path, NewReportHandler(nil, reportapp.NewCustomerBalanceService(&stubBalanceSource{err: shared.ErrRemoteCall}, nil)).CustomerBalanceByChequeStatus)
		w := doJSON(down, http.MethodGet, path+"?from_date=2024-03-01&to_date=2024-03-31", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
	})
}
