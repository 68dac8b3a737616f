package hostrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/domain/report"
	"github.com/shopspring/decimal"
)

const balanceOnMethod = "erpnext.accounts.utils.get_balance_on"

// Ledger reads customer Payment Entries and party balances for reports
type Ledger struct {
	client *Client
}

// NewLedger creates a Ledger over client
func NewLedger(client *Client) *Ledger {
	return &Ledger{client: client}
}

// Customers returns one line per customer party found on any Payment Entry
func (l *Ledger) Customers(ctx context.Context, customers []string) ([]report.Customer, error) {
	filters := map[string]any{"party_type": string(cheque.PartyTypeCustomer)}
	if len(customers) > 0 {
		filters["party"] = []any{"in", customers}
	}
	var rows []report.Customer
	err := l.client.GetList(ctx, ListQuery{
		Doctype: paymentEntryDoctype,
		Filters: filters,
		Fields:  []string{"party", "party_name"},
		GroupBy: "party",
		OrderBy: "party asc",
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return rows, nil
}

// ChequePayments returns submitted customer Payment Entries that are still
// in an open cheque status
func (l *Ledger) ChequePayments(ctx context.Context, f report.CustomerBalanceFilter) ([]report.ChequePayment, error) {
	filters := map[string]any{
		"docstatus":     int(cheque.DocStatusSubmitted),
		"party_type":    string(cheque.PartyTypeCustomer),
		"cheque_status": []any{"in", report.OpenChequeStatuses},
		"posting_date": []any{"between", []string{
			f.FromDate.Format(currency.DateLayout),
			f.ToDate.Format(currency.DateLayout),
		}},
	}
	if len(f.Customers) > 0 {
		filters["party"] = []any{"in", f.Customers}
	}
	var rows []report.ChequePayment
	err := l.client.GetList(ctx, ListQuery{
		Doctype: paymentEntryDoctype,
		Filters: filters,
		Fields:  []string{"party", "cheque_status", "paid_amount"},
		OrderBy: "posting_date asc",
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("list cheque payments: %w", err)
	}
	return rows, nil
}

// PartyBalance returns the customer's ledger balance between from and to
func (l *Ledger) PartyBalance(ctx context.Context, party string, from, to time.Time) (decimal.Decimal, error) {
	var balance decimal.NullDecimal
	err := l.client.Call(ctx, balanceOnMethod, map[string]any{
		"party_type": string(cheque.PartyTypeCustomer),
		"party":      party,
		"date":       to.Format(currency.DateLayout),
		"start_date": from.Format(currency.DateLayout),
	}, &balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of %s: %w", party, err)
	}
	if !balance.Valid {
		return decimal.Zero, nil
	}
	return balance.Decimal, nil
}

var _ report.CustomerBalanceSource = (*Ledger)(nil)
