package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OpenChequeStatuses are the cheque states still counted against a customer.
// Their order is the column order of the report.
var OpenChequeStatuses = []string{
	cheque.StatusIncomingWallet,
	cheque.StatusUnderCollection,
	cheque.StatusRejectedByBank,
	cheque.StatusReturnedWallet,
}

// CustomerBalanceFilter narrows the report to a posting date window and,
// optionally, to a set of customers
type CustomerBalanceFilter struct {
	FromDate  time.Time
	ToDate    time.Time
	Customers []string
}

// Validate rejects an inverted date window
func (f CustomerBalanceFilter) Validate() error {
	if f.FromDate.IsZero() || f.ToDate.IsZero() {
		return fmt.Errorf("from_date and to_date are required: %w", shared.ErrInvalidInput)
	}
	if f.FromDate.After(f.ToDate) {
		return fmt.Errorf("From Date must be before To Date: %w", shared.ErrInvalidInput)
	}
	return nil
}

// Customer is a party that appears on at least one Payment Entry
type Customer struct {
	Party     string `json:"party"`
	PartyName string `json:"party_name"`
}

// ChequePayment is one submitted customer Payment Entry carrying a cheque
type ChequePayment struct {
	Party        string          `json:"party"`
	ChequeStatus string          `json:"cheque_status"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
}

// CustomerBalanceSource reads the host ledger for the report
type CustomerBalanceSource interface {
	// Customers lists parties of customer Payment Entries, one per party
	Customers(ctx context.Context, customers []string) ([]Customer, error)
	// ChequePayments lists submitted customer Payment Entries in an open
	// cheque status posted inside the window
	ChequePayments(ctx context.Context, f CustomerBalanceFilter) ([]ChequePayment, error)
	// PartyBalance is the customer's ledger balance over the window
	PartyBalance(ctx context.Context, party string, from, to time.Time) (decimal.Decimal, error)
}

// Column describes one report column
type Column struct {
	Label     string `json:"label"`
	FieldName string `json:"fieldname"`
	FieldType string `json:"fieldtype"`
	Options   string `json:"options,omitempty"`
	Width     int    `json:"width"`
}

// CustomerBalanceRow is one customer line. Cheques maps the column field
// name of each open status to its total.
type CustomerBalanceRow struct {
	Party           string                     `json:"party"`
	PartyName       string                     `json:"party_name"`
	CustomerBalance decimal.Decimal            `json:"customer_balance"`
	Cheques         map[string]decimal.Decimal `json:"cheques"`
	NoOfCheques     int                        `json:"no_of_cheques"`
	Balance         decimal.Decimal            `json:"balance"`
}

// Scrub turns a label into a field name the way the host does:
// lower case with spaces and dashes as underscores
func Scrub(label string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(label)))
}

// CustomerBalanceColumns returns the report columns in display order
func CustomerBalanceColumns() []Column {
	cols := []Column{
		{Label: "Customer", FieldName: "party", FieldType: "Link", Options: "Customer", Width: 160},
		{Label: "Customer Name", FieldName: "party_name", FieldType: "Data", Width: 200},
		{Label: "Customer Balance", FieldName: "customer_balance", FieldType: "Currency", Width: 160},
	}
	for _, status := range OpenChequeStatuses {
		cols = append(cols, Column{Label: status, FieldName: Scrub(status), FieldType: "Currency", Width: 160})
	}
	return append(cols,
		Column{Label: "Number of Cheques", FieldName: "no_of_cheques", FieldType: "Int", Width: 160},
		Column{Label: "Balance", FieldName: "balance", FieldType: "Currency", Width: 160},
	)
}

// BuildCustomerBalance assembles one row per customer in the given order.
// Payments in a status outside OpenChequeStatuses are ignored. A customer
// missing from balances counts as zero.
func BuildCustomerBalance(customers []Customer, balances map[string]decimal.Decimal, payments []ChequePayment) []CustomerBalanceRow {
	open := make(map[string]string, len(OpenChequeStatuses))
	for _, status := range OpenChequeStatuses {
		open[status] = Scrub(status)
	}

	type totals struct {
		byStatus map[string]decimal.Decimal
		count    int
	}
	perParty := make(map[string]*totals)
	for _, p := range payments {
		field, ok := open[p.ChequeStatus]
		if !ok {
			continue
		}
		t := perParty[p.Party]
		if t == nil {
			t = &totals{byStatus: make(map[string]decimal.Decimal)}
			perParty[p.Party] = t
		}
		t.byStatus[field] = t.byStatus[field].Add(p.PaidAmount)
		t.count++
	}

	rows := make([]CustomerBalanceRow, 0, len(customers))
	for _, c := range customers {
		row := CustomerBalanceRow{
			Party:           c.Party,
			PartyName:       c.PartyName,
			CustomerBalance: balances[c.Party],
			Cheques:         make(map[string]decimal.Decimal, len(OpenChequeStatuses)),
		}
		total := decimal.Zero
		t := perParty[c.Party]
		for _, field := range open {
			amount := decimal.Zero
			if t != nil {
				amount = t.byStatus[field]
			}
			row.Cheques[field] = amount
			total = total.Add(amount)
		}
		if t != nil {
			row.NoOfCheques = t.count
		}
		row.Balance = total.Add(row.CustomerBalance)
		rows = append(rows, row)
	}
	return rows
}
