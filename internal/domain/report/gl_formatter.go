package report

import (
	"sort"

	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Transaction-currency columns of the General Ledger
var transactionCurrencyColumns = map[string]struct{}{
	"debit_in_account_currency":   {},
	"credit_in_account_currency":  {},
	"balance_in_account_currency": {},
}

// GLColumn describes one General Ledger report column
type GLColumn struct {
	FieldName string `json:"fieldname"`
	FieldType string `json:"fieldtype"`
	Options   string `json:"options"`
}

// IsCurrency reports whether the column holds money
func (c GLColumn) IsCurrency() bool {
	return c.FieldType == "Currency"
}

// GLRow is one ledger line
type GLRow struct {
	AccountCurrency string                     `json:"account_currency"`
	Values          map[string]decimal.Decimal `json:"values"`
}

// GLCurrencyFormatter renders General Ledger money columns. Transaction
// currency columns always use the row's account currency, not the column's
// fixed option.
type GLCurrencyFormatter struct {
	companyCurrency valueobject.Currency
}

// NewGLCurrencyFormatter creates a formatter for a company
func NewGLCurrencyFormatter(companyCurrency valueobject.Currency) *GLCurrencyFormatter {
	return &GLCurrencyFormatter{companyCurrency: companyCurrency}
}

// CurrencyFor picks the currency a cell is rendered in
func (f *GLCurrencyFormatter) CurrencyFor(col GLColumn, row GLRow) valueobject.Currency {
	if _, ok := transactionCurrencyColumns[col.FieldName]; ok && row.AccountCurrency != "" {
		return valueobject.Currency(row.AccountCurrency)
	}
	if col.Options != "" {
		return valueobject.Currency(col.Options)
	}
	return f.companyCurrency
}

// FormatCell renders one money cell
func (f *GLCurrencyFormatter) FormatCell(col GLColumn, row GLRow, value decimal.Decimal) string {
	cur := f.CurrencyFor(col, row)
	if cur.IsZero() {
		return value.StringFixed(2)
	}
	m, err := valueobject.NewMoney(value, cur)
	if err != nil {
		return value.StringFixed(2)
	}
	return m.Format()
}

// FormatRows renders every currency column of every row.
// Non-currency columns and missing values are left out.
func (f *GLCurrencyFormatter) FormatRows(cols []GLColumn, rows []GLRow) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		cells := make(map[string]string)
		for _, col := range cols {
			if !col.IsCurrency() {
				continue
			}
			v, ok := row.Values[col.FieldName]
			if !ok {
				continue
			}
			cells[col.FieldName] = f.FormatCell(col, row, v)
		}
		out = append(out, cells)
	}
	return out
}

// CurrencyColumns lists the currency columns by name, for stable output ordering
func CurrencyColumns(cols []GLColumn) []string {
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		if c.IsCurrency() {
			names = append(names, c.FieldName)
		}
	}
	sort.Strings(names)
	return names
}
