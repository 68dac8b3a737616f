package cheque

import (
	"fmt"

	"github.com/erp/cheques/internal/domain/shared"
)

// ValidationError describes the first rule a document broke before submission
type ValidationError struct {
	RowIdx  int    `json:"row_idx,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match shared.ErrValidation
func (e *ValidationError) Unwrap() error {
	return shared.ErrValidation
}

// ValidateForSubmit checks the active rows and returns the first violation
func ValidateForSubmit(e *ChequeEntry) error {
	rows := e.ActiveRows()
	if len(rows) == 0 {
		return &ValidationError{Message: "Please add cheque entries before submitting."}
	}

	for _, row := range rows {
		if err := validateRow(row); err != nil {
			return err
		}
	}
	return nil
}

func validateRow(row *ChequeRow) error {
	required := []struct {
		field string
		label string
		empty bool
	}{
		{FieldPartyType, "Party Type", row.PartyType == ""},
		{FieldParty, "Party", row.Party == ""},
		{FieldAccountPaidFrom, "Account Paid From", row.AccountPaidFrom == ""},
		{FieldAccountCurrencyFrom, "Account Currency (From)", row.AccountCurrencyFrom.IsZero()},
		{FieldAccountPaidTo, "Account Paid To", row.AccountPaidTo == ""},
		{FieldAccountCurrency, "Account Currency (To)", row.AccountCurrency.IsZero()},
	}
	for _, r := range required {
		if r.empty {
			return &ValidationError{
				RowIdx:  row.Idx,
				Field:   r.field,
				Message: fmt.Sprintf("%s is required in row %d", r.label, row.Idx),
			}
		}
	}

	if !row.PaidAmount.IsPositive() {
		return &ValidationError{
			RowIdx:  row.Idx,
			Field:   FieldPaidAmount,
			Message: fmt.Sprintf("Paid Amount is required and must be greater than zero in row %d", row.Idx),
		}
	}

	if row.AccountCurrency != row.AccountCurrencyFrom && !row.TargetExchangeRate.IsPositive() {
		return &ValidationError{
			RowIdx: row.Idx,
			Field:  FieldTargetExchangeRate,
			Message: fmt.Sprintf(
				"Exchange Rate is required and must be greater than zero in row %d (currencies differ: %s ≠ %s). Please create a Currency Exchange record.",
				row.Idx, row.AccountCurrency, row.AccountCurrencyFrom,
			),
		}
	}
	return nil
}
