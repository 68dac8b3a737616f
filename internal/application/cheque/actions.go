package cheque

import (
	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ChequeActionsRequest describes a Payment Entry as the form sees it
type ChequeActionsRequest struct {
	cheque.PaymentEntryState
	PaidFromAccountCurrency string          `json:"paid_from_account_currency"`
	PaidToAccountCurrency   string          `json:"paid_to_account_currency"`
	TargetExchangeRate      decimal.Decimal `json:"target_exchange_rate"`
}

// ChequeActionsResponse carries the allowed actions and the rate hint.
// Restricted is false when the action policy does not apply at all.
type ChequeActionsResponse struct {
	Restricted       bool     `json:"restricted"`
	Actions          []string `json:"actions"`
	ExchangeRateHint string   `json:"exchange_rate_hint,omitempty"`
}

// ChequeActions evaluates the cheque action policy for a Payment Entry
func ChequeActions(req ChequeActionsRequest) *ChequeActionsResponse {
	actions := cheque.AvailableChequeActions(req.PaymentEntryState)
	resp := &ChequeActionsResponse{
		Restricted: actions != nil,
		Actions:    actions,
	}
	if resp.Actions == nil {
		resp.Actions = []string{}
	}
	resp.ExchangeRateHint = cheque.ExchangeRateHint(
		valueobject.Currency(req.PaidFromAccountCurrency),
		valueobject.Currency(req.PaidToAccountCurrency),
		req.TargetExchangeRate,
	)
	return resp
}
