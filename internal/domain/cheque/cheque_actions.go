package cheque

import (
	"fmt"

	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Cheque statuses tracked on submitted Payment Entries
const (
	StatusIncomingWallet   = "حافظة شيكات واردة"
	StatusUnderCollection  = "تحت التحصيل"
	StatusRejectedByBank   = "مرفوض بالبنك"
	StatusReturnedWallet   = "حافظة شيكات مرجعة"
	StatusEndorsed         = "مظهر"
	StatusCollectedInstant = "محصل فوري"
	StatusReturned         = "مردود"
	StatusCollected        = "محصل"
	StatusPayableWallet    = "حافظة شيكات برسم الدفع"
	StatusPaid             = "مدفوع"
	StatusWithdrawn        = "مسحوب"
)

// Cheque actions offered on submitted Payment Entries
const (
	ActionReturnCheque           = "رد شيك"
	ActionMoveToOtherWallet      = "تحويل إلى حافظة شيكات أخرى"
	ActionEndorse                = "تظهير شيك"
	ActionDepositForCollection   = "إيداع شيك تحت التحصيل"
	ActionCollectInstantly       = "تحصيل فوري للشيك"
	ActionWithdrawFromCollection = "سحب شيك من التحصيل"
	ActionRejectUnderCollection  = "رفض شيك تحت التحصيل"
	ActionCashUnderCollection    = "صرف شيك تحت التحصيل"
	ActionBackToIncomingWallet   = "إرجاع لحافظة شيكات واردة"
	ActionLiquidate              = "تسييل الشيك"
	ActionCashPayable            = "صرف الشيك"
	ActionWithdrawPayable        = "سحب الشيك"
)

// PaymentEntryState is the subset of a Payment Entry the action policy reads
type PaymentEntryState struct {
	DocStatus         DocStatus       `json:"docstatus"`
	ModeOfPaymentType string          `json:"mode_of_payment_type"`
	PaymentType       string          `json:"payment_type"`
	ChequeType        string          `json:"cheque_type"`
	ChequeStatus      string          `json:"cheque_status"`
	ChequeStatusPay   string          `json:"cheque_status_pay"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	EncashedAmount    decimal.Decimal `json:"encashed_amount"`
}

type actionRule struct {
	match   func(s PaymentEntryState) bool
	actions []string
}

func receivingCheque(s PaymentEntryState) bool {
	return s.PaymentType == string(PaymentTypeReceive)
}

// Rules are evaluated in order and the last match wins.
var actionRules = []actionRule{
	{
		match: func(s PaymentEntryState) bool {
			return receivingCheque(s) && s.ChequeType == "Opened" && s.ChequeStatus == StatusIncomingWallet
		},
		actions: []string{ActionReturnCheque, ActionMoveToOtherWallet, ActionEndorse, ActionDepositForCollection, ActionCollectInstantly},
	},
	{
		match: func(s PaymentEntryState) bool {
			return receivingCheque(s) && s.ChequeType != "Opened" && s.ChequeStatus == StatusIncomingWallet
		},
		actions: []string{ActionMoveToOtherWallet, ActionDepositForCollection, ActionCollectInstantly},
	},
	{
		match: func(s PaymentEntryState) bool {
			return receivingCheque(s) && s.ChequeStatus == StatusUnderCollection
		},
		actions: []string{ActionWithdrawFromCollection, ActionRejectUnderCollection, ActionCashUnderCollection},
	},
	{
		match: func(s PaymentEntryState) bool {
			return receivingCheque(s) && s.ChequeStatus == StatusRejectedByBank
		},
		actions: []string{ActionDepositForCollection, ActionReturnCheque, ActionBackToIncomingWallet, ActionEndorse},
	},
	{
		match: func(s PaymentEntryState) bool {
			return receivingCheque(s) && !s.PaidAmount.Equal(s.EncashedAmount) && s.ChequeStatus == StatusRejectedByBank
		},
		actions: []string{ActionReturnCheque, ActionBackToIncomingWallet, ActionDepositForCollection, ActionLiquidate},
	},
	{
		match: func(s PaymentEntryState) bool {
			return receivingCheque(s) && s.ChequeStatus == StatusReturnedWallet
		},
		actions: []string{ActionDepositForCollection, ActionReturnCheque, ActionLiquidate},
	},
	{
		match: func(s PaymentEntryState) bool {
			return receivingCheque(s) && s.PaidAmount.GreaterThan(s.EncashedAmount) && s.ChequeStatus == StatusReturnedWallet
		},
		actions: []string{ActionReturnCheque, ActionLiquidate},
	},
	{
		match: func(s PaymentEntryState) bool {
			return receivingCheque(s) && s.PaidAmount.GreaterThan(s.EncashedAmount) && !s.EncashedAmount.IsZero()
		},
		actions: []string{ActionLiquidate},
	},
	{
		match: func(s PaymentEntryState) bool {
			return receivingCheque(s) && s.PaidAmount.Equal(s.EncashedAmount) && s.ChequeStatus == StatusReturnedWallet
		},
		actions: []string{ActionReturnCheque},
	},
	{
		match: func(s PaymentEntryState) bool {
			return (s.PaymentType == string(PaymentTypePay) || s.PaymentType == "Internal Transfer") &&
				s.ChequeStatusPay == StatusPayableWallet
		},
		actions: []string{ActionCashPayable, ActionWithdrawPayable},
	},
	{
		match: func(s PaymentEntryState) bool {
			switch s.ChequeStatus {
			case StatusEndorsed, StatusCollectedInstant, StatusReturned, StatusCollected:
				return true
			}
			return s.ChequeStatusPay == StatusPaid || s.ChequeStatusPay == StatusWithdrawn
		},
		actions: []string{},
	},
}

// AvailableChequeActions returns the cheque actions a submitted cheque
// Payment Entry offers. Nil means the policy does not apply and the field
// keeps its configured options; an empty slice means no action is allowed.
func AvailableChequeActions(s PaymentEntryState) []string {
	if s.DocStatus != DocStatusSubmitted || s.ModeOfPaymentType != "Cheque" {
		return nil
	}
	var actions []string
	for _, rule := range actionRules {
		if rule.match(s) {
			actions = rule.actions
		}
	}
	if actions == nil {
		return nil
	}
	out := make([]string, len(actions))
	copy(out, actions)
	return out
}

// ExchangeRateHint renders "Exchange Rate: 1 {from} = {1/rate} {to}" for a
// Payment Entry with a non-trivial rate; empty otherwise.
func ExchangeRateHint(from, to valueobject.Currency, targetRate decimal.Decimal) string {
	if !targetRate.IsPositive() || targetRate.Equal(valueobject.One) {
		return ""
	}
	return fmt.Sprintf("Exchange Rate: 1 %s = %s %s", from, valueobject.One.DivRound(targetRate, 5).StringFixed(5), to)
}
