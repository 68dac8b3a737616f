package cheque

import (
	"time"

	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChequeRow is one physical cheque inside a Multiple Cheque Entry.
// The same shape serves both tables; the owning table decides which account
// slot is the bank side and which is the party side.
type ChequeRow struct {
	ID        uuid.UUID `json:"id"`
	Idx       int       `json:"idx"`
	PartyType PartyType `json:"party_type"`
	Party     string    `json:"party"`
	PartyName string    `json:"party_name"`

	AccountPaidFrom     string               `json:"account_paid_from"`
	AccountPaidTo       string               `json:"account_paid_to"`
	AccountCurrencyFrom valueobject.Currency `json:"account_currency_from"`
	AccountCurrency     valueobject.Currency `json:"account_currency"`
	ChequeCurrency      valueobject.Currency `json:"cheque_currency"`

	PaidAmount              decimal.Decimal     `json:"paid_amount"`
	TargetExchangeRate      decimal.Decimal     `json:"target_exchange_rate"`
	ExchangeRateMopToParty  decimal.NullDecimal `json:"exchange_rate_mop_to_party"`
	ExchangeRatePartyToMop  decimal.NullDecimal `json:"exchange_rate_party_to_mop"`
	AmountInCompanyCurrency decimal.Decimal     `json:"amount_in_company_currency"`
	RateManuallySet         bool                `json:"rate_manually_set"`

	PaymentEntry string `json:"payment_entry"`

	ModeOfPayment    string     `json:"mode_of_payment"`
	ReferenceNo      string     `json:"reference_no"`
	ReferenceDate    *time.Time `json:"reference_date"`
	IssuerName       string     `json:"issuer_name"`
	PersonName       string     `json:"person_name"`
	FirstBeneficiary string     `json:"first_beneficiary"`
	Bank             string     `json:"bank"`
	ChequeType       string     `json:"cheque_type"`
	PictureOfCheck   string     `json:"picture_of_check"`

	revision uint64
}

// NewChequeRow creates an empty row at rate 1
func NewChequeRow() *ChequeRow {
	return &ChequeRow{
		ID:                 uuid.New(),
		TargetExchangeRate: valueobject.One,
	}
}

// Revision returns the in-memory edit counter
func (r *ChequeRow) Revision() uint64 {
	return r.revision
}

// BumpRevision marks the row as edited and returns the new revision.
// Work started against an older revision must not be applied.
func (r *ChequeRow) BumpRevision() uint64 {
	r.revision++
	return r.revision
}

// IsProcessed reports whether a Payment Entry was already issued for the row
func (r *ChequeRow) IsProcessed() bool {
	return r.PaymentEntry != ""
}

// SameCurrency reports whether both account currencies are set and equal
func (r *ChequeRow) SameCurrency() bool {
	return !r.AccountCurrencyFrom.IsZero() && r.AccountCurrencyFrom == r.AccountCurrency
}

// CurrenciesKnown reports whether both account currencies are set
func (r *ChequeRow) CurrenciesKnown() bool {
	return !r.AccountCurrencyFrom.IsZero() && !r.AccountCurrency.IsZero()
}

// BankAccount returns the cheque-side account for the direction
func (r *ChequeRow) BankAccount(dir PaymentType) string {
	if dir == PaymentTypePay {
		return r.AccountPaidFrom
	}
	return r.AccountPaidTo
}

// BankCurrency returns the cheque-side currency for the direction
func (r *ChequeRow) BankCurrency(dir PaymentType) valueobject.Currency {
	if dir == PaymentTypePay {
		return r.AccountCurrencyFrom
	}
	return r.AccountCurrency
}

// PartyAccount returns the party-side account for the direction
func (r *ChequeRow) PartyAccount(dir PaymentType) string {
	if dir == PaymentTypePay {
		return r.AccountPaidTo
	}
	return r.AccountPaidFrom
}

// PartyCurrency returns the party-side currency for the direction
func (r *ChequeRow) PartyCurrency(dir PaymentType) valueobject.Currency {
	if dir == PaymentTypePay {
		return r.AccountCurrency
	}
	return r.AccountCurrencyFrom
}

// SetBankAccount writes the cheque-side account
func (r *ChequeRow) SetBankAccount(dir PaymentType, account string) {
	if dir == PaymentTypePay {
		r.AccountPaidFrom = account
		return
	}
	r.AccountPaidTo = account
}

// SetBankCurrency writes the cheque-side currency
func (r *ChequeRow) SetBankCurrency(dir PaymentType, cur valueobject.Currency) {
	if dir == PaymentTypePay {
		r.AccountCurrencyFrom = cur
		return
	}
	r.AccountCurrency = cur
}

// SetPartyAccount writes the party-side account
func (r *ChequeRow) SetPartyAccount(dir PaymentType, account string) {
	if dir == PaymentTypePay {
		r.AccountPaidTo = account
		return
	}
	r.AccountPaidFrom = account
}

// SetPartyCurrency writes the party-side currency
func (r *ChequeRow) SetPartyCurrency(dir PaymentType, cur valueobject.Currency) {
	if dir == PaymentTypePay {
		r.AccountCurrency = cur
		return
	}
	r.AccountCurrencyFrom = cur
}

// BankAccountField returns the field name of the cheque-side account
func BankAccountField(dir PaymentType) string {
	if dir == PaymentTypePay {
		return FieldAccountPaidFrom
	}
	return FieldAccountPaidTo
}

// PartyAccountField returns the field name of the party-side account
func PartyAccountField(dir PaymentType) string {
	if dir == PaymentTypePay {
		return FieldAccountPaidTo
	}
	return FieldAccountPaidFrom
}

// ClearParty empties the party and the party-side account slot
func (r *ChequeRow) ClearParty(dir PaymentType) {
	r.Party = ""
	r.PartyName = ""
	r.SetPartyAccount(dir, "")
	r.SetPartyCurrency(dir, "")
}

// ClearBankSide empties the cheque-side account slot
func (r *ChequeRow) ClearBankSide(dir PaymentType) {
	r.SetBankAccount(dir, "")
	r.SetBankCurrency(dir, "")
}

// SameIssuance reports whether o would produce the same Payment Entry as r.
// Only the fields copied onto the Payment Entry are compared.
func (r *ChequeRow) SameIssuance(o *ChequeRow) bool {
	if r.PartyType != o.PartyType || r.Party != o.Party ||
		r.AccountPaidFrom != o.AccountPaidFrom || r.AccountPaidTo != o.AccountPaidTo ||
		r.AccountCurrencyFrom != o.AccountCurrencyFrom || r.AccountCurrency != o.AccountCurrency ||
		r.ModeOfPayment != o.ModeOfPayment || r.ReferenceNo != o.ReferenceNo ||
		r.Bank != o.Bank || r.ChequeType != o.ChequeType ||
		r.FirstBeneficiary != o.FirstBeneficiary || r.PersonName != o.PersonName ||
		r.IssuerName != o.IssuerName || r.PictureOfCheck != o.PictureOfCheck {
		return false
	}
	if !r.PaidAmount.Equal(o.PaidAmount) || !r.TargetExchangeRate.Equal(o.TargetExchangeRate) {
		return false
	}
	switch {
	case r.ReferenceDate == nil || o.ReferenceDate == nil:
		return r.ReferenceDate == o.ReferenceDate
	default:
		return r.ReferenceDate.Equal(*o.ReferenceDate)
	}
}

// Clone returns a copy of the row that shares no pointers with it
func (r *ChequeRow) Clone() *ChequeRow {
	c := *r
	if r.ReferenceDate != nil {
		d := *r.ReferenceDate
		c.ReferenceDate = &d
	}
	return &c
}
