package cheque

import (
	"fmt"
	"time"

	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentEntryRequest is the host Payment Entry document built from one row
type PaymentEntryRequest struct {
	Doctype                 string               `json:"doctype"`
	PostingDate             string               `json:"posting_date"`
	ReferenceDoctype        string               `json:"reference_doctype"`
	ReferenceLink           string               `json:"reference_link"`
	PaymentType             PaymentType          `json:"payment_type"`
	Company                 string               `json:"company"`
	ModeOfPayment           string               `json:"mode_of_payment"`
	ModeOfPaymentType       string               `json:"mode_of_payment_type"`
	PartyType               PartyType            `json:"party_type"`
	Party                   string               `json:"party"`
	PaidFrom                string               `json:"paid_from"`
	PaidTo                  string               `json:"paid_to"`
	PaidFromAccountCurrency valueobject.Currency `json:"paid_from_account_currency"`
	PaidToAccountCurrency   valueobject.Currency `json:"paid_to_account_currency"`
	SourceExchangeRate      decimal.Decimal      `json:"source_exchange_rate"`
	TargetExchangeRate      decimal.Decimal      `json:"target_exchange_rate"`
	PaidAmount              decimal.Decimal      `json:"paid_amount"`
	ReceivedAmount          decimal.Decimal      `json:"received_amount"`
	ChequeBank              string               `json:"cheque_bank"`
	BankAcc                 string               `json:"bank_acc"`
	ChequeType              string               `json:"cheque_type"`
	ReferenceNo             string               `json:"reference_no"`
	ReferenceDate           string               `json:"reference_date,omitempty"`
	FirstBeneficiary        string               `json:"first_beneficiary"`
	PersonName              string               `json:"person_name"`
	IssuerName              string               `json:"issuer_name"`
	PictureOfCheck          string               `json:"picture_of_check"`
	ChequeTableNo           string               `json:"cheque_table_no,omitempty"`
	ChequeTableNo2          string               `json:"cheque_table_no2,omitempty"`
	DrawnBank               string               `json:"drawn_bank,omitempty"`
}

// IssueCurrencies are the account currencies resolved at issuance time
type IssueCurrencies struct {
	PaidFrom valueobject.Currency
	PaidTo   valueobject.Currency
}

// ZeroRateError is a row whose currencies differ but whose rate is not positive
type ZeroRateError struct {
	RowIdx int
	Cheque valueobject.Currency
	Party  valueobject.Currency
}

func (e *ZeroRateError) Error() string {
	return fmt.Sprintf("Row %d: Cannot create Payment Entry - Exchange Rate is missing or zero for %s → %s.", e.RowIdx, e.Cheque, e.Party)
}

// CheckZeroRate guards issuance against a row without a usable rate
func CheckZeroRate(row *ChequeRow, dir PaymentType, cur IssueCurrencies) error {
	if cur.PaidFrom == cur.PaidTo || row.TargetExchangeRate.IsPositive() {
		return nil
	}
	cheque, party := cur.PaidTo, cur.PaidFrom
	if dir == PaymentTypePay {
		cheque, party = cur.PaidFrom, cur.PaidTo
	}
	return &ZeroRateError{RowIdx: row.Idx, Cheque: cheque, Party: party}
}

// BuildPaymentEntryRequest maps a row onto a Payment Entry.
// paid_amount on the row is always the cheque-side amount: for Receive it
// becomes received_amount and the party side is paid × rate, for Pay the
// other way around.
func BuildPaymentEntryRequest(e *ChequeEntry, row *ChequeRow, cur IssueCurrencies) (*PaymentEntryRequest, error) {
	dir := e.PaymentType
	if err := CheckZeroRate(row, dir, cur); err != nil {
		return nil, err
	}

	modeOfPayment := row.ModeOfPayment
	if modeOfPayment == "" {
		modeOfPayment = e.ModeOfPayment
	}

	req := &PaymentEntryRequest{
		Doctype:                 "Payment Entry",
		PostingDate:             e.EffectivePostingDate().Format("2006-01-02"),
		ReferenceDoctype:        Doctype,
		ReferenceLink:           e.Name,
		PaymentType:             dir,
		Company:                 e.Company,
		ModeOfPayment:           modeOfPayment,
		ModeOfPaymentType:       e.ModeOfPaymentType,
		PartyType:               row.PartyType,
		Party:                   row.Party,
		PaidFrom:                row.AccountPaidFrom,
		PaidTo:                  row.AccountPaidTo,
		PaidFromAccountCurrency: cur.PaidFrom,
		PaidToAccountCurrency:   cur.PaidTo,
		ChequeBank:              e.ChequeBank,
		BankAcc:                 e.BankAcc,
		ChequeType:              row.ChequeType,
		ReferenceNo:             row.ReferenceNo,
		FirstBeneficiary:        row.FirstBeneficiary,
		PersonName:              row.PersonName,
		IssuerName:              row.IssuerName,
		PictureOfCheck:          row.PictureOfCheck,
	}
	if row.ReferenceDate != nil {
		req.ReferenceDate = row.ReferenceDate.Format("2006-01-02")
	}

	rowName := row.ID.String()
	if dir == PaymentTypeReceive {
		req.ChequeTableNo = rowName
		req.DrawnBank = row.Bank
	} else {
		req.ChequeTableNo2 = rowName
	}

	paid := row.PaidAmount
	r := row.TargetExchangeRate
	switch {
	case cur.PaidFrom == cur.PaidTo:
		req.SourceExchangeRate = valueobject.One
		req.TargetExchangeRate = valueobject.One
		req.PaidAmount = paid
		req.ReceivedAmount = paid
	case dir == PaymentTypeReceive:
		req.SourceExchangeRate = valueobject.One
		req.TargetExchangeRate = r
		req.ReceivedAmount = paid
		req.PaidAmount = paid.Mul(r)
	default:
		req.SourceExchangeRate = r
		req.TargetExchangeRate = valueobject.One
		req.PaidAmount = paid
		req.ReceivedAmount = paid.Mul(r)
	}

	return req, nil
}

// ParseDate parses a host date field
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
