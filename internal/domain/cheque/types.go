package cheque

// PaymentType is the direction of a Multiple Cheque Entry
type PaymentType string

const (
	PaymentTypeReceive PaymentType = "Receive" // Incoming cheques from customers
	PaymentTypePay     PaymentType = "Pay"     // Outgoing cheques to suppliers
)

// IsValid checks if the payment type is known
func (p PaymentType) IsValid() bool {
	return p == PaymentTypeReceive || p == PaymentTypePay
}

// String returns the string representation of PaymentType
func (p PaymentType) String() string {
	return string(p)
}

// DefaultPartyType returns the party type implied by the direction
func (p PaymentType) DefaultPartyType() PartyType {
	if p == PaymentTypePay {
		return PartyTypeSupplier
	}
	return PartyTypeCustomer
}

// ActiveTable returns the child table that holds rows for this direction
func (p PaymentType) ActiveTable() Table {
	if p == PaymentTypePay {
		return TablePay
	}
	return TableReceive
}

// PartyType identifies the counterparty doctype
type PartyType string

const (
	PartyTypeCustomer PartyType = "Customer"
	PartyTypeSupplier PartyType = "Supplier"
)

// IsValid checks if the party type is known
func (p PartyType) IsValid() bool {
	return p == PartyTypeCustomer || p == PartyTypeSupplier
}

// String returns the string representation of PartyType
func (p PartyType) String() string {
	return string(p)
}

// Table names a child collection of the document
type Table string

const (
	TableReceive Table = "cheque_table"   // Rows for Receive
	TablePay     Table = "cheque_table_2" // Rows for Pay
)

// IsValid checks if the table name is known
func (t Table) IsValid() bool {
	return t == TableReceive || t == TablePay
}

// Direction returns the payment direction whose rows live in this table
func (t Table) Direction() PaymentType {
	if t == TablePay {
		return PaymentTypePay
	}
	return PaymentTypeReceive
}

// DocStatus mirrors the host document status
type DocStatus int

const (
	DocStatusDraft     DocStatus = 0
	DocStatusSubmitted DocStatus = 1
	DocStatusCancelled DocStatus = 2
)

// String returns the status name
func (s DocStatus) String() string {
	switch s {
	case DocStatusDraft:
		return "Draft"
	case DocStatusSubmitted:
		return "Submitted"
	case DocStatusCancelled:
		return "Cancelled"
	}
	return "Unknown"
}

// Doctype is the host document type name used in Payment Entry references
const Doctype = "Multiple Cheque Entry"

// Field names accepted by the cascade dispatcher
const (
	FieldPaymentType             = "payment_type"
	FieldPartyType               = "party_type"
	FieldParty                   = "party"
	FieldPartyName               = "party_name"
	FieldCompany                 = "company"
	FieldPostingDate             = "posting_date"
	FieldBankAcc                 = "bank_acc"
	FieldChequeBank              = "cheque_bank"
	FieldModeOfPayment           = "mode_of_payment"
	FieldPaidFrom                = "paid_from"
	FieldPaidTo                  = "paid_to"
	FieldAccount                 = "account"
	FieldCollectionFeeAccount    = "collection_fee_account"
	FieldPayableAccount          = "payable_account"
	FieldAccountPaidFrom         = "account_paid_from"
	FieldAccountPaidTo           = "account_paid_to"
	FieldAccountCurrencyFrom     = "account_currency_from"
	FieldAccountCurrency         = "account_currency"
	FieldChequeCurrency          = "cheque_currency"
	FieldPaidAmount              = "paid_amount"
	FieldTargetExchangeRate      = "target_exchange_rate"
	FieldRateMopToParty          = "exchange_rate_mop_to_party"
	FieldRatePartyToMop          = "exchange_rate_party_to_mop"
	FieldAmountInCompanyCurrency = "amount_in_company_currency"
	FieldReferenceNo             = "reference_no"
	FieldReferenceDate           = "reference_date"
	FieldIssuerName              = "issuer_name"
	FieldPersonName              = "person_name"
	FieldFirstBeneficiary        = "first_beneficiary"
	FieldBank                    = "bank"
	FieldChequeType              = "cheque_type"
	FieldPictureOfCheck          = "picture_of_check"
)
