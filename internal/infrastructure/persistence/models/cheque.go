package models

import (
	"sort"
	"time"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChequeEntryModel is the persistence model for the ChequeEntry aggregate root.
type ChequeEntryModel struct {
	AggregateModel
	Name                 string    `gorm:"type:varchar(140);not null;uniqueIndex"`
	PaymentType          string    `gorm:"type:varchar(16);not null"`
	PartyType            string    `gorm:"type:varchar(16);not null"`
	Party                string    `gorm:"type:varchar(140)"`
	PartyName            string    `gorm:"type:varchar(255)"`
	Company              string    `gorm:"type:varchar(140);not null;index"`
	CompanyCurrency      string    `gorm:"type:varchar(3)"`
	PostingDate          time.Time `gorm:"type:date"`
	BankAcc              string    `gorm:"type:varchar(140)"`
	ChequeBank           string    `gorm:"type:varchar(140)"`
	ModeOfPayment        string    `gorm:"type:varchar(140)"`
	ModeOfPaymentType    string    `gorm:"type:varchar(32)"`
	PaidFrom             string    `gorm:"type:varchar(140)"`
	PaidTo               string    `gorm:"type:varchar(140)"`
	Account              string    `gorm:"type:varchar(140)"`
	CollectionFeeAccount string    `gorm:"type:varchar(140)"`
	PayableAccount       string    `gorm:"type:varchar(140)"`
	DocStatus            int       `gorm:"not null;default:0"`

	Rows []ChequeRowModel `gorm:"foreignKey:EntryID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ChequeEntryModel) TableName() string {
	return "cheque_entries"
}

// ChequeRowModel stores one cheque of either child table. ParentField names
// the table the row belongs to.
type ChequeRowModel struct {
	BaseModel
	EntryID     uuid.UUID `gorm:"type:uuid;not null;index:idx_cheque_rows_entry_table,priority:1"`
	ParentField string    `gorm:"type:varchar(32);not null;index:idx_cheque_rows_entry_table,priority:2"`
	Idx         int       `gorm:"not null"`

	PartyType string `gorm:"type:varchar(16)"`
	Party     string `gorm:"type:varchar(140)"`
	PartyName string `gorm:"type:varchar(255)"`

	AccountPaidFrom     string `gorm:"type:varchar(140)"`
	AccountPaidTo       string `gorm:"type:varchar(140)"`
	AccountCurrencyFrom string `gorm:"type:varchar(3)"`
	AccountCurrency     string `gorm:"type:varchar(3)"`
	ChequeCurrency      string `gorm:"type:varchar(3)"`

	PaidAmount              decimal.Decimal     `gorm:"type:decimal(18,6);not null;default:0"`
	TargetExchangeRate      decimal.Decimal     `gorm:"type:decimal(18,9);not null;default:1"`
	ExchangeRateMopToParty  decimal.NullDecimal `gorm:"type:decimal(18,9)"`
	ExchangeRatePartyToMop  decimal.NullDecimal `gorm:"type:decimal(18,9)"`
	AmountInCompanyCurrency decimal.Decimal     `gorm:"type:decimal(18,6);not null;default:0"`
	RateManuallySet         bool                `gorm:"not null;default:false"`

	PaymentEntry string `gorm:"type:varchar(140);index"`

	ModeOfPayment    string     `gorm:"type:varchar(140)"`
	ReferenceNo      string     `gorm:"type:varchar(140)"`
	ReferenceDate    *time.Time `gorm:"type:date"`
	IssuerName       string     `gorm:"type:varchar(255)"`
	PersonName       string     `gorm:"type:varchar(255)"`
	FirstBeneficiary string     `gorm:"type:varchar(255)"`
	Bank             string     `gorm:"type:varchar(140)"`
	ChequeType       string     `gorm:"type:varchar(64)"`
	PictureOfCheck   string     `gorm:"type:varchar(512)"`
}

// TableName returns the table name for GORM
func (ChequeRowModel) TableName() string {
	return "cheque_rows"
}

// ToDomain converts the persistence model to a domain ChequeEntry.
// Rows are split by ParentField and ordered by Idx.
func (m *ChequeEntryModel) ToDomain() *cheque.ChequeEntry {
	e := &cheque.ChequeEntry{
		BaseAggregateRoot:    m.ToDomainAggregateRoot(),
		Name:                 m.Name,
		PaymentType:          cheque.PaymentType(m.PaymentType),
		PartyType:            cheque.PartyType(m.PartyType),
		Party:                m.Party,
		PartyName:            m.PartyName,
		Company:              m.Company,
		CompanyCurrency:      valueobject.Currency(m.CompanyCurrency),
		PostingDate:          m.PostingDate,
		BankAcc:              m.BankAcc,
		ChequeBank:           m.ChequeBank,
		ModeOfPayment:        m.ModeOfPayment,
		ModeOfPaymentType:    m.ModeOfPaymentType,
		PaidFrom:             m.PaidFrom,
		PaidTo:               m.PaidTo,
		Account:              m.Account,
		CollectionFeeAccount: m.CollectionFeeAccount,
		PayableAccount:       m.PayableAccount,
		DocStatus:            cheque.DocStatus(m.DocStatus),
	}

	rows := make([]ChequeRowModel, len(m.Rows))
	copy(rows, m.Rows)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Idx < rows[j].Idx })

	receive := make([]*cheque.ChequeRow, 0)
	pay := make([]*cheque.ChequeRow, 0)
	for i := range rows {
		row := rows[i].ToDomain()
		if cheque.Table(rows[i].ParentField) == cheque.TablePay {
			pay = append(pay, row)
		} else {
			receive = append(receive, row)
		}
	}
	e.ReceiveRows = receive
	e.PayRows = pay
	return e
}

// FromDomain populates the persistence model from a domain ChequeEntry.
func (m *ChequeEntryModel) FromDomain(e *cheque.ChequeEntry) {
	m.FromDomainAggregateRoot(e.BaseAggregateRoot)
	m.Name = e.Name
	m.PaymentType = string(e.PaymentType)
	m.PartyType = string(e.PartyType)
	m.Party = e.Party
	m.PartyName = e.PartyName
	m.Company = e.Company
	m.CompanyCurrency = e.CompanyCurrency.String()
	m.PostingDate = e.PostingDate
	m.BankAcc = e.BankAcc
	m.ChequeBank = e.ChequeBank
	m.ModeOfPayment = e.ModeOfPayment
	m.ModeOfPaymentType = e.ModeOfPaymentType
	m.PaidFrom = e.PaidFrom
	m.PaidTo = e.PaidTo
	m.Account = e.Account
	m.CollectionFeeAccount = e.CollectionFeeAccount
	m.PayableAccount = e.PayableAccount
	m.DocStatus = int(e.DocStatus)

	m.Rows = make([]ChequeRowModel, 0, len(e.ReceiveRows)+len(e.PayRows))
	for _, table := range []cheque.Table{cheque.TableReceive, cheque.TablePay} {
		for _, r := range e.Rows(table) {
			m.Rows = append(m.Rows, *ChequeRowModelFromDomain(e, table, r))
		}
	}
}

// ChequeRowModelFromDomain maps a row of the given table
func ChequeRowModelFromDomain(e *cheque.ChequeEntry, table cheque.Table, r *cheque.ChequeRow) *ChequeRowModel {
	return &ChequeRowModel{
		BaseModel: BaseModel{
			ID:        r.ID,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		},
		EntryID:                 e.ID,
		ParentField:             string(table),
		Idx:                     r.Idx,
		PartyType:               string(r.PartyType),
		Party:                   r.Party,
		PartyName:               r.PartyName,
		AccountPaidFrom:         r.AccountPaidFrom,
		AccountPaidTo:           r.AccountPaidTo,
		AccountCurrencyFrom:     r.AccountCurrencyFrom.String(),
		AccountCurrency:         r.AccountCurrency.String(),
		ChequeCurrency:          r.ChequeCurrency.String(),
		PaidAmount:              r.PaidAmount,
		TargetExchangeRate:      r.TargetExchangeRate,
		ExchangeRateMopToParty:  r.ExchangeRateMopToParty,
		ExchangeRatePartyToMop:  r.ExchangeRatePartyToMop,
		AmountInCompanyCurrency: r.AmountInCompanyCurrency,
		RateManuallySet:         r.RateManuallySet,
		PaymentEntry:            r.PaymentEntry,
		ModeOfPayment:           r.ModeOfPayment,
		ReferenceNo:             r.ReferenceNo,
		ReferenceDate:           r.ReferenceDate,
		IssuerName:              r.IssuerName,
		PersonName:              r.PersonName,
		FirstBeneficiary:        r.FirstBeneficiary,
		Bank:                    r.Bank,
		ChequeType:              r.ChequeType,
		PictureOfCheck:          r.PictureOfCheck,
	}
}

// ToDomain converts the row model to a domain ChequeRow
func (m *ChequeRowModel) ToDomain() *cheque.ChequeRow {
	return &cheque.ChequeRow{
		ID:                      m.ID,
		Idx:                     m.Idx,
		PartyType:               cheque.PartyType(m.PartyType),
		Party:                   m.Party,
		PartyName:               m.PartyName,
		AccountPaidFrom:         m.AccountPaidFrom,
		AccountPaidTo:           m.AccountPaidTo,
		AccountCurrencyFrom:     valueobject.Currency(m.AccountCurrencyFrom),
		AccountCurrency:         valueobject.Currency(m.AccountCurrency),
		ChequeCurrency:          valueobject.Currency(m.ChequeCurrency),
		PaidAmount:              m.PaidAmount,
		TargetExchangeRate:      m.TargetExchangeRate,
		ExchangeRateMopToParty:  m.ExchangeRateMopToParty,
		ExchangeRatePartyToMop:  m.ExchangeRatePartyToMop,
		AmountInCompanyCurrency: m.AmountInCompanyCurrency,
		RateManuallySet:         m.RateManuallySet,
		PaymentEntry:            m.PaymentEntry,
		ModeOfPayment:           m.ModeOfPayment,
		ReferenceNo:             m.ReferenceNo,
		ReferenceDate:           m.ReferenceDate,
		IssuerName:              m.IssuerName,
		PersonName:              m.PersonName,
		FirstBeneficiary:        m.FirstBeneficiary,
		Bank:                    m.Bank,
		ChequeType:              m.ChequeType,
		PictureOfCheck:          m.PictureOfCheck,
	}
}
