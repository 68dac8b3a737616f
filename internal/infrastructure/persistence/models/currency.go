package models

import (
	"time"

	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CurrencyExchangeModel is a dated rate for one currency pair
type CurrencyExchangeModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	FromCurrency string          `gorm:"type:varchar(3);not null;index:idx_currency_exchange_pair_date,priority:1"`
	ToCurrency   string          `gorm:"type:varchar(3);not null;index:idx_currency_exchange_pair_date,priority:2"`
	Date         time.Time       `gorm:"type:date;not null;index:idx_currency_exchange_pair_date,priority:3"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(18,9);not null"`
	CreatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CurrencyExchangeModel) TableName() string {
	return "currency_exchanges"
}

// ToDomain converts the model to a domain ExchangeRate
func (m *CurrencyExchangeModel) ToDomain() *currency.ExchangeRate {
	return &currency.ExchangeRate{
		ID:           m.ID,
		FromCurrency: valueobject.Currency(m.FromCurrency),
		ToCurrency:   valueobject.Currency(m.ToCurrency),
		Rate:         m.ExchangeRate,
		Date:         currency.DateOnly(m.Date),
		CreatedAt:    m.CreatedAt,
	}
}

// CurrencyExchangeModelFromDomain maps a domain ExchangeRate
func CurrencyExchangeModelFromDomain(r *currency.ExchangeRate) *CurrencyExchangeModel {
	return &CurrencyExchangeModel{
		ID:           r.ID,
		FromCurrency: r.FromCurrency.String(),
		ToCurrency:   r.ToCurrency.String(),
		Date:         currency.DateOnly(r.Date),
		ExchangeRate: r.Rate,
		CreatedAt:    r.CreatedAt,
	}
}
