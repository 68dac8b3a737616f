package hostrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	currencyExchangeDoctype = "Currency Exchange"
	hostTimestampLayout     = "2006-01-02 15:04:05.999999"
)

// RateStore reads and records Currency Exchange documents on the host
type RateStore struct {
	client *Client
}

// NewRateStore creates a RateStore over client
func NewRateStore(client *Client) *RateStore {
	return &RateStore{client: client}
}

type currencyExchangeDoc struct {
	Name         string          `json:"name"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	Date         string          `json:"date"`
	Creation     string          `json:"creation"`
}

// FindLatest implements currency.RateStore
func (s *RateStore) FindLatest(ctx context.Context, from, to valueobject.Currency, asOf time.Time) (*currency.ExchangeRate, error) {
	var rows []currencyExchangeDoc
	err := s.client.GetList(ctx, ListQuery{
		Doctype: currencyExchangeDoctype,
		Filters: map[string]any{
			"from_currency": from,
			"to_currency":   to,
			"date":          []string{"<=", currency.DateOnly(asOf).Format(currency.DateLayout)},
		},
		Fields:  []string{"name", "from_currency", "to_currency", "exchange_rate", "date", "creation"},
		OrderBy: "date desc, creation desc",
		Limit:   1,
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.ErrNotFound
	}
	return rows[0].toDomain()
}

// Save inserts a Currency Exchange document
func (s *RateStore) Save(ctx context.Context, rate *currency.ExchangeRate) error {
	_, err := s.client.Insert(ctx, map[string]any{
		"doctype":       currencyExchangeDoctype,
		"from_currency": rate.FromCurrency,
		"to_currency":   rate.ToCurrency,
		"exchange_rate": rate.Rate,
		"date":          rate.Date.Format(currency.DateLayout),
	})
	return err
}

func (d currencyExchangeDoc) toDomain() (*currency.ExchangeRate, error) {
	date, err := time.Parse(currency.DateLayout, d.Date)
	if err != nil {
		return nil, fmt.Errorf("currency exchange %s: bad date %q: %w", d.Name, d.Date, err)
	}
	created, err := time.Parse(hostTimestampLayout, d.Creation)
	if err != nil {
		created = date
	}
	return &currency.ExchangeRate{
		ID:           uuid.NewSHA1(uuid.NameSpaceURL, []byte(currencyExchangeDoctype+"/"+d.Name)),
		FromCurrency: valueobject.Currency(d.FromCurrency),
		ToCurrency:   valueobject.Currency(d.ToCurrency),
		Rate:         d.ExchangeRate,
		Date:         date,
		CreatedAt:    created,
	}, nil
}

var _ currency.RateRepository = (*RateStore)(nil)
