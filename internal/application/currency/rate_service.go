package currency

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/erp/cheques/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Lookup resolves a conversion factor; *currency.ExchangeRateLookup satisfies it
type Lookup interface {
	Lookup(ctx context.Context, from, to valueobject.Currency, asOf time.Time) (decimal.Decimal, error)
}

// RateService exposes exchange-rate lookups and records
type RateService struct {
	lookup Lookup
	repo   currency.RateRepository
	logger *zap.Logger
}

// NewRateService creates a new RateService
func NewRateService(lookup Lookup, repo currency.RateRepository, logger *zap.Logger) *RateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateService{lookup: lookup, repo: repo, logger: logger}
}

// LookupRequest asks for the rate of a pair on a date (today when empty)
type LookupRequest struct {
	From string `form:"from" binding:"required,currency"`
	To   string `form:"to" binding:"required,currency"`
	Date string `form:"date"`
}

// LookupResponse is a resolved rate: 1 From = Rate To
type LookupResponse struct {
	From string          `json:"from_currency"`
	To   string          `json:"to_currency"`
	Date string          `json:"date"`
	Rate decimal.Decimal `json:"exchange_rate"`
}

// RecordRateRequest records a Currency Exchange
type RecordRateRequest struct {
	FromCurrency string          `json:"from_currency" yaml:"from" binding:"required,currency"`
	ToCurrency   string          `json:"to_currency" yaml:"to" binding:"required,currency"`
	ExchangeRate decimal.Decimal `json:"exchange_rate" yaml:"rate"`
	Date         string          `json:"date" yaml:"date" binding:"required"`
}

// ExchangeRateResponse is a stored Currency Exchange
type ExchangeRateResponse struct {
	ID           string          `json:"id"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	Date         string          `json:"date"`
}

func toExchangeRateResponse(r *currency.ExchangeRate) *ExchangeRateResponse {
	return &ExchangeRateResponse{
		ID:           r.ID.String(),
		FromCurrency: r.FromCurrency.String(),
		ToCurrency:   r.ToCurrency.String(),
		ExchangeRate: r.Rate,
		Date:         r.Date.Format(currency.DateLayout),
	}
}

// Lookup resolves the rate for a pair. Unresolved pairs return a
// *currency.LookupNotFoundError.
func (s *RateService) Lookup(ctx context.Context, req LookupRequest) (*LookupResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "exchange_rate", "lookup")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCurrencyFrom, req.From,
		telemetry.SpanAttrCurrencyTo, req.To,
	)

	from, err := valueobject.ParseCurrency(req.From)
	if err != nil {
		return nil, fmt.Errorf("from currency: %w", shared.ErrInvalidInput)
	}
	to, err := valueobject.ParseCurrency(req.To)
	if err != nil {
		return nil, fmt.Errorf("to currency: %w", shared.ErrInvalidInput)
	}
	asOf := time.Now()
	if req.Date != "" {
		asOf, err = time.Parse(currency.DateLayout, req.Date)
		if err != nil {
			return nil, fmt.Errorf("date %q: %w", req.Date, shared.ErrInvalidInput)
		}
	}

	rate, err := s.lookup.Lookup(ctx, from, to, asOf)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return &LookupResponse{
		From: from.String(),
		To:   to.String(),
		Date: currency.DateOnly(asOf).Format(currency.DateLayout),
		Rate: rate,
	}, nil
}

// Record stores a new Currency Exchange record
func (s *RateService) Record(ctx context.Context, req RecordRateRequest) (*ExchangeRateResponse, error) {
	date, err := time.Parse(currency.DateLayout, req.Date)
	if err != nil {
		return nil, fmt.Errorf("date %q: %w", req.Date, shared.ErrInvalidInput)
	}
	rate, err := currency.NewExchangeRate(req.FromCurrency, req.ToCurrency, req.ExchangeRate, date)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, rate); err != nil {
		return nil, err
	}
	s.logger.Info("Exchange rate recorded",
		zap.String("from", rate.FromCurrency.String()),
		zap.String("to", rate.ToCurrency.String()),
		zap.String("rate", rate.Rate.String()),
		zap.String("date", req.Date))
	return toExchangeRateResponse(rate), nil
}

// Seed records a batch of rates and returns how many were stored.
// It stops at the first invalid record.
func (s *RateService) Seed(ctx context.Context, reqs []RecordRateRequest) (int, error) {
	for i, req := range reqs {
		if _, err := s.Record(ctx, req); err != nil {
			return i, fmt.Errorf("rate %d (%s/%s): %w", i+1, req.FromCurrency, req.ToCurrency, err)
		}
	}
	return len(reqs), nil
}
