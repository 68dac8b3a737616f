package persistence

import (
	"context"
	"time"

	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/erp/cheques/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormExchangeRateRepository stores Currency Exchange records locally
type GormExchangeRateRepository struct {
	db *gorm.DB
}

// NewGormExchangeRateRepository creates a new GormExchangeRateRepository
func NewGormExchangeRateRepository(db *gorm.DB) *GormExchangeRateRepository {
	return &GormExchangeRateRepository{db: db}
}

// FindLatest returns the newest record for the pair effective on or before
// asOf. Among records sharing a date the most recently inserted wins.
func (r *GormExchangeRateRepository) FindLatest(ctx context.Context, from, to valueobject.Currency, asOf time.Time) (*currency.ExchangeRate, error) {
	var model models.CurrencyExchangeModel
	err := r.db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ? AND date <= ?", from.String(), to.String(), currency.DateOnly(asOf)).
		Order("date DESC").
		Order("created_at DESC").
		Take(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save inserts a rate record. Records are append-only.
func (r *GormExchangeRateRepository) Save(ctx context.Context, rate *currency.ExchangeRate) error {
	return translateError(r.db.WithContext(ctx).Create(models.CurrencyExchangeModelFromDomain(rate)).Error)
}

var _ currency.RateRepository = (*GormExchangeRateRepository)(nil)
