package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormChequeEntryRepository implements cheque.Repository using GORM
type GormChequeEntryRepository struct {
	db *gorm.DB
}

// NewGormChequeEntryRepository creates a new GormChequeEntryRepository
func NewGormChequeEntryRepository(db *gorm.DB) *GormChequeEntryRepository {
	return &GormChequeEntryRepository{db: db}
}

// FindByID finds a cheque entry by ID with both row tables
func (r *GormChequeEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*cheque.ChequeEntry, error) {
	var model models.ChequeEntryModel
	err := r.db.WithContext(ctx).Preload("Rows").Where("id = ?", id).First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByName finds a cheque entry by its document name
func (r *GormChequeEntryRepository) FindByName(ctx context.Context, name string) (*cheque.ChequeEntry, error) {
	var model models.ChequeEntryModel
	err := r.db.WithContext(ctx).Preload("Rows").Where("name = ?", name).First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save inserts a new document or updates an existing one under optimistic
// locking. On update the stored version must equal entry.Version; it is
// bumped in the same statement and the rows are rewritten.
func (r *GormChequeEntryRepository) Save(ctx context.Context, entry *cheque.ChequeEntry) error {
	var model models.ChequeEntryModel
	model.FromDomain(entry)

	updated := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.ChequeEntryModel
		err := tx.Select("id", "version").Where("id = ?", entry.ID).Take(&stored).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&model).Error
		}
		if err != nil {
			return err
		}
		if stored.Version != entry.Version {
			return shared.ErrConcurrencyConflict
		}

		result := tx.Model(&models.ChequeEntryModel{}).
			Where("id = ? AND version = ?", entry.ID, entry.Version).
			Updates(map[string]any{
				"name":                   model.Name,
				"payment_type":           model.PaymentType,
				"party_type":             model.PartyType,
				"party":                  model.Party,
				"party_name":             model.PartyName,
				"company":                model.Company,
				"company_currency":       model.CompanyCurrency,
				"posting_date":           model.PostingDate,
				"bank_acc":               model.BankAcc,
				"cheque_bank":            model.ChequeBank,
				"mode_of_payment":        model.ModeOfPayment,
				"mode_of_payment_type":   model.ModeOfPaymentType,
				"paid_from":              model.PaidFrom,
				"paid_to":                model.PaidTo,
				"account":                model.Account,
				"collection_fee_account": model.CollectionFeeAccount,
				"payable_account":        model.PayableAccount,
				"doc_status":             model.DocStatus,
				"version":                entry.Version + 1,
				"updated_at":             model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Where("entry_id = ?", entry.ID).Delete(&models.ChequeRowModel{}).Error; err != nil {
			return err
		}
		if len(model.Rows) > 0 {
			if err := tx.Create(&model.Rows).Error; err != nil {
				return err
			}
		}
		updated = true
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		return translateError(err)
	}
	if updated {
		entry.IncrementVersion()
	}
	return nil
}

// SetRowPaymentEntry records an issued Payment Entry on one row without
// touching the document version
func (r *GormChequeEntryRepository) SetRowPaymentEntry(ctx context.Context, rowID uuid.UUID, paymentEntry string) error {
	result := r.db.WithContext(ctx).
		Model(&models.ChequeRowModel{}).
		Where("id = ?", rowID).
		Updates(map[string]any{
			"payment_entry": paymentEntry,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormChequeEntryRepository implements cheque.Repository
var _ cheque.Repository = (*GormChequeEntryRepository)(nil)
