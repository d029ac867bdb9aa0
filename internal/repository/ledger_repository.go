package repository

import (
	"context"
	"errors"
	"time"

	"order_engine/internal/models"

	"gorm.io/gorm"
)

type LedgerRepository interface {
	WithTx(tx *gorm.DB) LedgerRepository
	Create(ctx context.Context, entry *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	Update(ctx context.Context, entry *models.Transaction) error
	Delete(ctx context.Context, id string) error
	GetByDateRange(ctx context.Context, start, end time.Time) ([]models.Transaction, error)
	GetByReference(ctx context.Context, referenceID string) ([]models.Transaction, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) WithTx(tx *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: tx}
}

func (r *ledgerRepository) Create(ctx context.Context, entry *models.Transaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ledgerRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var entry models.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *ledgerRepository) Update(ctx context.Context, entry *models.Transaction) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *ledgerRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Transaction{}).Error
}

func (r *ledgerRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]models.Transaction, error) {
	var entries []models.Transaction
	err := r.db.WithContext(ctx).
		Where("date BETWEEN ? AND ?", start.UTC(), end.UTC()).
		Order("date, created_at").
		Find(&entries).Error
	return entries, err
}

func (r *ledgerRepository) GetByReference(ctx context.Context, referenceID string) ([]models.Transaction, error) {
	var entries []models.Transaction
	err := r.db.WithContext(ctx).Where("reference_id = ?", referenceID).Order("date, created_at").Find(&entries).Error
	return entries, err
}
