package repository

import (
	"context"
	"errors"

	"order_engine/internal/models"

	"gorm.io/gorm"
)

// FinancialRepository stores the settings-driven pricing configuration.
type FinancialRepository interface {
	GetSettings(ctx context.Context) (*models.StoreSettings, error)
	SaveSettings(ctx context.Context, settings *models.StoreSettings) error
	CreateTaxRate(ctx context.Context, rate *models.TaxRate) error
	GetEnabledTaxRates(ctx context.Context) ([]models.TaxRate, error)
	CountTaxRates(ctx context.Context) (int64, error)
}

type financialRepository struct {
	db *gorm.DB
}

func NewFinancialRepository(db *gorm.DB) FinancialRepository {
	return &financialRepository{db: db}
}

// GetSettings returns ErrNotFound when the store has not been configured.
func (r *financialRepository) GetSettings(ctx context.Context) (*models.StoreSettings, error) {
	var settings models.StoreSettings
	err := r.db.WithContext(ctx).Order("id").First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &settings, nil
}

func (r *financialRepository) SaveSettings(ctx context.Context, settings *models.StoreSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}

func (r *financialRepository) CreateTaxRate(ctx context.Context, rate *models.TaxRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

func (r *financialRepository) GetEnabledTaxRates(ctx context.Context) ([]models.TaxRate, error) {
	var rates []models.TaxRate
	err := r.db.WithContext(ctx).Where("is_enabled = ?", true).Order("sort_order, id").Find(&rates).Error
	return rates, err
}

func (r *financialRepository) CountTaxRates(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TaxRate{}).Count(&count).Error
	return count, err
}
