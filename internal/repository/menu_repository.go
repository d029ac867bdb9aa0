package repository

import (
	"context"
	"errors"

	"order_engine/internal/models"

	"gorm.io/gorm"
)

// MenuRepository is the narrow view of the menu subsystem the order engine
// needs: reading price/stock/connections and writing stock.
type MenuRepository interface {
	WithTx(tx *gorm.DB) MenuRepository
	Create(ctx context.Context, item *models.MenuItem) error
	GetByID(ctx context.Context, id string) (*models.MenuItem, error)
	GetByIDsForUpdate(ctx context.Context, ids []string) ([]models.MenuItem, error)
	UpdateStock(ctx context.Context, id string, stock int) error
}

type menuRepository struct {
	db *gorm.DB
}

func NewMenuRepository(db *gorm.DB) MenuRepository {
	return &menuRepository{db: db}
}

func (r *menuRepository) WithTx(tx *gorm.DB) MenuRepository {
	return &menuRepository{db: tx}
}

func (r *menuRepository) Create(ctx context.Context, item *models.MenuItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *menuRepository) GetByID(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := r.db.WithContext(ctx).Preload("Connections").Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *menuRepository) GetByIDsForUpdate(ctx context.Context, ids []string) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if len(ids) == 0 {
		return items, nil
	}
	err := forUpdate(r.db.WithContext(ctx)).
		Preload("Connections").
		Where("id IN ?", ids).
		Order("id").
		Find(&items).Error
	return items, err
}

func (r *menuRepository) UpdateStock(ctx context.Context, id string, stock int) error {
	return r.db.WithContext(ctx).Model(&models.MenuItem{}).Where("id = ?", id).Update("stock_quantity", stock).Error
}
