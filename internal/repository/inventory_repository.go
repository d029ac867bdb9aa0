package repository

import (
	"context"
	"errors"

	"order_engine/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InventoryRepository interface {
	WithTx(tx *gorm.DB) InventoryRepository
	Create(ctx context.Context, item *models.InventoryItem) error
	GetByID(ctx context.Context, id string) (*models.InventoryItem, error)
	GetByIDsForUpdate(ctx context.Context, ids []string) ([]models.InventoryItem, error)
	UpdateQuantity(ctx context.Context, id string, quantity decimal.Decimal) error
	AppendHistory(ctx context.Context, records []models.StockHistory) error
	GetHistory(ctx context.Context, itemID string) ([]models.StockHistory, error)
	GetHistoryByOrder(ctx context.Context, orderID string) ([]models.StockHistory, error)
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) WithTx(tx *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: tx}
}

func (r *inventoryRepository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *inventoryRepository) GetByID(ctx context.Context, id string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) GetByIDsForUpdate(ctx context.Context, ids []string) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if len(ids) == 0 {
		return items, nil
	}
	err := forUpdate(r.db.WithContext(ctx)).Where("id IN ?", ids).Order("id").Find(&items).Error
	return items, err
}

func (r *inventoryRepository) UpdateQuantity(ctx context.Context, id string, quantity decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.InventoryItem{}).Where("id = ?", id).Update("quantity", quantity).Error
}

// AppendHistory only ever inserts; history rows are immutable.
func (r *inventoryRepository) AppendHistory(ctx context.Context, records []models.StockHistory) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *inventoryRepository) GetHistory(ctx context.Context, itemID string) ([]models.StockHistory, error) {
	var history []models.StockHistory
	err := r.db.WithContext(ctx).Where("inventory_item_id = ?", itemID).Order("created_at desc, id desc").Find(&history).Error
	return history, err
}

func (r *inventoryRepository) GetHistoryByOrder(ctx context.Context, orderID string) ([]models.StockHistory, error) {
	var history []models.StockHistory
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id").Find(&history).Error
	return history, err
}
