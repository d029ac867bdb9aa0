package repository

import (
	"context"
	"errors"
	"time"

	"order_engine/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrNoRowsChanged = errors.New("no rows changed")
)

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Order, error)
	Query(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	TransitionStatus(ctx context.Context, id string, from, to models.OrderStatus) error
	SetRating(ctx context.Context, id string, rating int, feedback string) error
	MarkStockDeducted(ctx context.Context, orderID string, baseProductIDs []string) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepository{db: tx}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *orderRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return r.get(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *orderRepository) get(db *gorm.DB, id string) (*models.Order, error) {
	var order models.Order
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Taxes", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Query(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	q := r.db.WithContext(ctx).Preload("Items").Preload("Taxes")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		q = q.Where("created_at >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		q = q.Where("created_at <= ?", filter.DateTo.UTC())
	}
	err := q.Order("created_at desc").Find(&orders).Error
	return orders, err
}

// TransitionStatus only updates the row when it is still in status from.
func (r *orderRepository) TransitionStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsChanged
	}
	return nil
}

// SetRating writes the rating once; a second write changes no rows.
func (r *orderRepository) SetRating(ctx context.Context, id string, rating int, feedback string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND rating IS NULL AND status IN ?", id, []string{string(models.OrderDelivered), string(models.OrderCancelled)}).
		Updates(map[string]interface{}{
			"rating":     rating,
			"feedback":   feedback,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsChanged
	}
	return nil
}

// MarkStockDeducted flags the order lines whose menu stock was decremented.
func (r *orderRepository) MarkStockDeducted(ctx context.Context, orderID string, baseProductIDs []string) error {
	if len(baseProductIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("order_id = ? AND base_product_id IN ?", orderID, baseProductIDs).
		Update("stock_deducted", true).Error
}
