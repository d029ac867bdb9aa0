package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"order_engine/internal/models"
	"order_engine/internal/pricing"
	"order_engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryService covers ingredient stocking outside of order fulfillment.
// Every quantity change is mirrored in stock history and the ledger.
type InventoryService interface {
	CreateItem(ctx context.Context, item *models.InventoryItem) error
	AdjustStock(ctx context.Context, itemID string, delta decimal.Decimal, reason string) (*models.InventoryItem, error)
	History(ctx context.Context, itemID string) ([]models.StockHistory, error)
}

type inventoryService struct {
	db            *gorm.DB
	inventoryRepo repository.InventoryRepository
	ledger        LedgerService
	maxAttempts   int
	now           func() time.Time
}

func NewInventoryService(db *gorm.DB, inventoryRepo repository.InventoryRepository, ledger LedgerService, txMaxAttempts int) InventoryService {
	return &inventoryService{
		db:            db,
		inventoryRepo: inventoryRepo,
		ledger:        ledger,
		maxAttempts:   txMaxAttempts,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *inventoryService) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return validationError("name is required")
	}
	if item.Quantity.IsNegative() {
		return validationError("quantity must not be negative")
	}
	if item.Price.IsNegative() {
		return validationError("price must not be negative")
	}
	item.Quantity = item.Quantity.Round(QuantityScale)

	err := repository.WithTransaction(ctx, s.db, s.maxAttempts, func(tx *gorm.DB) error {
		item.ID = ""
		if err := s.inventoryRepo.WithTx(tx).Create(ctx, item); err != nil {
			return fmt.Errorf("failed to create inventory item: %w", err)
		}
		if !item.Quantity.IsPositive() {
			return nil
		}
		if err := s.appendManual(ctx, tx, item, item.Quantity, "Initial stock"); err != nil {
			return err
		}
		return s.ledger.PostInventoryCost(ctx, tx, item, item.Quantity, item.Price)
	})
	if err != nil {
		return err
	}

	log.Printf("Inventory item %s (%s) created with %s %s", item.ID, item.Name, item.Quantity, item.Unit)
	return nil
}

// AdjustStock never lets the quantity on hand drop below zero.
func (s *inventoryService) AdjustStock(ctx context.Context, itemID string, delta decimal.Decimal, reason string) (*models.InventoryItem, error) {
	delta = delta.Round(QuantityScale)
	if delta.IsZero() {
		return nil, validationError("adjustment must not be zero")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Manual adjustment"
	}

	var item *models.InventoryItem
	err := repository.WithTransaction(ctx, s.db, s.maxAttempts, func(tx *gorm.DB) error {
		repo := s.inventoryRepo.WithTx(tx)
		items, err := repo.GetByIDsForUpdate(ctx, []string{itemID})
		if err != nil {
			return fmt.Errorf("failed to load inventory item: %w", err)
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: %s", ErrInventoryItemNotFound, itemID)
		}
		item = &items[0]

		next := item.Quantity.Add(delta)
		if next.IsNegative() {
			return fmt.Errorf("%w: %s: requires %s %s, available %s",
				ErrInsufficientStock, item.Name, delta.Abs(), item.Unit, item.Quantity)
		}
		if err := repo.UpdateQuantity(ctx, item.ID, next); err != nil {
			return fmt.Errorf("failed to update inventory item: %w", err)
		}
		item.Quantity = next

		if err := s.appendManual(ctx, tx, item, delta, reason); err != nil {
			return err
		}
		return s.ledger.PostInventoryCost(ctx, tx, item, delta, item.Price)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Inventory item %s adjusted by %s (%s)", item.ID, delta, reason)
	return item, nil
}

func (s *inventoryService) appendManual(ctx context.Context, tx *gorm.DB, item *models.InventoryItem, delta decimal.Decimal, reason string) error {
	record := models.StockHistory{
		InventoryItemID: item.ID,
		ItemName:        item.Name,
		QuantityDelta:   delta,
		Reason:          reason,
		Cost:            delta.Abs().Mul(item.Price).Round(pricing.MinorUnits),
		Type:            models.StockManual,
		CreatedAt:       s.now(),
	}
	if err := s.inventoryRepo.WithTx(tx).AppendHistory(ctx, []models.StockHistory{record}); err != nil {
		return fmt.Errorf("failed to append stock history: %w", err)
	}
	return nil
}

func (s *inventoryService) History(ctx context.Context, itemID string) ([]models.StockHistory, error) {
	if _, err := s.inventoryRepo.GetByID(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInventoryItemNotFound, itemID)
		}
		return nil, err
	}
	return s.inventoryRepo.GetHistory(ctx, itemID)
}
