package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"order_engine/internal/models"
	"order_engine/internal/pricing"
	"order_engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockService applies the inventory side effects of an order. Both methods
// must run inside the caller's transaction.
type StockService interface {
	ApplyDelivery(ctx context.Context, tx *gorm.DB, order *models.Order) error
	ReverseDelivery(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

type stockService struct {
	menuRepo      repository.MenuRepository
	inventoryRepo repository.InventoryRepository
	orderRepo     repository.OrderRepository
	now           func() time.Time
}

func NewStockService(menuRepo repository.MenuRepository, inventoryRepo repository.InventoryRepository, orderRepo repository.OrderRepository) StockService {
	return &stockService{
		menuRepo:      menuRepo,
		inventoryRepo: inventoryRepo,
		orderRepo:     orderRepo,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// stockPlan is everything read inside the transaction for one order.
type stockPlan struct {
	lines       []ConsolidatedLine
	menu        map[string]models.MenuItem
	required    map[string]decimal.Decimal
	ingredients map[string]models.InventoryItem
}

func (s *stockService) load(ctx context.Context, tx *gorm.DB, order *models.Order) (*stockPlan, error) {
	lines := ConsolidateItems(order.Items)
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.MenuItemID)
	}

	items, err := s.menuRepo.WithTx(tx).GetByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu items: %w", err)
	}
	menu := make(map[string]models.MenuItem, len(items))
	for _, item := range items {
		menu[item.ID] = item
	}

	required, err := ResolveIngredients(lines, menu)
	if err != nil {
		return nil, err
	}

	ingredientIDs := sortedKeys(required)
	stocked, err := s.inventoryRepo.WithTx(tx).GetByIDsForUpdate(ctx, ingredientIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load ingredients: %w", err)
	}
	ingredients := make(map[string]models.InventoryItem, len(stocked))
	for _, ing := range stocked {
		ingredients[ing.ID] = ing
	}
	for _, id := range ingredientIDs {
		if _, ok := ingredients[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrInventoryItemNotFound, id)
		}
	}

	return &stockPlan{lines: lines, menu: menu, required: required, ingredients: ingredients}, nil
}

// ApplyDelivery validates every menu item and ingredient before writing
// anything, so a shortfall leaves stock untouched.
func (s *stockService) ApplyDelivery(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	plan, err := s.load(ctx, tx, order)
	if err != nil {
		return err
	}

	var shortfalls []string
	for _, line := range plan.lines {
		item := plan.menu[line.MenuItemID]
		if item.StockQuantity != nil && *item.StockQuantity < line.Quantity {
			shortfalls = append(shortfalls, fmt.Sprintf("%s: requested %d, available %d",
				item.Name, line.Quantity, *item.StockQuantity))
		}
	}
	for _, id := range sortedKeys(plan.required) {
		ing := plan.ingredients[id]
		if ing.Quantity.LessThan(plan.required[id]) {
			shortfalls = append(shortfalls, fmt.Sprintf("%s: requires %s %s, available %s",
				ing.Name, plan.required[id], ing.Unit, ing.Quantity))
		}
	}
	if len(shortfalls) > 0 {
		return fmt.Errorf("%w: %s", ErrInsufficientStock, strings.Join(shortfalls, "; "))
	}

	menuRepo := s.menuRepo.WithTx(tx)
	var tracked []string
	for _, line := range plan.lines {
		item := plan.menu[line.MenuItemID]
		if item.StockQuantity == nil {
			continue
		}
		if err := menuRepo.UpdateStock(ctx, item.ID, *item.StockQuantity-line.Quantity); err != nil {
			return fmt.Errorf("failed to update stock for %s: %w", item.Name, err)
		}
		tracked = append(tracked, item.ID)
	}
	if err := s.orderRepo.WithTx(tx).MarkStockDeducted(ctx, order.ID, tracked); err != nil {
		return fmt.Errorf("failed to mark deducted items: %w", err)
	}
	markDeducted(order, tracked)

	history, err := s.deductIngredients(ctx, tx, order, plan)
	if err != nil {
		return err
	}

	log.Printf("Deducted stock for order %s: %d menu items, %d ingredients", order.ID, len(plan.lines), len(history))
	return nil
}

// deductIngredients moves every required ingredient down and appends one
// history record per ingredient.
func (s *stockService) deductIngredients(ctx context.Context, tx *gorm.DB, order *models.Order, plan *stockPlan) ([]models.StockHistory, error) {
	inventoryRepo := s.inventoryRepo.WithTx(tx)
	now := s.now()
	orderID := order.ID

	history := make([]models.StockHistory, 0, len(plan.required))
	for _, id := range sortedKeys(plan.required) {
		ing := plan.ingredients[id]
		required := plan.required[id]
		if err := inventoryRepo.UpdateQuantity(ctx, id, ing.Quantity.Sub(required)); err != nil {
			return nil, fmt.Errorf("failed to update ingredient %s: %w", ing.Name, err)
		}
		history = append(history, models.StockHistory{
			InventoryItemID: id,
			ItemName:        ing.Name,
			QuantityDelta:   required.Neg(),
			Reason:          "Order #" + order.ID,
			Cost:            required.Mul(ing.Price).Round(pricing.MinorUnits),
			Type:            models.StockOrder,
			OrderID:         &orderID,
			CreatedAt:       now,
		})
	}
	if err := inventoryRepo.AppendHistory(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to append stock history: %w", err)
	}
	return history, nil
}

// ReverseDelivery puts back exactly what ApplyDelivery took for the order:
// ingredients from the order's history records, menu stock only for items
// that were decremented. Current recipes and stock settings are ignored.
func (s *stockService) ReverseDelivery(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	restocked, err := s.restockMenuItems(ctx, tx, order)
	if err != nil {
		return err
	}

	history, err := s.restockIngredients(ctx, tx, order)
	if err != nil {
		return err
	}

	log.Printf("Restocked order %s: %d menu items, %d ingredients", order.ID, restocked, len(history))
	return nil
}

func (s *stockService) restockMenuItems(ctx context.Context, tx *gorm.DB, order *models.Order) (int, error) {
	deducted := make([]models.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.StockDeducted {
			deducted = append(deducted, item)
		}
	}
	lines := ConsolidateItems(deducted)
	if len(lines) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.MenuItemID)
	}
	menuRepo := s.menuRepo.WithTx(tx)
	items, err := menuRepo.GetByIDsForUpdate(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to load menu items: %w", err)
	}
	menu := make(map[string]models.MenuItem, len(items))
	for _, item := range items {
		menu[item.ID] = item
	}

	restocked := 0
	for _, line := range lines {
		item, ok := menu[line.MenuItemID]
		if !ok {
			log.Printf("Menu item %s of order %s no longer exists, not restocked", line.MenuItemID, order.ID)
			continue
		}
		if item.StockQuantity == nil {
			continue
		}
		if err := menuRepo.UpdateStock(ctx, item.ID, *item.StockQuantity+line.Quantity); err != nil {
			return 0, fmt.Errorf("failed to restock %s: %w", item.Name, err)
		}
		restocked++
	}
	return restocked, nil
}

func (s *stockService) restockIngredients(ctx context.Context, tx *gorm.DB, order *models.Order) ([]models.StockHistory, error) {
	inventoryRepo := s.inventoryRepo.WithTx(tx)
	records, err := inventoryRepo.GetHistoryByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock history: %w", err)
	}

	taken := make(map[string]models.StockHistory)
	for _, r := range records {
		if r.Type != models.StockOrder {
			continue
		}
		if prev, ok := taken[r.InventoryItemID]; ok {
			r.QuantityDelta = r.QuantityDelta.Add(prev.QuantityDelta)
			r.Cost = r.Cost.Add(prev.Cost)
		}
		taken[r.InventoryItemID] = r
	}
	if len(taken) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(taken))
	for id := range taken {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	stocked, err := inventoryRepo.GetByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load ingredients: %w", err)
	}
	current := make(map[string]models.InventoryItem, len(stocked))
	for _, ing := range stocked {
		current[ing.ID] = ing
	}

	now := s.now()
	orderID := order.ID
	history := make([]models.StockHistory, 0, len(ids))
	for _, id := range ids {
		ing, ok := current[id]
		if !ok {
			log.Printf("Ingredient %s of order %s no longer exists, not restocked", id, order.ID)
			continue
		}
		amount := taken[id].QuantityDelta.Neg()
		if err := inventoryRepo.UpdateQuantity(ctx, id, ing.Quantity.Add(amount)); err != nil {
			return nil, fmt.Errorf("failed to update ingredient %s: %w", ing.Name, err)
		}
		history = append(history, models.StockHistory{
			InventoryItemID: id,
			ItemName:        ing.Name,
			QuantityDelta:   amount,
			Reason:          "Order #" + order.ID + " reversed after delivery",
			Cost:            taken[id].Cost,
			Type:            models.StockReversal,
			OrderID:         &orderID,
			CreatedAt:       now,
		})
	}
	if err := inventoryRepo.AppendHistory(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to append stock history: %w", err)
	}
	return history, nil
}

func markDeducted(order *models.Order, menuItemIDs []string) {
	set := make(map[string]bool, len(menuItemIDs))
	for _, id := range menuItemIDs {
		set[id] = true
	}
	for i := range order.Items {
		if set[order.Items[i].BaseProductID] {
			order.Items[i].StockDeducted = true
		}
	}
}
