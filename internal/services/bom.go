package services

import (
	"fmt"
	"sort"

	"order_engine/internal/models"

	"github.com/shopspring/decimal"
)

// QuantityScale is the precision kept for ingredient quantities.
const QuantityScale = 4

// ConsolidatedLine is the total ordered quantity of one base menu item.
type ConsolidatedLine struct {
	MenuItemID string
	Name       string
	Quantity   int
}

// ConsolidateItems sums quantities per base product, keeping first-seen order.
// Variants of the same product share one BaseProductID.
func ConsolidateItems(items []models.OrderItem) []ConsolidatedLine {
	index := make(map[string]int)
	var lines []ConsolidatedLine
	for _, item := range items {
		base := item.BaseProductID
		if base == "" {
			base = item.ProductID
		}
		if i, ok := index[base]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[base] = len(lines)
		lines = append(lines, ConsolidatedLine{MenuItemID: base, Name: item.Name, Quantity: item.Quantity})
	}
	return lines
}

// ResolveIngredients turns consolidated menu quantities into the total amount
// of every ingredient they consume. Requirements from different menu items that
// share an ingredient are summed before any stock check.
func ResolveIngredients(lines []ConsolidatedLine, menu map[string]models.MenuItem) (map[string]decimal.Decimal, error) {
	required := make(map[string]decimal.Decimal)
	for _, line := range lines {
		item, ok := menu[line.MenuItemID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMenuItemNotFound, line.MenuItemID)
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		for _, conn := range item.Connections {
			if !conn.Ratio.IsPositive() {
				return nil, fmt.Errorf("%w: %s -> %s has ratio %s", ErrInvalidConnection, item.Name, conn.InventoryItemID, conn.Ratio)
			}
			required[conn.InventoryItemID] = required[conn.InventoryItemID].Add(qty.Div(conn.Ratio))
		}
	}
	for id, q := range required {
		required[id] = q.Round(QuantityScale)
	}
	return required, nil
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
