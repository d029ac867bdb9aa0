package services

import (
	"testing"

	"order_engine/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolidateItems(t *testing.T) {
	lines := ConsolidateItems([]models.OrderItem{
		{ProductID: "latte-s", BaseProductID: "latte", Name: "Latte", Quantity: 1},
		{ProductID: "bagel", Name: "Bagel", Quantity: 2},
		{ProductID: "latte-l", BaseProductID: "latte", Name: "Latte", Quantity: 3},
	})

	assert.Equal(t, []ConsolidatedLine{
		{MenuItemID: "latte", Name: "Latte", Quantity: 4},
		{MenuItemID: "bagel", Name: "Bagel", Quantity: 2},
	}, lines)
}

func TestResolveIngredientsSumsSharedIngredients(t *testing.T) {
	menu := map[string]models.MenuItem{
		"burger": {ID: "burger", Connections: []models.MenuItemConnection{
			{InventoryItemID: "flour", Ratio: dec("2")},
			{InventoryItemID: "beef", Ratio: dec("1")},
		}},
		"pizza": {ID: "pizza", Connections: []models.MenuItemConnection{
			{InventoryItemID: "flour", Ratio: dec("4")},
		}},
	}

	required, err := ResolveIngredients([]ConsolidatedLine{
		{MenuItemID: "burger", Quantity: 4},
		{MenuItemID: "pizza", Quantity: 8},
	}, menu)
	require.NoError(t, err)

	require.Len(t, required, 2)
	assert.True(t, dec("4").Equal(required["flour"]), required["flour"].String())
	assert.True(t, dec("4").Equal(required["beef"]))
}

func TestResolveIngredientsRoundsFractions(t *testing.T) {
	menu := map[string]models.MenuItem{
		"tea": {ID: "tea", Connections: []models.MenuItemConnection{{InventoryItemID: "leaves", Ratio: dec("3")}}},
	}
	required, err := ResolveIngredients([]ConsolidatedLine{{MenuItemID: "tea", Quantity: 1}}, menu)
	require.NoError(t, err)
	assert.True(t, dec("0.3333").Equal(required["leaves"]))
}

func TestResolveIngredientsErrors(t *testing.T) {
	_, err := ResolveIngredients([]ConsolidatedLine{{MenuItemID: "ghost", Quantity: 1}}, nil)
	assert.ErrorIs(t, err, ErrMenuItemNotFound)

	menu := map[string]models.MenuItem{
		"soup": {ID: "soup", Name: "Soup", Connections: []models.MenuItemConnection{{InventoryItemID: "stock", Ratio: decimal.Zero}}},
	}
	_, err = ResolveIngredients([]ConsolidatedLine{{MenuItemID: "soup", Quantity: 1}}, menu)
	assert.ErrorIs(t, err, ErrInvalidConnection)
}
