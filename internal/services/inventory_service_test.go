package services

import (
	"context"
	"testing"

	"order_engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateItemPostsInitialCost(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	item := &models.InventoryItem{Name: "Rice", Quantity: dec("20"), Price: dec("1.5"), Unit: "kg"}
	require.NoError(t, f.inventory.CreateItem(ctx, item))
	require.NotEmpty(t, item.ID)

	history, err := f.inventory.History(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StockManual, history[0].Type)
	assert.True(t, dec("30").Equal(history[0].Cost))

	entries, err := f.ledgerRepo.GetByReference(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.SourceInventory, entries[0].Source)
	assert.True(t, dec("30").Equal(entries[0].Debit))
	assert.True(t, dec("-30").Equal(entries[0].Gross))
}

func TestCreateItemWithoutStockPostsNothing(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	item := &models.InventoryItem{Name: "Salt", Price: dec("1"), Unit: "kg"}
	require.NoError(t, f.inventory.CreateItem(ctx, item))

	entries, err := f.ledgerRepo.GetByReference(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, f.inventory.CreateItem(ctx, &models.InventoryItem{Name: ""}), ErrValidation)
	assert.ErrorIs(t, f.inventory.CreateItem(ctx, &models.InventoryItem{Name: "Oil", Quantity: dec("-1")}), ErrValidation)
}

func TestAdjustStock(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	flour := f.ingredient(t, "Flour", "5", "2")

	item, err := f.inventory.AdjustStock(ctx, flour.ID, dec("3"), "Delivery from mill")
	require.NoError(t, err)
	assert.True(t, dec("8").Equal(item.Quantity))

	item, err = f.inventory.AdjustStock(ctx, flour.ID, dec("-2"), "")
	require.NoError(t, err)
	assert.True(t, dec("6").Equal(item.Quantity))
	assert.True(t, dec("6").Equal(f.quantityOf(t, flour.ID)))

	history, err := f.inventory.History(ctx, flour.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Manual adjustment", history[0].Reason)
	assert.Equal(t, "Delivery from mill", history[1].Reason)

	entries, err := f.ledgerRepo.GetByReference(ctx, flour.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestAdjustStockNeverGoesNegative(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	flour := f.ingredient(t, "Flour", "1", "2")

	_, err := f.inventory.AdjustStock(ctx, flour.ID, dec("-2"), "spill")
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.True(t, dec("1").Equal(f.quantityOf(t, flour.ID)))

	entries, err := f.ledgerRepo.GetByReference(ctx, flour.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = f.inventory.AdjustStock(ctx, flour.ID, dec("0"), "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.inventory.AdjustStock(ctx, "missing", dec("1"), "")
	assert.ErrorIs(t, err, ErrInventoryItemNotFound)
	_, err = f.inventory.History(ctx, "missing")
	assert.ErrorIs(t, err, ErrInventoryItemNotFound)
}
