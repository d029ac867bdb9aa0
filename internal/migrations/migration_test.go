package migrations

import (
	"context"
	"testing"

	"order_engine/internal/config"
	"order_engine/internal/database"
	"order_engine/internal/models"
	"order_engine/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Initialize("sqlite://file:"+uuid.NewString()+"?mode=memory&cache=shared", "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, RunMigrations(db, true))
	defaults := config.OrderDefaults{AnonymousMaxOrders: 4, AnonymousWindowHours: 2}
	require.NoError(t, SeedDefaults(ctx, db, defaults))
	require.NoError(t, SeedDefaults(ctx, db, defaults))

	repo := repository.NewFinancialRepository(db)
	settings, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.RateLimitEnabled)
	assert.Equal(t, 4, settings.AnonymousMaxOrders)
	assert.Equal(t, 2, settings.AnonymousWindowHours)

	count, err := repo.CountTaxRates(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	var rows int64
	require.NoError(t, db.Model(&models.StoreSettings{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}
