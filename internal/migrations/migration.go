package migrations

import (
	"context"
	"errors"
	"fmt"
	"log"

	"order_engine/internal/config"
	"order_engine/internal/database"
	"order_engine/internal/models"
	"order_engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RunMigrations brings the schema up to date. With reset, every table is
// dropped first; that wipes orders and the ledger and is meant for local
// setups only.
func RunMigrations(db *gorm.DB, reset bool) error {
	log.Println("Running database migrations...")

	if reset {
		log.Println("Dropping existing tables...")
		if err := db.Migrator().DropTable(database.Models()...); err != nil {
			log.Printf("Warning: Error dropping tables: %v", err)
		}
	}

	log.Println("Creating tables...")
	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	log.Println("Database migrations completed successfully!")
	return nil
}

// SeedDefaults creates the store settings row and a default tax rate when
// they are missing. Existing data is never touched.
func SeedDefaults(ctx context.Context, db *gorm.DB, defaults config.OrderDefaults) error {
	financialRepo := repository.NewFinancialRepository(db)

	_, err := financialRepo.GetSettings(ctx)
	switch {
	case err == nil:
		log.Println("Store settings already exist")
	case errors.Is(err, repository.ErrNotFound):
		log.Println("Creating default store settings...")
		settings := &models.StoreSettings{
			RateLimitEnabled:     true,
			AnonymousMaxOrders:   defaults.AnonymousMaxOrders,
			AnonymousWindowHours: defaults.AnonymousWindowHours,
			PricesIncludeTax:     defaults.PricesIncludeTax,
		}
		if err := financialRepo.SaveSettings(ctx, settings); err != nil {
			return fmt.Errorf("failed to create store settings: %w", err)
		}
	default:
		return fmt.Errorf("failed to get store settings: %w", err)
	}

	count, err := financialRepo.CountTaxRates(ctx)
	if err != nil {
		return fmt.Errorf("failed to count tax rates: %w", err)
	}
	if count > 0 {
		return nil
	}

	log.Println("Creating default tax rate...")
	taxRate := &models.TaxRate{
		Name:      "Sales tax",
		Rate:      decimal.NewFromInt(10),
		AppliesTo: "all",
		SortOrder: 1,
		IsEnabled: true,
	}
	if err := financialRepo.CreateTaxRate(ctx, taxRate); err != nil {
		return fmt.Errorf("failed to create default tax rate: %w", err)
	}
	return nil
}
