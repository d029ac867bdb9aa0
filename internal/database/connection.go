package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	"order_engine/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// Initialize connects and migrates. A sqlite:// URL opens an embedded SQLite
// database, which is what tests and local demos use; anything else is
// treated as a Postgres DSN.
func Initialize(databaseURL, logLevel string) (*gorm.DB, error) {
	// Configure GORM
	config := &gorm.Config{
		Logger:  logger.Default.LogMode(parseLogLevel(logLevel)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	// Connect to database
	db, err := gorm.Open(dialector(databaseURL), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if strings.HasPrefix(databaseURL, sqlitePrefix) {
		// SQLite allows one writer; a single connection keeps transactions serial.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// Auto migrate all models
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("Database connected and migrated successfully")
	return db, nil
}

func dialector(databaseURL string) gorm.Dialector {
	if strings.HasPrefix(databaseURL, sqlitePrefix) {
		return sqlite.Open(strings.TrimPrefix(databaseURL, sqlitePrefix))
	}
	return postgres.Open(databaseURL)
}

// Models lists every table owned or touched by the order engine.
func Models() []interface{} {
	return []interface{}{
		&models.Order{},
		&models.OrderItem{},
		&models.OrderTax{},
		&models.MenuItem{},
		&models.MenuItemConnection{},
		&models.InventoryItem{},
		&models.StockHistory{},
		&models.Transaction{},
		&models.TaxRate{},
		&models.StoreSettings{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
