package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"order_engine/internal/config"
	"order_engine/internal/database"
	"order_engine/internal/migrations"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	fmt.Println("Initializing database...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Force recreate all tables
	if err := migrations.RunMigrations(db, true); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	fmt.Println("Creating default store settings...")
	if err := migrations.SeedDefaults(context.Background(), db, cfg.Orders); err != nil {
		log.Fatal("Failed to seed defaults:", err)
	}

	if token := os.Getenv("STAFF_TOKEN"); token != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("Failed to hash staff token:", err)
		}
		fmt.Println("Add this to your environment:")
		fmt.Printf("STAFF_TOKEN_HASH=%s\n", hash)
	}

	fmt.Println("Database initialization completed successfully!")
}
