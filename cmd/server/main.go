package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"order_engine/internal/config"
	"order_engine/internal/database"
	"order_engine/internal/events"
	"order_engine/internal/handlers"
	"order_engine/internal/migrations"
	"order_engine/internal/redis"
	"order_engine/internal/repository"
	"order_engine/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if cfg.SeedDefaults {
		if err := migrations.SeedDefaults(ctx, db, cfg.Orders); err != nil {
			log.Fatal("Failed to seed defaults:", err)
		}
	}

	// Initialize Redis
	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	// Order events always go to Redis for the live feed, and to RabbitMQ when configured
	publisher := events.MultiPublisher{redisClient}
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		defer rabbit.Close()
		publisher = append(publisher, rabbit)
	} else {
		log.Println("RABBITMQ_URL not set, order events go to Redis only")
	}
	if cfg.StaffTokenHash == "" {
		log.Println("Warning: STAFF_TOKEN_HASH not set, staff endpoints are unreachable")
	}

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(db)
	menuRepo := repository.NewMenuRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	financialRepo := repository.NewFinancialRepository(db)

	// Initialize services
	ledgerService := services.NewLedgerService(ledgerRepo)
	inventoryService := services.NewInventoryService(db, inventoryRepo, ledgerService, cfg.Orders.TxMaxAttempts)
	orderService := services.NewOrderService(
		db,
		orderRepo,
		services.NewSettingsLoader(financialRepo, cfg.Orders),
		services.NewRateLimiter(redisClient),
		services.NewStockService(menuRepo, inventoryRepo, orderRepo),
		ledgerService,
		services.OrderServiceOptions{
			Publisher:                 publisher,
			Subscriber:                redisClient,
			ReverseOnCorrectiveCancel: cfg.Orders.ReverseOnCorrectiveCancel,
			TxMaxAttempts:             cfg.Orders.TxMaxAttempts,
		},
	)

	// Setup routes
	router := gin.Default()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Fatal("Invalid TRUSTED_PROXIES:", err)
	}
	handlers.NewAPIHandler(orderService, ledgerService, inventoryService).
		Register(router, handlers.IdentityMiddleware(cfg.StaffTokenHash))

	server := &http.Server{Addr: ":" + cfg.ServerPort, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Failed to start server:", err)
	}
	log.Println("Server stopped")
}
