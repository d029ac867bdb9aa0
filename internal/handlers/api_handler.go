package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"order_engine/internal/services"

	"github.com/gin-gonic/gin"
)

// APIHandler bundles every HTTP handler of the order engine.
type APIHandler struct {
	Orders    *OrderHandler
	Ledger    *LedgerHandler
	Inventory *InventoryHandler
}

func NewAPIHandler(
	orderService services.OrderService,
	ledgerService services.LedgerService,
	inventoryService services.InventoryService,
) *APIHandler {
	return &APIHandler{
		Orders:    NewOrderHandler(orderService),
		Ledger:    NewLedgerHandler(ledgerService),
		Inventory: NewInventoryHandler(inventoryService),
	}
}

// Register mounts all routes under /api. identity must run before any
// staff-only route.
func (h *APIHandler) Register(router *gin.Engine, identity gin.HandlerFunc) {
	api := router.Group("/api", identity)
	staff := RequireStaff()

	orders := api.Group("/orders")
	{
		orders.POST("", h.Orders.CreateOrder)
		orders.GET("", staff, h.Orders.ListOrders)
		orders.GET("/stream", staff, h.Orders.StreamOrders)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.PATCH("/:id/status", staff, h.Orders.UpdateStatus)
		orders.POST("/:id/cancel", h.Orders.CancelOrder)
		orders.POST("/:id/rating", h.Orders.AttachRating)
	}

	ledger := api.Group("/ledger", staff)
	{
		ledger.GET("", h.Ledger.ListEntries)
		ledger.GET("/summary", h.Ledger.Summary)
		ledger.POST("", h.Ledger.CreateEntry)
		ledger.PUT("/:id", h.Ledger.UpdateEntry)
		ledger.DELETE("/:id", h.Ledger.DeleteEntry)
	}

	inventory := api.Group("/inventory", staff)
	{
		inventory.POST("", h.Inventory.CreateItem)
		inventory.POST("/:id/adjust", h.Inventory.AdjustStock)
		inventory.GET("/:id/history", h.Inventory.History)
	}
}

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and hidden from the caller.
func respondError(c *gin.Context, err error) {
	var limitErr *services.RateLimitError
	switch {
	case errors.As(err, &limitErr):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": limitErr.Reason, "code": "rate_limited"})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrEntryNotFound),
		errors.Is(err, services.ErrInventoryItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrStaleOrder),
		errors.Is(err, services.ErrAlreadyRated),
		errors.Is(err, services.ErrNotRatable),
		errors.Is(err, services.ErrEntryImmutable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrMenuItemNotFound),
		errors.Is(err, services.ErrInvalidConnection):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

const dateLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD or RFC 3339. A bare date used as the end of a
// range covers the whole day.
func parseDate(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
