package handlers

import (
	"io"
	"log"
	"net/http"

	"order_engine/internal/events"
	"order_engine/internal/models"
	"order_engine/internal/pricing"
	"order_engine/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	orderService services.OrderService
}

func NewOrderHandler(orderService services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

type CreateOrderRequest struct {
	Items         []services.CartLine `json:"items"`
	Customer      services.Customer   `json:"customer"`
	DiningMode    models.DiningMode   `json:"dining_mode"`
	PaymentMethod *string             `json:"payment_method"`
	TipPercentage *decimal.Decimal    `json:"tip_percentage"`
	TipAmount     *decimal.Decimal    `json:"tip_amount"`
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

type RatingRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	input := services.CreateOrderInput{
		Cart:          req.Items,
		Customer:      req.Customer,
		DiningMode:    req.DiningMode,
		PaymentMethod: req.PaymentMethod,
		Caller:        callerFrom(c),
	}
	if req.TipPercentage != nil || req.TipAmount != nil {
		input.Tip = &pricing.Tip{Percentage: req.TipPercentage, Amount: req.TipAmount}
	}

	id, err := h.orderService.CreateOrder(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter := models.OrderFilter{Status: models.OrderStatus(c.Query("status"))}
	if v := c.Query("date_from"); v != "" {
		from, err := parseDate(v, false)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_from format. Use YYYY-MM-DD"})
			return
		}
		filter.DateFrom = &from
	}
	if v := c.Query("date_to"); v != "" {
		to, err := parseDate(v, true)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_to format. Use YYYY-MM-DD"})
			return
		}
		filter.DateTo = &to
	}

	orders, err := h.orderService.QueryOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	order, err := h.orderService.CancelOrder(c.Request.Context(), c.Param("id"), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) AttachRating(c *gin.Context) {
	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	order, err := h.orderService.AttachRating(c.Request.Context(), c.Param("id"), req.Rating, req.Feedback)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// StreamOrders pushes order changes as server-sent events until the client
// goes away. Events are hints; clients re-read the order for its state.
func (h *OrderHandler) StreamOrders(c *gin.Context) {
	ctx := c.Request.Context()
	changes := make(chan events.OrderEvent, 32)
	failures := make(chan error, 1)

	unsubscribe, err := h.orderService.SubscribeToOrders(ctx,
		func(e events.OrderEvent) {
			select {
			case changes <- e:
			default:
				log.Printf("Order stream is slow, dropped %s for order %s", e.Type, e.OrderID)
			}
		},
		func(err error) {
			select {
			case failures <- err:
			default:
			}
		})
	if err != nil {
		log.Printf("Failed to open order stream: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Order stream unavailable"})
		return
	}
	defer unsubscribe()

	c.Stream(func(w io.Writer) bool {
		select {
		case e := <-changes:
			c.SSEvent(string(e.Type), e)
			return true
		case err := <-failures:
			c.SSEvent("error", gin.H{"error": err.Error()})
			return true
		case <-ctx.Done():
			return false
		}
	})
}
