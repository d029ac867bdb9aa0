package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"order_engine/internal/events"
	"order_engine/internal/models"
	"order_engine/internal/pricing"
	"order_engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CartLine struct {
	ProductID     string          `json:"product_id"`
	BaseProductID string          `json:"base_product_id"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	Variant       string          `json:"variant"`
	CategoryID    string          `json:"category_id"`
	StockSnapshot *int            `json:"stock_snapshot"`
}

type Customer struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	TableNumber string `json:"table_number"`
}

// Caller is the identity behind a request. Only anonymous callers are
// rate limited.
type Caller struct {
	ID          string
	IsAnonymous bool
}

type CreateOrderInput struct {
	Cart          []CartLine
	Customer      Customer
	DiningMode    models.DiningMode
	PaymentMethod *string
	Tip           *pricing.Tip
	Caller        Caller
}

type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (string, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	QueryOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	CancelOrder(ctx context.Context, id string, caller Caller) (*models.Order, error)
	AttachRating(ctx context.Context, id string, rating int, feedback string) (*models.Order, error)
	SubscribeToOrders(ctx context.Context, onChange func(events.OrderEvent), onError func(error)) (func(), error)
}

type OrderServiceOptions struct {
	Publisher                 events.Publisher
	Subscriber                events.Subscriber
	ReverseOnCorrectiveCancel bool
	TxMaxAttempts             int
}

type orderService struct {
	db        *gorm.DB
	orderRepo repository.OrderRepository
	settings  SettingsLoader
	limiter   RateLimiter
	stock     StockService
	ledger    LedgerService
	opts      OrderServiceOptions
}

func NewOrderService(db *gorm.DB, orderRepo repository.OrderRepository, settings SettingsLoader, limiter RateLimiter, stock StockService, ledger LedgerService, opts OrderServiceOptions) OrderService {
	if opts.TxMaxAttempts < 1 {
		opts.TxMaxAttempts = 1
	}
	return &orderService{
		db:        db,
		orderRepo: orderRepo,
		settings:  settings,
		limiter:   limiter,
		stock:     stock,
		ledger:    ledger,
		opts:      opts,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (string, error) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return "", err
	}

	// The quota is checked before anything else about the request.
	if input.Caller.IsAnonymous && settings.RateLimitEnabled {
		if strings.TrimSpace(input.Caller.ID) == "" {
			return "", validationError("anonymous orders require a caller identity")
		}
		if err := s.limiter.CheckAndConsume(ctx, input.Caller.ID, settings.AnonymousMaxOrders, settings.AnonymousWindow); err != nil {
			return "", err
		}
	}

	if err := validateOrderInput(input); err != nil {
		return "", err
	}

	lines := make([]pricing.Line, 0, len(input.Cart))
	for _, l := range input.Cart {
		lines = append(lines, pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity, CategoryID: l.CategoryID})
	}
	breakdown, err := pricing.Calculate(lines, settings.TaxRates, pricing.Options{
		PricesIncludeTax: settings.PricesIncludeTax,
		Tip:              input.Tip,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	order := buildOrder(input, breakdown)
	err = repository.WithTransaction(ctx, s.db, s.opts.TxMaxAttempts, func(tx *gorm.DB) error {
		order.ID = ""
		return s.orderRepo.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}

	log.Printf("Order %s created: %d lines, total %s", order.ID, len(order.Items), order.Total.StringFixed(pricing.MinorUnits))
	s.publish(ctx, events.OrderCreated, order, "")
	return order.ID, nil
}

func validateOrderInput(input CreateOrderInput) error {
	if len(input.Cart) == 0 {
		return validationError("cart is empty")
	}
	for i, l := range input.Cart {
		if strings.TrimSpace(l.ProductID) == "" {
			return validationError("line %d: product id is required", i+1)
		}
		if l.Variant != "" && strings.TrimSpace(l.BaseProductID) == "" {
			return validationError("line %d: variant %q needs a base product id", i+1, l.Variant)
		}
		if l.Quantity <= 0 {
			return validationError("line %d: quantity must be positive", i+1)
		}
		if l.UnitPrice.IsNegative() {
			return validationError("line %d: price must not be negative", i+1)
		}
		if l.StockSnapshot != nil && l.Quantity > *l.StockSnapshot {
			return validationError("line %d: only %d of %s left", i+1, *l.StockSnapshot, l.Name)
		}
	}
	if strings.TrimSpace(input.Customer.Name) == "" {
		return validationError("customer name is required")
	}
	if strings.TrimSpace(input.Customer.Phone) == "" {
		return validationError("customer phone is required")
	}
	switch input.DiningMode {
	case models.DineIn:
	case models.Delivery:
		if strings.TrimSpace(input.Customer.Address) == "" {
			return validationError("delivery orders require an address")
		}
	default:
		return validationError("unknown dining mode %q", input.DiningMode)
	}
	return nil
}

func buildOrder(input CreateOrderInput, b pricing.Breakdown) *models.Order {
	order := &models.Order{
		Status:        models.OrderPending,
		CustomerName:  strings.TrimSpace(input.Customer.Name),
		CustomerPhone: strings.TrimSpace(input.Customer.Phone),
		CustomerEmail: strings.TrimSpace(input.Customer.Email),
		Address:       strings.TrimSpace(input.Customer.Address),
		TableNumber:   strings.TrimSpace(input.Customer.TableNumber),
		DiningMode:    input.DiningMode,
		Subtotal:      b.Subtotal,
		TaxTotal:      b.TaxTotal,
		TipAmount:     b.Tip,
		TipPercentage: b.TipPercentage,
		Total:         b.Total,
		PaymentMethod: input.PaymentMethod,
	}
	if input.Caller.IsAnonymous {
		order.AnonymousID = input.Caller.ID
	}
	for _, l := range input.Cart {
		base := l.BaseProductID
		if base == "" {
			base = l.ProductID
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID:     l.ProductID,
			BaseProductID: base,
			Name:          l.Name,
			UnitPrice:     l.UnitPrice,
			Quantity:      l.Quantity,
			Variant:       l.Variant,
			CategoryID:    l.CategoryID,
			StockSnapshot: l.StockSnapshot,
		})
	}
	for _, t := range b.Taxes {
		order.Taxes = append(order.Taxes, models.OrderTax{
			TaxRateID: t.RateID,
			Name:      t.Name,
			Rate:      t.Rate,
			Amount:    t.Amount,
		})
	}
	return order
}

func (s *orderService) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (s *orderService) QueryOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationError("unknown status %q", filter.Status)
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, validationError("dateTo must not be before dateFrom")
	}
	orders, err := s.orderRepo.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order along its lifecycle. The first transition into
// delivered deducts stock and posts revenue in the same transaction as the
// status write; any failure leaves the order where it was.
func (s *orderService) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, validationError("unknown status %q", status)
	}

	var (
		order    *models.Order
		previous models.OrderStatus
	)
	err := repository.WithTransaction(ctx, s.db, s.opts.TxMaxAttempts, func(tx *gorm.DB) error {
		var err error
		order, err = s.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		previous = order.Status
		if !previous.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, previous, status)
		}
		if err := s.transition(ctx, tx, order, status); err != nil {
			return err
		}

		switch {
		case status == models.OrderDelivered:
			if err := s.stock.ApplyDelivery(ctx, tx, order); err != nil {
				return err
			}
			if err := s.ledger.PostOrderRevenue(ctx, tx, order); err != nil {
				return err
			}
		case previous == models.OrderDelivered && status == models.OrderCancelled:
			if !s.opts.ReverseOnCorrectiveCancel {
				log.Printf("Order %s cancelled after delivery; stock and ledger left as posted", order.ID)
				return nil
			}
			if err := s.stock.ReverseDelivery(ctx, tx, order); err != nil {
				return err
			}
			if err := s.ledger.PostOrderReversal(ctx, tx, order); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Order %s status changed: %s -> %s", order.ID, previous, status)
	s.publish(ctx, events.OrderStatusChanged, order, previous)
	return order, nil
}

// CancelOrder is the customer facing cancellation and only applies to orders
// that have not entered preparation. Anonymous callers may only cancel their
// own orders.
func (s *orderService) CancelOrder(ctx context.Context, id string, caller Caller) (*models.Order, error) {
	var order *models.Order
	err := repository.WithTransaction(ctx, s.db, s.opts.TxMaxAttempts, func(tx *gorm.DB) error {
		var err error
		order, err = s.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if caller.IsAnonymous && order.AnonymousID != caller.ID {
			return ErrOrderNotFound
		}
		if order.Status != models.OrderPending {
			return fmt.Errorf("%w: only pending orders can be cancelled, order is %s", ErrInvalidTransition, order.Status)
		}
		return s.transition(ctx, tx, order, models.OrderCancelled)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Order %s cancelled", order.ID)
	s.publish(ctx, events.OrderStatusChanged, order, models.OrderPending)
	return order, nil
}

func (s *orderService) AttachRating(ctx context.Context, id string, rating int, feedback string) (*models.Order, error) {
	if rating < 1 || rating > 5 {
		return nil, validationError("rating must be between 1 and 5")
	}

	order, err := s.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.Terminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrNotRatable, order.Status)
	}
	if order.Rating != nil {
		return nil, ErrAlreadyRated
	}

	feedback = strings.TrimSpace(feedback)
	if err := s.orderRepo.SetRating(ctx, id, rating, feedback); err != nil {
		if errors.Is(err, repository.ErrNoRowsChanged) {
			return nil, ErrAlreadyRated
		}
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}
	order.Rating = &rating
	order.Feedback = feedback

	log.Printf("Order %s rated %d", order.ID, rating)
	s.publish(ctx, events.OrderRated, order, "")
	return order, nil
}

func (s *orderService) SubscribeToOrders(ctx context.Context, onChange func(events.OrderEvent), onError func(error)) (func(), error) {
	if s.opts.Subscriber == nil {
		return nil, errors.New("order change feed is not configured")
	}
	return s.opts.Subscriber.Subscribe(ctx, onChange, onError)
}

func (s *orderService) lockOrder(ctx context.Context, tx *gorm.DB, id string) (*models.Order, error) {
	order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

// transition writes the new status only if nobody changed it since it was read.
func (s *orderService) transition(ctx context.Context, tx *gorm.DB, order *models.Order, to models.OrderStatus) error {
	err := s.orderRepo.WithTx(tx).TransitionStatus(ctx, order.ID, order.Status, to)
	if err != nil {
		if errors.Is(err, repository.ErrNoRowsChanged) {
			return ErrStaleOrder
		}
		return fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = to
	return nil
}

// publish runs after commit. A failed publish is logged and never affects the
// operation's result.
func (s *orderService) publish(ctx context.Context, eventType events.EventType, order *models.Order, previous models.OrderStatus) {
	if s.opts.Publisher == nil {
		return
	}
	event := events.OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		Status:     order.Status,
		Previous:   previous,
		Total:      order.Total.StringFixed(pricing.MinorUnits),
		OccurredAt: time.Now().UTC(),
	}
	if err := s.opts.Publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		log.Printf("Order %s change not published: %v", order.ID, err)
	}
}
