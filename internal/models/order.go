package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Order struct {
	ID            string           `json:"id" gorm:"type:varchar(36);primaryKey"`
	Items         []OrderItem      `json:"items" gorm:"foreignKey:OrderID"`
	Status        OrderStatus      `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	CustomerName  string           `json:"customer_name" gorm:"not null"`
	CustomerPhone string           `json:"customer_phone" gorm:"not null"`
	CustomerEmail string           `json:"customer_email"`
	Address       string           `json:"address"`
	TableNumber   string           `json:"table_number"`
	DiningMode    DiningMode       `json:"dining_mode" gorm:"type:varchar(20);not null"`
	Subtotal      decimal.Decimal  `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	Taxes         []OrderTax       `json:"taxes" gorm:"foreignKey:OrderID"`
	TaxTotal      decimal.Decimal  `json:"tax_total" gorm:"type:numeric(12,2);not null"`
	TipAmount     decimal.Decimal  `json:"tip_amount" gorm:"type:numeric(12,2);not null;default:0"`
	TipPercentage *decimal.Decimal `json:"tip_percentage,omitempty" gorm:"type:numeric(5,2)"`
	Total         decimal.Decimal  `json:"total" gorm:"type:numeric(12,2);not null"`
	PaymentMethod *string          `json:"payment_method"`
	Rating        *int             `json:"rating,omitempty"`
	Feedback      string           `json:"feedback,omitempty" gorm:"type:text"`
	AnonymousID   string           `json:"anonymous_id,omitempty" gorm:"index"`
	CreatedAt     time.Time        `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderItem is a cart line frozen at checkout time.
type OrderItem struct {
	ID            uint            `json:"-" gorm:"primaryKey"`
	OrderID       string          `json:"-" gorm:"type:varchar(36);not null;index"`
	ProductID     string          `json:"product_id" gorm:"not null"`
	BaseProductID string          `json:"base_product_id" gorm:"not null"`
	Name          string          `json:"name" gorm:"not null"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	Quantity      int             `json:"quantity" gorm:"not null"`
	Variant       string          `json:"variant,omitempty"`
	CategoryID    string          `json:"category_id,omitempty"`
	StockSnapshot *int            `json:"stock_snapshot,omitempty"`
	StockDeducted bool            `json:"stock_deducted" gorm:"not null;default:false"`
}

// OrderTax is one applied tax rate with the amount it produced for the order.
type OrderTax struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderID   string          `json:"-" gorm:"type:varchar(36);not null;index"`
	TaxRateID string          `json:"tax_rate_id"`
	Name      string          `json:"name"`
	Rate      decimal.Decimal `json:"rate" gorm:"type:numeric(6,3)"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2)"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderDelivered, OrderCancelled},
	OrderDelivered: {OrderCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPreparing, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s.
// delivered -> cancelled is the corrective path; cancelled is final.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal states are the only ones that accept a rating.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

type DiningMode string

const (
	DineIn   DiningMode = "dine-in"
	Delivery DiningMode = "delivery"
)

// OrderFilter narrows Query; zero values mean "no constraint".
type OrderFilter struct {
	Status   OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
}
