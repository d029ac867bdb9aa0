package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InventoryItem struct {
	ID        string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name      string          `json:"name" gorm:"not null"`
	Quantity  decimal.Decimal `json:"quantity" gorm:"type:numeric(14,4);not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"` // unit cost
	Unit      string          `json:"unit"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// StockHistory is an append-only audit row. It is never updated or deleted.
type StockHistory struct {
	ID              uint             `json:"id" gorm:"primaryKey"`
	InventoryItemID string           `json:"inventory_item_id" gorm:"type:varchar(36);not null;index"`
	ItemName        string           `json:"item_name"`
	QuantityDelta   decimal.Decimal  `json:"quantity_delta" gorm:"type:numeric(14,4);not null"`
	Reason          string           `json:"reason"`
	Cost            decimal.Decimal  `json:"cost" gorm:"type:numeric(12,2)"`
	Type            StockHistoryType `json:"type" gorm:"type:varchar(20);not null"`
	OrderID         *string          `json:"order_id,omitempty" gorm:"type:varchar(36);index"`
	CreatedAt       time.Time        `json:"created_at" gorm:"index"`
}

type StockHistoryType string

const (
	StockOrder    StockHistoryType = "order"
	StockManual   StockHistoryType = "manual"
	StockReversal StockHistoryType = "reversal"
)
