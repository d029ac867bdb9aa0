package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MenuItem is owned by the menu subsystem. The order engine only reads price,
// stock and connections, and writes StockQuantity on delivery.
type MenuItem struct {
	ID            string               `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name          string               `json:"name" gorm:"not null"`
	Price         decimal.Decimal      `json:"price" gorm:"type:numeric(12,2);not null"`
	CategoryID    string               `json:"category_id" gorm:"index"`
	StockQuantity *int                 `json:"stock_quantity"` // nil = unlimited
	Connections   []MenuItemConnection `json:"inventory_connections" gorm:"foreignKey:MenuItemID"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// MenuItemConnection is a bill-of-materials link: Ratio units of the menu item
// are producible from one unit of the ingredient.
type MenuItemConnection struct {
	ID              uint            `json:"-" gorm:"primaryKey"`
	MenuItemID      string          `json:"-" gorm:"type:varchar(36);not null;index"`
	InventoryItemID string          `json:"inventory_item_id" gorm:"type:varchar(36);not null"`
	Ratio           decimal.Decimal `json:"ratio" gorm:"type:numeric(12,4);not null"`
}
