package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StoreSettings holds the settings-driven knobs read once per operation.
// A single row is expected; when absent the env defaults apply.
type StoreSettings struct {
	ID                   uint      `json:"id" gorm:"primaryKey"`
	RateLimitEnabled     bool      `json:"rate_limit_enabled"`
	AnonymousMaxOrders   int       `json:"anonymous_max_orders"`
	AnonymousWindowHours int       `json:"anonymous_window_hours"`
	PricesIncludeTax     bool      `json:"prices_include_tax"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type TaxRate struct {
	ID        string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name      string          `json:"name" gorm:"not null"`
	Rate      decimal.Decimal `json:"rate" gorm:"type:numeric(6,3);not null"`   // percent
	AppliesTo string          `json:"applies_to" gorm:"not null;default:'all'"` // "all" or a category id
	SortOrder int             `json:"sort_order" gorm:"not null;default:0"`
	IsEnabled bool            `json:"is_enabled"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (r *TaxRate) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Transaction is a ledger entry. Gross is always credit - debit and is
// computed server side.
type Transaction struct {
	ID          string            `json:"id" gorm:"type:varchar(36);primaryKey"`
	Date        time.Time         `json:"date" gorm:"not null;index"`
	Source      TransactionSource `json:"source" gorm:"type:varchar(20);not null;index"`
	Description string            `json:"description"`
	ReferenceID string            `json:"reference_id" gorm:"type:varchar(36);index"`
	Debit       decimal.Decimal   `json:"debit" gorm:"type:numeric(12,2);not null"`
	Credit      decimal.Decimal   `json:"credit" gorm:"type:numeric(12,2);not null"`
	Gross       decimal.Decimal   `json:"gross" gorm:"type:numeric(12,2);not null"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

type TransactionSource string

const (
	SourceOrders    TransactionSource = "orders"
	SourceInventory TransactionSource = "inventory"
	SourceManual    TransactionSource = "manual"
)

// LedgerSummary aggregates entries over a date range.
type LedgerSummary struct {
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
	Gross  decimal.Decimal `json:"gross"`
	Count  int             `json:"count"`
}
