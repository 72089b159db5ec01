package model

import (
	"time"

	"github.com/google/uuid"
)

// Delta reasons.
const (
	DeltaReasonRestock    = "restock"
	DeltaReasonSale       = "sale"
	DeltaReasonAdjustment = "adjustment"
	DeltaReasonVoid       = "void"
)

// InventoryDelta records every stock change for a SKU. Rows are append-only —
// the sum of deltas per SKU is the authoritative stock count, and
// Product.QuantityOnHand is merely its cached projection. Voided invoices add
// compensating rows; nothing is ever updated or deleted.
type InventoryDelta struct {
	ID  uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU string    `gorm:"index;not null"`
	// Delta is signed: positive = stock in, negative = stock out.
	Delta       int    `gorm:"not null"`
	Reason      string `gorm:"type:varchar(20);not null"` // restock | sale | adjustment | void
	StockBefore int    `gorm:"not null"`
	StockAfter  int    `gorm:"not null"`
	Note        string
	InvoiceID   *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt   time.Time
}

// TableName overrides GORM's default pluralization.
func (InventoryDelta) TableName() string { return "inventory_deltas" }
