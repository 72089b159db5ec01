package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry for a scannable item. UnitPrice and TaxRate
// are snapshotted into invoice lines at scan time — later price changes never
// touch committed invoices.
//
// QuantityOnHand is the cached view derived from the inventory_deltas log.
// It is never mutated directly: every change goes through the ledger, which
// updates this column under a non-negative guard inside the same transaction
// that appends the delta.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU         string    `gorm:"uniqueIndex;not null"`
	Name        string    `gorm:"index;not null"`
	Description *string
	Category    string          `gorm:"not null;default:'general'"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// TaxRate is a fraction (0.05 = 5%).
	TaxRate        decimal.Decimal `gorm:"type:decimal(6,4);not null;default:0"`
	QuantityOnHand int             `gorm:"not null;default:0"`
	LowStockLevel  int             `gorm:"not null;default:5"`
	Active         bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
