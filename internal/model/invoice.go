package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice statuses. Draft invoices only exist transiently inside a commit;
// once committed the row is immutable except for the voided terminal
// transition, which reverses inventory and analytics contributions instead
// of deleting history.
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusCommitted = "committed"
	InvoiceStatusVoided    = "voided"
)

// Rollup ingestion states. The analytics worker advances these with
// compare-and-set updates so an event is applied exactly once even when the
// queue redelivers.
const (
	RollupStatePending     = "pending"
	RollupStateApplied     = "applied"
	RollupStateVoidPending = "void_pending"
	RollupStateVoidApplied = "void_applied"
	RollupStateError       = "error"
)

// Invoice is a priced, committed sale. Totals satisfy
// Total = Subtotal + Tax exactly (decimal arithmetic, tax rounded per line).
type Invoice struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	// Number is the human-facing sequential receipt number, drawn from a
	// PostgreSQL sequence at commit time.
	Number    int64  `gorm:"uniqueIndex;not null"`
	CashierID string `gorm:"index;not null"`
	StoreID   string `gorm:"index;not null"`

	Subtotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Tax      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total    decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Status     string `gorm:"type:varchar(20);not null;index"`
	VoidReason *string

	// Rollup ingestion bookkeeping (see worker/rollup_worker.go).
	RollupState   string     `gorm:"type:varchar(20);not null;default:'pending';index"`
	RollupRetries int        `gorm:"not null;default:0"`
	NextRetryAt   *time.Time `gorm:"column:next_retry_at"`
	LastError     *string

	CommittedAt time.Time
	VoidedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID"`
}

// InvoiceLine is one scanned item with its price snapshot. LineTax uses
// banker's rounding to the cent, per line, before summation.
type InvoiceLine struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InvoiceID uuid.UUID `gorm:"type:uuid;index;not null"`
	SKU       string    `gorm:"index;not null"`
	// Name is denormalized so receipts survive catalog renames.
	Name         string          `gorm:"not null"`
	Quantity     int             `gorm:"not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(6,4);not null"`
	LineSubtotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTax      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}
