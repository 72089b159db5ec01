package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rollup granularities. Every committed invoice contributes to one bucket
// per granularity per dimension tuple.
const (
	GranularityHour  = "hour"
	GranularityDay   = "day"
	GranularityMonth = "month"
)

// RollupBucket is a pre-aggregated sales summary keyed by
// (granularity, bucket_start, store_id, cashier_id, sku).
//
// Two bucket families share the table:
//   - invoice-level rows (SKU = ""): one contribution per invoice —
//     {count, subtotal, tax, total} of the whole sale;
//   - line-level rows (SKU set): per-line contributions, count = units sold.
//
// Summary queries sum exactly one family so an invoice is never counted
// twice. All updates are commutative additive upserts, which makes ingest
// lock-free under concurrency and replay order-independent; void events add
// the negated contribution rather than erasing history.
type RollupBucket struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Granularity string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_bucket_key,priority:1"`
	BucketStart time.Time `gorm:"not null;uniqueIndex:idx_bucket_key,priority:2"`
	StoreID     string    `gorm:"not null;uniqueIndex:idx_bucket_key,priority:3"`
	CashierID   string    `gorm:"not null;uniqueIndex:idx_bucket_key,priority:4"`
	SKU         string    `gorm:"not null;default:'';uniqueIndex:idx_bucket_key,priority:5"`

	InvoiceCount int64           `gorm:"not null;default:0"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Tax          decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Total        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`

	UpdatedAt time.Time
}
