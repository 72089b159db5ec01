package model

import (
	"time"
)

// Filter dimensions accepted by analytics summary queries.
const (
	DimensionStore   = "store_id"
	DimensionCashier = "cashier_id"
	DimensionSKU     = "sku"
)

// FilterValue records one distinct value observed for a filter dimension.
// Rows are append-only set insertions made during rollup ingest; the filter
// catalog loads them at startup and keeps an in-memory set for lock-free
// validation.
type FilterValue struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Dimension string `gorm:"type:varchar(20);not null;uniqueIndex:idx_dimension_value,priority:1"`
	Value     string `gorm:"not null;uniqueIndex:idx_dimension_value,priority:2"`
	CreatedAt time.Time
}
