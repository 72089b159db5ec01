package repository

import (
	"context"
	"time"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RollupQuery selects bucket rows for a summary. Empty dimension fields mean
// "any value"; SKU chooses between the invoice-level and line-level families.
type RollupQuery struct {
	Granularity string
	From, To    time.Time
	StoreID     string
	CashierID   string
	SKU         string
}

// RollupRow is the per-bucket aggregate returned to the analytics service.
type RollupRow struct {
	BucketStart  time.Time
	InvoiceCount int64
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
}

// RollupRepository owns the pre-aggregated bucket table. Upserts are additive
// (`x = x + excluded.x`), so concurrent ingests for the same key serialize on
// the row without ever losing an update, and replay order is irrelevant.
type RollupRepository interface {
	AddToBuckets(ctx context.Context, buckets []model.RollupBucket) error
	Query(ctx context.Context, q RollupQuery) ([]RollupRow, error)
	Snapshot(ctx context.Context) ([]model.RollupBucket, error)
	Truncate(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

type rollupRepo struct{ db *gorm.DB }

func NewRollupRepository(db *gorm.DB) RollupRepository { return &rollupRepo{db: db} }

func (r *rollupRepo) AddToBuckets(ctx context.Context, buckets []model.RollupBucket) error {
	if len(buckets) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "granularity"}, {Name: "bucket_start"},
			{Name: "store_id"}, {Name: "cashier_id"}, {Name: "sku"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"invoice_count": gorm.Expr("rollup_buckets.invoice_count + excluded.invoice_count"),
			"subtotal":      gorm.Expr("rollup_buckets.subtotal + excluded.subtotal"),
			"tax":           gorm.Expr("rollup_buckets.tax + excluded.tax"),
			"total":         gorm.Expr("rollup_buckets.total + excluded.total"),
			"updated_at":    time.Now().UTC(),
		}),
	}).Create(&buckets).Error
}

func (r *rollupRepo) Query(ctx context.Context, q RollupQuery) ([]RollupRow, error) {
	db := r.db.WithContext(ctx).Model(&model.RollupBucket{}).
		Where("granularity = ? AND bucket_start >= ? AND bucket_start < ?", q.Granularity, q.From, q.To)

	// SKU selects the line-level family; otherwise only invoice-level rows
	// are summed so no invoice counts twice.
	if q.SKU != "" {
		db = db.Where("sku = ?", q.SKU)
	} else {
		db = db.Where("sku = ''")
	}
	if q.StoreID != "" {
		db = db.Where("store_id = ?", q.StoreID)
	}
	if q.CashierID != "" {
		db = db.Where("cashier_id = ?", q.CashierID)
	}

	var rows []RollupRow
	err := db.
		Select("bucket_start, SUM(invoice_count) AS invoice_count, SUM(subtotal) AS subtotal, SUM(tax) AS tax, SUM(total) AS total").
		Group("bucket_start").
		Order("bucket_start ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *rollupRepo) Snapshot(ctx context.Context) ([]model.RollupBucket, error) {
	var buckets []model.RollupBucket
	err := r.db.WithContext(ctx).
		Order("granularity, bucket_start, store_id, cashier_id, sku").
		Find(&buckets).Error
	return buckets, err
}

func (r *rollupRepo) Truncate(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec("TRUNCATE TABLE rollup_buckets RESTART IDENTITY").Error
}

func (r *rollupRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.RollupBucket{}).Count(&n).Error
	return n, err
}
