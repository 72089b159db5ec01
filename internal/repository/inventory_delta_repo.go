package repository

import (
	"context"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/model"

	"gorm.io/gorm"
)

// DeltaFilter defines filters for listing inventory deltas.
type DeltaFilter struct {
	SKU    string
	Reason string
	Page   int
	Limit  int
}

// InventoryDeltaRepository appends to and reads the append-only stock log.
// There is deliberately no Update or Delete: compensations are new rows.
type InventoryDeltaRepository interface {
	CreateTx(tx *gorm.DB, d *model.InventoryDelta) error
	List(ctx context.Context, filter DeltaFilter) ([]model.InventoryDelta, int64, error)
	// SumBySKU folds the full log for one SKU — the authoritative stock count,
	// used by invariant checks against the cached quantity_on_hand.
	SumBySKU(ctx context.Context, sku string) (int, error)
}

type inventoryDeltaRepo struct{ db *gorm.DB }

func NewInventoryDeltaRepository(db *gorm.DB) InventoryDeltaRepository {
	return &inventoryDeltaRepo{db: db}
}

func (r *inventoryDeltaRepo) CreateTx(tx *gorm.DB, d *model.InventoryDelta) error {
	return tx.Create(d).Error
}

func (r *inventoryDeltaRepo) List(ctx context.Context, filter DeltaFilter) ([]model.InventoryDelta, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryDelta{})
	if filter.SKU != "" {
		q = q.Where("sku = ?", filter.SKU)
	}
	if filter.Reason != "" {
		q = q.Where("reason = ?", filter.Reason)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var deltas []model.InventoryDelta
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&deltas).Error
	return deltas, total, err
}

func (r *inventoryDeltaRepo) SumBySKU(ctx context.Context, sku string) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).Model(&model.InventoryDelta{}).
		Where("sku = ?", sku).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&sum).Error
	return sum, err
}
