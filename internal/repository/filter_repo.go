package repository

import (
	"context"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FilterRepository persists the append-only set of observed filter values.
type FilterRepository interface {
	Insert(ctx context.Context, dimension, value string) error
	ListAll(ctx context.Context) ([]model.FilterValue, error)
}

type filterRepo struct{ db *gorm.DB }

func NewFilterRepository(db *gorm.DB) FilterRepository { return &filterRepo{db: db} }

func (r *filterRepo) Insert(ctx context.Context, dimension, value string) error {
	fv := model.FilterValue{Dimension: dimension, Value: value}
	// Set semantics: a re-observed value is a no-op.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fv).Error
}

func (r *filterRepo) ListAll(ctx context.Context) ([]model.FilterValue, error) {
	var values []model.FilterValue
	err := r.db.WithContext(ctx).Order("dimension, value").Find(&values).Error
	return values, err
}
