package repository

import (
	"context"
	"time"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/dto"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceRepository interface {
	CreateTx(tx *gorm.DB, inv *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error)
	// ListCommittedInOrder streams committed and voided invoices in commit
	// order — the replay path for rebuilding analytics state.
	ListCommittedInOrder(ctx context.Context, batch int, after time.Time) ([]model.Invoice, error)
	UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string, voidReason *string) error
	NextInvoiceNumber(ctx context.Context, tx *gorm.DB) (int64, error)

	// Rollup ingestion bookkeeping. CompareAndSetRollupState returns true when
	// the transition applied — the caller owns the event exactly once.
	CompareAndSetRollupState(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	MarkRollupFailure(ctx context.Context, id uuid.UUID, backTo string, lastErr string, nextRetry *time.Time, exhausted bool) error
	ListPendingRollups(ctx context.Context, now time.Time, limit int) ([]model.Invoice, error)
	// NormalizeRollupStates marks every invoice fully rolled up — called after
	// a rebuild so the retry cron does not re-apply replayed events.
	NormalizeRollupStates(ctx context.Context) error

	DB() *gorm.DB
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) DB() *gorm.DB { return r.db }

func (r *invoiceRepo) CreateTx(tx *gorm.DB, inv *model.Invoice) error {
	return tx.Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).Preload("Lines").First(&inv, id).Error
	return &inv, err
}

func (r *invoiceRepo) List(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Invoice{})

	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.StoreID != "" {
		q = q.Where("store_id = ?", filter.StoreID)
	}
	if filter.Date != "" {
		q = q.Where("DATE(created_at) = ?", filter.Date)
	} else {
		// Default: today
		q = q.Where("DATE(created_at) = CURRENT_DATE")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Lines").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error

	return invoices, total, err
}

func (r *invoiceRepo) ListCommittedInOrder(ctx context.Context, batch int, after time.Time) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("status IN ? AND committed_at > ?", []string{model.InvoiceStatusCommitted, model.InvoiceStatusVoided}, after).
		Order("committed_at ASC").
		Limit(batch).
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepo) UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string, voidReason *string) error {
	updates := map[string]interface{}{"status": status}
	if status == model.InvoiceStatusVoided {
		now := time.Now().UTC()
		updates["voided_at"] = now
		updates["void_reason"] = voidReason
		// An invoice whose commit event was never rolled up nets zero: jump
		// straight to void_applied so neither event ever touches a bucket.
		updates["rollup_state"] = gorm.Expr(
			"CASE rollup_state WHEN ? THEN ? ELSE ? END",
			model.RollupStateApplied, model.RollupStateVoidPending, model.RollupStateVoidApplied,
		)
	}
	return tx.Model(&model.Invoice{}).Where("id = ?", id).Updates(updates).Error
}

func (r *invoiceRepo) NextInvoiceNumber(ctx context.Context, tx *gorm.DB) (int64, error) {
	// Uses a PostgreSQL sequence for atomic receipt number generation
	var num int64
	err := tx.WithContext(ctx).Raw("SELECT nextval('invoices_number_seq')").Scan(&num).Error
	return num, err
}

func (r *invoiceRepo) CompareAndSetRollupState(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ? AND rollup_state = ?", id, from).
		Updates(map[string]interface{}{
			"rollup_state":  to,
			"next_retry_at": nil,
			"last_error":    nil,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *invoiceRepo) MarkRollupFailure(ctx context.Context, id uuid.UUID, backTo string, lastErr string, nextRetry *time.Time, exhausted bool) error {
	state := backTo
	if exhausted {
		state = model.RollupStateError
		nextRetry = nil
	}
	return r.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"rollup_state":   state,
			"rollup_retries": gorm.Expr("rollup_retries + 1"),
			"last_error":     lastErr,
			"next_retry_at":  nextRetry,
		}).Error
}

func (r *invoiceRepo) NormalizeRollupStates(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("status = ?", model.InvoiceStatusCommitted).
		Updates(map[string]interface{}{
			"rollup_state":  model.RollupStateApplied,
			"next_retry_at": nil,
			"last_error":    nil,
		}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("status = ?", model.InvoiceStatusVoided).
		Updates(map[string]interface{}{
			"rollup_state":  model.RollupStateVoidApplied,
			"next_retry_at": nil,
			"last_error":    nil,
		}).Error
}

func (r *invoiceRepo) ListPendingRollups(ctx context.Context, now time.Time, limit int) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Where("rollup_state IN ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?",
			[]string{model.RollupStatePending, model.RollupStateVoidPending}, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}
