package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/dto"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/model"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/repository"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Product repository stub ───────────────────────────────────────────────────

// stubProductRepo is an in-memory ProductRepository. The mutex matters: the
// concurrency tests hammer AdjustStockGuardedTx from many goroutines.
type stubProductRepo struct {
	mu       sync.Mutex
	products map[string]*model.Product // keyed by SKU
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[string]*model.Product)}
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.SKU] = p
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductRepo) FindBySKU(_ context.Context, sku string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[sku]
	if !ok || !p.Active {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductRepo) List(_ context.Context, _ dto.ProductFilter) ([]model.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		if p.Active {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, int64(len(out)), nil
}

func (r *stubProductRepo) ListBelowLowStock(_ context.Context) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		if p.Active && p.QuantityOnHand <= p.LowStockLevel {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.SKU] = p
	return nil
}

func (r *stubProductRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.ID == id {
			p.Active = false
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubProductRepo) Reactivate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.ID == id {
			p.Active = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubProductRepo) AdjustStockGuardedTx(_ *gorm.DB, sku string, delta int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[sku]
	if !ok {
		return 0, nil
	}
	if delta < 0 && p.QuantityOnHand < -delta {
		return 0, nil // guard rejected
	}
	p.QuantityOnHand += delta
	return 1, nil
}

func (r *stubProductRepo) StockBySKUTx(_ *gorm.DB, sku string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[sku]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return p.QuantityOnHand, nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// ── Inventory delta repository stub ──────────────────────────────────────────

type stubDeltaRepo struct {
	mu     sync.Mutex
	deltas []model.InventoryDelta
}

func (r *stubDeltaRepo) CreateTx(_ *gorm.DB, d *model.InventoryDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()
	r.deltas = append(r.deltas, *d)
	return nil
}

func (r *stubDeltaRepo) List(_ context.Context, filter repository.DeltaFilter) ([]model.InventoryDelta, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.InventoryDelta
	for _, d := range r.deltas {
		if filter.SKU != "" && d.SKU != filter.SKU {
			continue
		}
		if filter.Reason != "" && d.Reason != filter.Reason {
			continue
		}
		out = append(out, d)
	}
	return out, int64(len(out)), nil
}

func (r *stubDeltaRepo) SumBySKU(_ context.Context, sku string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := 0
	for _, d := range r.deltas {
		if d.SKU == sku {
			sum += d.Delta
		}
	}
	return sum, nil
}

var _ repository.InventoryDeltaRepository = (*stubDeltaRepo)(nil)

// ── Invoice repository stub ──────────────────────────────────────────────────

type stubInvoiceRepo struct {
	mu        sync.Mutex
	invoices  map[uuid.UUID]*model.Invoice
	numberSeq int64
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{invoices: make(map[uuid.UUID]*model.Invoice), numberSeq: 999}
}

func (r *stubInvoiceRepo) CreateTx(_ *gorm.DB, inv *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	inv.CreatedAt = time.Now()
	r.invoices[inv.ID] = inv
	return nil
}

func (r *stubInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *stubInvoiceRepo) List(_ context.Context, _ dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Invoice
	for _, inv := range r.invoices {
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

func (r *stubInvoiceRepo) ListCommittedInOrder(_ context.Context, batch int, after time.Time) ([]model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Invoice
	for _, inv := range r.invoices {
		if inv.CommittedAt.After(after) {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommittedAt.Before(out[j].CommittedAt) })
	if len(out) > batch {
		out = out[:batch]
	}
	return out, nil
}

func (r *stubInvoiceRepo) UpdateStatusTx(_ *gorm.DB, id uuid.UUID, status string, voidReason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inv.Status = status
	if status == model.InvoiceStatusVoided {
		now := time.Now().UTC()
		inv.VoidedAt = &now
		inv.VoidReason = voidReason
		if inv.RollupState == model.RollupStateApplied {
			inv.RollupState = model.RollupStateVoidPending
		} else {
			inv.RollupState = model.RollupStateVoidApplied
		}
	}
	return nil
}

func (r *stubInvoiceRepo) NextInvoiceNumber(_ context.Context, _ *gorm.DB) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.numberSeq++
	return r.numberSeq, nil
}

func (r *stubInvoiceRepo) CompareAndSetRollupState(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.RollupState != from {
		return false, nil
	}
	inv.RollupState = to
	inv.NextRetryAt = nil
	inv.LastError = nil
	return true, nil
}

func (r *stubInvoiceRepo) MarkRollupFailure(_ context.Context, id uuid.UUID, backTo string, lastErr string, nextRetry *time.Time, exhausted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inv.RollupState = backTo
	if exhausted {
		inv.RollupState = model.RollupStateError
		nextRetry = nil
	}
	inv.RollupRetries++
	inv.LastError = &lastErr
	inv.NextRetryAt = nextRetry
	return nil
}

func (r *stubInvoiceRepo) ListPendingRollups(_ context.Context, now time.Time, limit int) ([]model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Invoice
	for _, inv := range r.invoices {
		if (inv.RollupState == model.RollupStatePending || inv.RollupState == model.RollupStateVoidPending) &&
			inv.NextRetryAt != nil && !inv.NextRetryAt.After(now) {
			out = append(out, *inv)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *stubInvoiceRepo) NormalizeRollupStates(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.Status == model.InvoiceStatusCommitted {
			inv.RollupState = model.RollupStateApplied
		} else if inv.Status == model.InvoiceStatusVoided {
			inv.RollupState = model.RollupStateVoidApplied
		}
		inv.NextRetryAt = nil
		inv.LastError = nil
	}
	return nil
}

func (r *stubInvoiceRepo) DB() *gorm.DB { return nil }

var _ repository.InvoiceRepository = (*stubInvoiceRepo)(nil)

// ── Rollup repository stub ───────────────────────────────────────────────────

var errStubWrite = errors.New("stub: simulated write failure")

type bucketKey struct {
	granularity string
	bucketStart time.Time
	storeID     string
	cashierID   string
	sku         string
}

type stubRollupRepo struct {
	mu       sync.Mutex
	buckets  map[bucketKey]*model.RollupBucket
	failNext bool // when set, the next AddToBuckets call fails once
}

func newStubRollupRepo() *stubRollupRepo {
	return &stubRollupRepo{buckets: make(map[bucketKey]*model.RollupBucket)}
}

func (r *stubRollupRepo) AddToBuckets(_ context.Context, buckets []model.RollupBucket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return errStubWrite
	}
	for _, b := range buckets {
		key := bucketKey{b.Granularity, b.BucketStart, b.StoreID, b.CashierID, b.SKU}
		existing, ok := r.buckets[key]
		if !ok {
			cp := b
			r.buckets[key] = &cp
			continue
		}
		existing.InvoiceCount += b.InvoiceCount
		existing.Subtotal = existing.Subtotal.Add(b.Subtotal)
		existing.Tax = existing.Tax.Add(b.Tax)
		existing.Total = existing.Total.Add(b.Total)
	}
	return nil
}

func (r *stubRollupRepo) Query(_ context.Context, q repository.RollupQuery) ([]repository.RollupRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agg := make(map[time.Time]*repository.RollupRow)
	for key, b := range r.buckets {
		if key.granularity != q.Granularity {
			continue
		}
		if key.bucketStart.Before(q.From) || !key.bucketStart.Before(q.To) {
			continue
		}
		if key.sku != q.SKU { // SKU="" selects the invoice-level family
			continue
		}
		if q.StoreID != "" && key.storeID != q.StoreID {
			continue
		}
		if q.CashierID != "" && key.cashierID != q.CashierID {
			continue
		}
		row, ok := agg[key.bucketStart]
		if !ok {
			row = &repository.RollupRow{BucketStart: key.bucketStart, Subtotal: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
			agg[key.bucketStart] = row
		}
		row.InvoiceCount += b.InvoiceCount
		row.Subtotal = row.Subtotal.Add(b.Subtotal)
		row.Tax = row.Tax.Add(b.Tax)
		row.Total = row.Total.Add(b.Total)
	}
	var out []repository.RollupRow
	for _, row := range agg {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart.Before(out[j].BucketStart) })
	return out, nil
}

func (r *stubRollupRepo) Snapshot(_ context.Context) ([]model.RollupBucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.RollupBucket
	for _, b := range r.buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Granularity != out[j].Granularity {
			return out[i].Granularity < out[j].Granularity
		}
		if !out[i].BucketStart.Equal(out[j].BucketStart) {
			return out[i].BucketStart.Before(out[j].BucketStart)
		}
		return out[i].SKU < out[j].SKU
	})
	return out, nil
}

func (r *stubRollupRepo) Truncate(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets = make(map[bucketKey]*model.RollupBucket)
	return nil
}

func (r *stubRollupRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.buckets)), nil
}

var _ repository.RollupRepository = (*stubRollupRepo)(nil)

// ── Filter repository stub ───────────────────────────────────────────────────

type stubFilterRepo struct {
	mu     sync.Mutex
	values map[string]map[string]bool
}

func newStubFilterRepo() *stubFilterRepo {
	return &stubFilterRepo{values: make(map[string]map[string]bool)}
}

func (r *stubFilterRepo) Insert(_ context.Context, dimension, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.values[dimension] == nil {
		r.values[dimension] = make(map[string]bool)
	}
	r.values[dimension][value] = true
	return nil
}

func (r *stubFilterRepo) ListAll(_ context.Context) ([]model.FilterValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.FilterValue
	for dim, vals := range r.values {
		for v := range vals {
			out = append(out, model.FilterValue{Dimension: dim, Value: v})
		}
	}
	return out, nil
}

var _ repository.FilterRepository = (*stubFilterRepo)(nil)

// ── Publisher stub ───────────────────────────────────────────────────────────

// recordingPublisher captures the events the invoice engine emits.
type recordingPublisher struct {
	mu       sync.Mutex
	rollups  []uuid.UUID
	receipts []uuid.UUID
}

func (p *recordingPublisher) PublishRollup(_ context.Context, invoiceID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rollups = append(p.rollups, invoiceID)
	return nil
}

func (p *recordingPublisher) PublishReceipt(_ context.Context, invoiceID uuid.UUID, _ *string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.receipts = append(p.receipts, invoiceID)
	return nil
}

var _ service.EventPublisher = (*recordingPublisher)(nil)

// ── Helpers ──────────────────────────────────────────────────────────────────

// seedProduct registers an active product with the given stock and price.
func seedProduct(repo *stubProductRepo, sku, name string, price, taxRate string, stock int) *model.Product {
	p := &model.Product{
		ID:             uuid.New(),
		SKU:            sku,
		Name:           name,
		Category:       "general",
		UnitPrice:      decimal.RequireFromString(price),
		TaxRate:        decimal.RequireFromString(taxRate),
		QuantityOnHand: stock,
		LowStockLevel:  5,
		Active:         true,
	}
	repo.products[sku] = p
	return p
}
