package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/model"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Reservation is a temporary hold against available stock. It either converts
// to a committed sale delta or is released (explicitly, or by the sweeper once
// TTL elapses). Reservations live in memory only: a restart drops all holds,
// which is safe — no committed delta ever depended on one.
type Reservation struct {
	ID        uuid.UUID `json:"id"`
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DeltaRequest describes one ledger application (restock, manual adjustment,
// or void compensation).
type DeltaRequest struct {
	SKU       string
	Delta     int
	Reason    string
	Note      string
	InvoiceID *uuid.UUID
}

// LedgerService owns all stock mutation. Invariant: quantity_on_hand(sku) >= 0
// at every committed state, and the sum of outstanding reservations plus
// committed decrements never exceeds logical stock.
//
// Concurrency model: one mutex per SKU serializes DB mutations for that SKU
// (multi-SKU operations acquire locks in sorted order, so cross-SKU commits
// stay deadlock-free and unrelated SKUs proceed in parallel). A single short
// service mutex guards the reservation table and per-SKU hold counters; it is
// always innermost and never held across DB calls.
type LedgerService interface {
	Reserve(ctx context.Context, sku string, qty int) (*Reservation, error)
	Release(reservationID uuid.UUID) bool
	// Get returns a live (unexpired) reservation.
	Get(reservationID uuid.UUID) (*Reservation, bool)
	// CommitReservations converts the given holds into committed sale deltas
	// inside one DB transaction. fn runs first inside the same transaction
	// (the invoice engine persists the invoice there) — all-lines-or-nothing.
	CommitReservations(ctx context.Context, ids []uuid.UUID, invoiceID uuid.UUID, fn func(tx *gorm.DB) error) error
	// Apply records a single non-sale delta (restock or adjustment).
	Apply(ctx context.Context, req DeltaRequest) error
	// ApplyBatch records several deltas plus fn atomically — the void path.
	ApplyBatch(ctx context.Context, reqs []DeltaRequest, fn func(tx *gorm.DB) error) error
	// VerifyStock folds the append-only log and compares it to the cached
	// on-hand count; a mismatch is ErrInvariantViolation.
	VerifyStock(ctx context.Context, sku string) error
	// Start launches the expiry sweeper; it stops when ctx is cancelled.
	Start(ctx context.Context)
}

type skuGuard struct{ mu sync.Mutex }

type ledgerService struct {
	products repository.ProductRepository
	deltas   repository.InventoryDeltaRepository
	ttl      time.Duration

	guards sync.Map // sku → *skuGuard

	mu           sync.Mutex
	reservations map[uuid.UUID]*Reservation
	reservedQty  map[string]int // sku → units held by live reservations
}

func NewLedgerService(products repository.ProductRepository, deltas repository.InventoryDeltaRepository, reservationTTL time.Duration) LedgerService {
	if reservationTTL <= 0 {
		reservationTTL = 5 * time.Minute
	}
	return &ledgerService{
		products:     products,
		deltas:       deltas,
		ttl:          reservationTTL,
		reservations: make(map[uuid.UUID]*Reservation),
		reservedQty:  make(map[string]int),
	}
}

func (s *ledgerService) guard(sku string) *skuGuard {
	g, _ := s.guards.LoadOrStore(sku, &skuGuard{})
	return g.(*skuGuard)
}

// ── Reserve / Release ────────────────────────────────────────────────────────

func (s *ledgerService) Reserve(ctx context.Context, sku string, qty int) (*Reservation, error) {
	p, err := s.products.FindBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	available := p.QuantityOnHand - s.reservedQty[sku]
	if available < qty {
		return nil, ErrInsufficientStock
	}

	r := &Reservation{
		ID:        uuid.New(),
		SKU:       sku,
		Quantity:  qty,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	s.reservations[r.ID] = r
	s.reservedQty[sku] += qty
	return r, nil
}

func (s *ledgerService) Release(reservationID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return false
	}
	delete(s.reservations, reservationID)
	s.reservedQty[r.SKU] -= r.Quantity
	return true
}

func (s *ledgerService) Get(reservationID uuid.UUID) (*Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok || time.Now().After(r.ExpiresAt) {
		return nil, false
	}
	cp := *r
	return &cp, true
}

// claim atomically removes the reservations from the table (so the sweeper
// cannot expire them mid-commit) while keeping their hold counters intact.
// Returns ErrStaleReservation — and reinstates already-claimed holds — when
// any reservation is missing or expired.
func (s *ledgerService) claim(ids []uuid.UUID) ([]*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	claimed := make([]*Reservation, 0, len(ids))
	for _, id := range ids {
		r, ok := s.reservations[id]
		if !ok || now.After(r.ExpiresAt) {
			for _, c := range claimed {
				s.reservations[c.ID] = c
			}
			return nil, ErrStaleReservation
		}
		delete(s.reservations, id)
		claimed = append(claimed, r)
	}
	return claimed, nil
}

func (s *ledgerService) unclaim(claimed []*Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range claimed {
		s.reservations[r.ID] = r
	}
}

func (s *ledgerService) settle(claimed []*Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range claimed {
		s.reservedQty[r.SKU] -= r.Quantity
	}
}

// ── Commit ───────────────────────────────────────────────────────────────────

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// lockSKUs acquires per-SKU guards in sorted order and returns the unlock.
func (s *ledgerService) lockSKUs(skus []string) func() {
	uniq := make([]string, 0, len(skus))
	seen := make(map[string]bool, len(skus))
	for _, sku := range skus {
		if !seen[sku] {
			seen[sku] = true
			uniq = append(uniq, sku)
		}
	}
	sort.Strings(uniq)

	locked := make([]*skuGuard, 0, len(uniq))
	for _, sku := range uniq {
		g := s.guard(sku)
		g.mu.Lock()
		locked = append(locked, g)
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.Unlock()
		}
	}
}

func (s *ledgerService) CommitReservations(ctx context.Context, ids []uuid.UUID, invoiceID uuid.UUID, fn func(tx *gorm.DB) error) error {
	claimed, err := s.claim(ids)
	if err != nil {
		return err
	}

	skus := make([]string, len(claimed))
	for i, r := range claimed {
		skus[i] = r.SKU
	}
	unlock := s.lockSKUs(skus)
	defer unlock()

	txErr := runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		if fn != nil {
			if err := fn(tx); err != nil {
				return err
			}
		}
		for _, r := range claimed {
			if err := s.appendSaleDeltaTx(tx, r, invoiceID); err != nil {
				return err
			}
		}
		return nil
	})

	if txErr != nil {
		s.unclaim(claimed)
		return txErr
	}
	s.settle(claimed)
	return nil
}

func (s *ledgerService) appendSaleDeltaTx(tx *gorm.DB, r *Reservation, invoiceID uuid.UUID) error {
	before, err := s.stockTx(tx, r.SKU)
	if err != nil {
		return err
	}

	rows, err := s.products.AdjustStockGuardedTx(tx, r.SKU, -r.Quantity)
	if err != nil {
		return err
	}
	if rows == 0 {
		// The reservation guaranteed availability, so a guard rejection here
		// means reservation accounting and the ledger disagree.
		log.Error().
			Str("sku", r.SKU).
			Str("reservation_id", r.ID.String()).
			Int("quantity", r.Quantity).
			Int("stock_before", before).
			Str("invoice_id", invoiceID.String()).
			Msg("ledger: guarded decrement rejected behind a valid reservation")
		return ErrInvariantViolation
	}

	invID := invoiceID
	return s.deltas.CreateTx(tx, &model.InventoryDelta{
		SKU:         r.SKU,
		Delta:       -r.Quantity,
		Reason:      model.DeltaReasonSale,
		StockBefore: before,
		StockAfter:  before - r.Quantity,
		InvoiceID:   &invID,
	})
}

// stockTx reads the cached on-hand count inside the transaction. The per-SKU
// guard serializes all writers, so a plain read is coherent here.
func (s *ledgerService) stockTx(tx *gorm.DB, sku string) (int, error) {
	return s.products.StockBySKUTx(tx, sku)
}

// ── Apply (restock / adjustment / void compensation) ────────────────────────

func (s *ledgerService) Apply(ctx context.Context, req DeltaRequest) error {
	return s.ApplyBatch(ctx, []DeltaRequest{req}, nil)
}

func (s *ledgerService) ApplyBatch(ctx context.Context, reqs []DeltaRequest, fn func(tx *gorm.DB) error) error {
	skus := make([]string, len(reqs))
	for i, req := range reqs {
		skus[i] = req.SKU
	}
	unlock := s.lockSKUs(skus)
	defer unlock()

	return runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		if fn != nil {
			if err := fn(tx); err != nil {
				return err
			}
		}
		for _, req := range reqs {
			before, err := s.stockTx(tx, req.SKU)
			if err != nil {
				return err
			}
			rows, err := s.products.AdjustStockGuardedTx(tx, req.SKU, req.Delta)
			if err != nil {
				return err
			}
			if rows == 0 {
				return ErrInsufficientStock
			}
			if err := s.deltas.CreateTx(tx, &model.InventoryDelta{
				SKU:         req.SKU,
				Delta:       req.Delta,
				Reason:      req.Reason,
				StockBefore: before,
				StockAfter:  before + req.Delta,
				Note:        req.Note,
				InvoiceID:   req.InvoiceID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// ── Invariant check ──────────────────────────────────────────────────────────

func (s *ledgerService) VerifyStock(ctx context.Context, sku string) error {
	sum, err := s.deltas.SumBySKU(ctx, sku)
	if err != nil {
		return err
	}
	p, err := s.products.FindBySKU(ctx, sku)
	if err != nil {
		return err
	}
	if sum != p.QuantityOnHand {
		log.Error().
			Str("sku", sku).
			Int("ledger_sum", sum).
			Int("cached_on_hand", p.QuantityOnHand).
			Msg("ledger: cached stock diverged from delta log")
		return ErrInvariantViolation
	}
	return nil
}

// ── Expiry sweeper ───────────────────────────────────────────────────────────

const sweepInterval = 10 * time.Second

func (s *ledgerService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		log.Info().Dur("ttl", s.ttl).Msg("ledger: reservation sweeper started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("ledger: reservation sweeper shutting down")
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *ledgerService) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	expired := 0
	for id, r := range s.reservations {
		if now.After(r.ExpiresAt) {
			delete(s.reservations, id)
			s.reservedQty[r.SKU] -= r.Quantity
			expired++
		}
	}
	if expired > 0 {
		log.Debug().Int("expired", expired).Int("remaining", len(s.reservations)).
			Msg("ledger: expired reservations released")
	}
}
