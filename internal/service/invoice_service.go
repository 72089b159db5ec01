package service

import (
	"context"
	"errors"
	"time"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/dto"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/model"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EventPublisher decouples the invoice engine from the queue transport. The
// redis-backed implementation lives in the worker package; unit tests pass a
// no-op stub.
type EventPublisher interface {
	PublishRollup(ctx context.Context, invoiceID uuid.UUID) error
	PublishReceipt(ctx context.Context, invoiceID uuid.UUID, customerEmail *string) error
}

// InvoiceService is the transactional core: scan, commit, void. Commit is
// all-lines-or-nothing — the invoice row, its lines and the sale deltas land
// in one DB transaction, with reservations claimed up front.
type InvoiceService interface {
	Scan(ctx context.Context, req dto.ScanRequest) (*dto.ScanResponse, error)
	ReleaseReservation(id uuid.UUID) error
	Create(ctx context.Context, req dto.CreateInvoiceRequest, cashierID, storeID string) (*dto.InvoiceResponse, error)
	Void(ctx context.Context, id uuid.UUID, reason string) (*dto.InvoiceResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error)
	List(ctx context.Context, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error)
}

type invoiceService struct {
	invoices  repository.InvoiceRepository
	catalog   CatalogService
	ledger    LedgerService
	publisher EventPublisher
}

func NewInvoiceService(invoices repository.InvoiceRepository, catalog CatalogService, ledger LedgerService, publisher EventPublisher) InvoiceService {
	return &invoiceService{invoices: invoices, catalog: catalog, ledger: ledger, publisher: publisher}
}

// ── Scan ─────────────────────────────────────────────────────────────────────

func (s *invoiceService) Scan(ctx context.Context, req dto.ScanRequest) (*dto.ScanResponse, error) {
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	p, err := s.catalog.Lookup(ctx, req.SKU)
	if err != nil {
		return nil, err
	}

	r, err := s.ledger.Reserve(ctx, p.SKU, qty)
	if err != nil {
		return nil, err
	}

	subtotal, tax := priceLine(p.UnitPrice, p.TaxRate, qty)
	return &dto.ScanResponse{
		ReservationID: r.ID.String(),
		SKU:           p.SKU,
		Name:          p.Name,
		Quantity:      qty,
		UnitPrice:     p.UnitPrice,
		TaxRate:       p.TaxRate,
		LineSubtotal:  subtotal,
		LineTax:       tax,
		ExpiresAt:     r.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

func (s *invoiceService) ReleaseReservation(id uuid.UUID) error {
	if !s.ledger.Release(id) {
		return ErrStaleReservation
	}
	return nil
}

// ── Commit ───────────────────────────────────────────────────────────────────

func (s *invoiceService) Create(ctx context.Context, req dto.CreateInvoiceRequest, cashierID, storeID string) (*dto.InvoiceResponse, error) {
	invoiceID := uuid.New()
	lines := make([]model.InvoiceLine, 0, len(req.Lines))
	reservationIDs := make([]uuid.UUID, 0, len(req.Lines))
	var inline []uuid.UUID // reservations taken here, released if the commit fails

	releaseInline := func() {
		for _, id := range inline {
			s.ledger.Release(id)
		}
	}

	for _, lr := range req.Lines {
		p, err := s.catalog.Lookup(ctx, lr.SKU)
		if err != nil {
			releaseInline()
			return nil, err
		}

		var resID uuid.UUID
		if lr.ReservationID != nil {
			resID, err = uuid.Parse(*lr.ReservationID)
			if err != nil {
				releaseInline()
				return nil, ErrStaleReservation
			}
			// The hold must still cover exactly what the line claims.
			r, ok := s.ledger.Get(resID)
			if !ok || r.SKU != lr.SKU || r.Quantity != lr.Quantity {
				releaseInline()
				return nil, ErrStaleReservation
			}
		} else {
			// No prior scan (or the cashier retried after expiry): reserve now.
			r, err := s.ledger.Reserve(ctx, lr.SKU, lr.Quantity)
			if err != nil {
				releaseInline()
				return nil, err
			}
			resID = r.ID
			inline = append(inline, resID)
		}
		reservationIDs = append(reservationIDs, resID)

		subtotal, tax := priceLine(p.UnitPrice, p.TaxRate, lr.Quantity)
		lines = append(lines, model.InvoiceLine{
			InvoiceID:    invoiceID,
			SKU:          p.SKU,
			Name:         p.Name,
			Quantity:     lr.Quantity,
			UnitPrice:    p.UnitPrice,
			TaxRate:      p.TaxRate,
			LineSubtotal: subtotal,
			LineTax:      tax,
		})
	}

	inv := &model.Invoice{
		ID:          invoiceID,
		CashierID:   cashierID,
		StoreID:     storeID,
		Status:      model.InvoiceStatusCommitted,
		RollupState: model.RollupStatePending,
		CommittedAt: time.Now().UTC(),
		Lines:       lines,
	}
	for _, l := range lines {
		inv.Subtotal = inv.Subtotal.Add(l.LineSubtotal)
		inv.Tax = inv.Tax.Add(l.LineTax)
	}
	inv.Total = inv.Subtotal.Add(inv.Tax)

	err := s.ledger.CommitReservations(ctx, reservationIDs, invoiceID, func(tx *gorm.DB) error {
		number, err := s.invoices.NextInvoiceNumber(ctx, tx)
		if err != nil {
			return err
		}
		inv.Number = number
		return s.invoices.CreateTx(tx, inv)
	})
	if err != nil {
		releaseInline()
		return nil, err
	}

	log.Info().
		Str("invoice_id", inv.ID.String()).
		Int64("number", inv.Number).
		Str("cashier_id", cashierID).
		Str("total", inv.Total.String()).
		Int("lines", len(inv.Lines)).
		Msg("invoice committed")

	if s.publisher != nil {
		if err := s.publisher.PublishRollup(ctx, inv.ID); err != nil {
			// The retry cron picks up pending rollups, so a failed enqueue
			// delays analytics without losing the event.
			log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("rollup enqueue failed")
		}
		if err := s.publisher.PublishReceipt(ctx, inv.ID, req.CustomerEmail); err != nil {
			log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("receipt enqueue failed")
		}
	}
	return invoiceToResponse(inv), nil
}

// ── Void ─────────────────────────────────────────────────────────────────────

func (s *invoiceService) Void(ctx context.Context, id uuid.UUID, reason string) (*dto.InvoiceResponse, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if inv.Status != model.InvoiceStatusCommitted {
		return nil, ErrInvalidState
	}

	// One compensating delta per line restores the stock the sale consumed.
	invID := inv.ID
	reqs := make([]DeltaRequest, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		reqs = append(reqs, DeltaRequest{
			SKU:       l.SKU,
			Delta:     l.Quantity,
			Reason:    model.DeltaReasonVoid,
			Note:      reason,
			InvoiceID: &invID,
		})
	}

	voidReason := reason
	err = s.ledger.ApplyBatch(ctx, reqs, func(tx *gorm.DB) error {
		return s.invoices.UpdateStatusTx(tx, inv.ID, model.InvoiceStatusVoided, &voidReason)
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inv.Status = model.InvoiceStatusVoided
	inv.VoidReason = &voidReason
	inv.VoidedAt = &now

	log.Info().
		Str("invoice_id", inv.ID.String()).
		Int64("number", inv.Number).
		Str("reason", reason).
		Msg("invoice voided")

	if s.publisher != nil {
		if err := s.publisher.PublishRollup(ctx, inv.ID); err != nil {
			log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("void rollup enqueue failed")
		}
	}
	return invoiceToResponse(inv), nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *invoiceService) GetByID(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return invoiceToResponse(inv), nil
}

func (s *invoiceService) List(ctx context.Context, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	invoices, total, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		items = append(items, *invoiceToResponse(&invoices[i]))
	}
	return &dto.InvoiceListResponse{Data: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// priceLine prices quantity units: subtotal = unit price × qty, tax = subtotal
// × rate rounded half-to-even to the cent. Rounding happens per line, never on
// the invoice totals, so Total = Subtotal + Tax holds exactly.
func priceLine(unitPrice, taxRate decimal.Decimal, qty int) (subtotal, tax decimal.Decimal) {
	subtotal = unitPrice.Mul(decimal.NewFromInt(int64(qty)))
	tax = subtotal.Mul(taxRate).RoundBank(2)
	return subtotal, tax
}

func invoiceToResponse(inv *model.Invoice) *dto.InvoiceResponse {
	lines := make([]dto.InvoiceLineResponse, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, dto.InvoiceLineResponse{
			SKU:          l.SKU,
			Name:         l.Name,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			TaxRate:      l.TaxRate,
			LineSubtotal: l.LineSubtotal,
			LineTax:      l.LineTax,
		})
	}
	return &dto.InvoiceResponse{
		ID:        inv.ID.String(),
		Number:    inv.Number,
		CashierID: inv.CashierID,
		StoreID:   inv.StoreID,
		Lines:     lines,
		Subtotal:  inv.Subtotal,
		Tax:       inv.Tax,
		Total:     inv.Total,
		Status:    inv.Status,
		CreatedAt: inv.CreatedAt.UTC().Format(time.RFC3339),
	}
}
