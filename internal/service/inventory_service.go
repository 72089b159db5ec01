package service

import (
	"context"
	"errors"
	"time"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/dto"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/model"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/repository"

	"gorm.io/gorm"
)

// InventoryService is the back-office face of the stock ledger: restocks,
// count corrections, the delta log and low-stock alerts. All mutation funnels
// through the ledger so every change leaves an append-only trail.
type InventoryService interface {
	Restock(ctx context.Context, req dto.RestockRequest) error
	Adjust(ctx context.Context, req dto.AdjustStockRequest) error
	ListDeltas(ctx context.Context, filter repository.DeltaFilter) (*dto.DeltaListResponse, error)
	LowStockAlerts(ctx context.Context) ([]dto.StockAlertResponse, error)
	VerifyStock(ctx context.Context, sku string) error
}

type inventoryService struct {
	ledger   LedgerService
	products repository.ProductRepository
	deltas   repository.InventoryDeltaRepository
}

func NewInventoryService(ledger LedgerService, products repository.ProductRepository, deltas repository.InventoryDeltaRepository) InventoryService {
	return &inventoryService{ledger: ledger, products: products, deltas: deltas}
}

func (s *inventoryService) Restock(ctx context.Context, req dto.RestockRequest) error {
	if err := s.ensureExists(ctx, req.SKU); err != nil {
		return err
	}
	return s.ledger.Apply(ctx, DeltaRequest{
		SKU:    req.SKU,
		Delta:  req.Quantity,
		Reason: model.DeltaReasonRestock,
		Note:   req.Note,
	})
}

func (s *inventoryService) Adjust(ctx context.Context, req dto.AdjustStockRequest) error {
	if err := s.ensureExists(ctx, req.SKU); err != nil {
		return err
	}
	return s.ledger.Apply(ctx, DeltaRequest{
		SKU:    req.SKU,
		Delta:  req.Delta,
		Reason: model.DeltaReasonAdjustment,
		Note:   req.Note,
	})
}

func (s *inventoryService) ensureExists(ctx context.Context, sku string) error {
	_, err := s.products.FindBySKU(ctx, sku)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *inventoryService) ListDeltas(ctx context.Context, filter repository.DeltaFilter) (*dto.DeltaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 100
	}
	deltas, total, err := s.deltas.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.DeltaResponse, 0, len(deltas))
	for _, d := range deltas {
		item := dto.DeltaResponse{
			ID:          d.ID.String(),
			SKU:         d.SKU,
			Delta:       d.Delta,
			Reason:      d.Reason,
			StockBefore: d.StockBefore,
			StockAfter:  d.StockAfter,
			Note:        d.Note,
			CreatedAt:   d.CreatedAt.UTC().Format(time.RFC3339),
		}
		if d.InvoiceID != nil {
			id := d.InvoiceID.String()
			item.InvoiceID = &id
		}
		items = append(items, item)
	}
	return &dto.DeltaListResponse{Data: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *inventoryService) LowStockAlerts(ctx context.Context) ([]dto.StockAlertResponse, error) {
	products, err := s.products.ListBelowLowStock(ctx)
	if err != nil {
		return nil, err
	}
	alerts := make([]dto.StockAlertResponse, 0, len(products))
	for _, p := range products {
		alerts = append(alerts, dto.StockAlertResponse{
			SKU:            p.SKU,
			Name:           p.Name,
			QuantityOnHand: p.QuantityOnHand,
			LowStockLevel:  p.LowStockLevel,
		})
	}
	return alerts, nil
}

func (s *inventoryService) VerifyStock(ctx context.Context, sku string) error {
	if err := s.ensureExists(ctx, sku); err != nil {
		return err
	}
	return s.ledger.VerifyStock(ctx, sku)
}
