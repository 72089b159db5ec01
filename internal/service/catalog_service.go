package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/dto"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/model"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	catalogCachePrefix = "catalog:sku:"
	catalogCacheTTL    = 5 * time.Minute
)

// CatalogService is the read-mostly SKU → product lookup backing every scan.
// Lookups go through a redis cache; writes (price changes, deactivation) and
// the Reload hook drop the affected entries so scans re-read fresh data.
type CatalogService interface {
	Lookup(ctx context.Context, sku string) (*model.Product, error)
	// Reload invalidates the whole lookup cache — the hook external data
	// refreshes call after bulk price updates.
	Reload(ctx context.Context) error

	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	repo   repository.ProductRepository
	ledger LedgerService
	rdb    *redis.Client
}

func NewCatalogService(repo repository.ProductRepository, ledger LedgerService, rdb *redis.Client) CatalogService {
	return &catalogService{repo: repo, ledger: ledger, rdb: rdb}
}

// ── Lookup path ──────────────────────────────────────────────────────────────

func (s *catalogService) Lookup(ctx context.Context, sku string) (*model.Product, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, catalogCachePrefix+sku).Result(); err == nil {
			var p model.Product
			if json.Unmarshal([]byte(cached), &p) == nil {
				return &p, nil
			}
		}
	}

	p, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(p); err == nil {
			// Best effort — a cache miss next time is not an error.
			_ = s.rdb.Set(ctx, catalogCachePrefix+sku, data, catalogCacheTTL).Err()
		}
	}
	return p, nil
}

func (s *catalogService) Reload(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	iter := s.rdb.Scan(ctx, 0, catalogCachePrefix+"*", 0).Iterator()
	dropped := 0
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err == nil {
			dropped++
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	log.Info().Int("entries", dropped).Msg("catalog: lookup cache reloaded")
	return nil
}

func (s *catalogService) invalidate(ctx context.Context, sku string) {
	if s.rdb != nil {
		_ = s.rdb.Del(ctx, catalogCachePrefix+sku).Err()
	}
}

// ── Admin CRUD ───────────────────────────────────────────────────────────────

func (s *catalogService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	category := req.Category
	if category == "" {
		category = "general"
	}
	lowStock := req.LowStockLevel
	if lowStock == 0 {
		lowStock = 5
	}
	p := &model.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		Category:      category,
		UnitPrice:     req.UnitPrice,
		TaxRate:       req.TaxRate,
		LowStockLevel: lowStock,
		Active:        true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	// Opening stock enters through the ledger like any other restock, so the
	// delta log stays authoritative from day one.
	if req.InitialStock > 0 {
		if err := s.ledger.Apply(ctx, DeltaRequest{
			SKU:    p.SKU,
			Delta:  req.InitialStock,
			Reason: model.DeltaReasonRestock,
			Note:   "initial stock",
		}); err != nil {
			return nil, err
		}
		p.QuantityOnHand = req.InitialStock
	}
	return productToResponse(p), nil
}

func (s *catalogService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return productToResponse(p), nil
}

func (s *catalogService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, *productToResponse(&products[i]))
	}
	return &dto.ProductListResponse{Data: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *catalogService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.UnitPrice != nil {
		p.UnitPrice = *req.UnitPrice
	}
	if req.TaxRate != nil {
		p.TaxRate = *req.TaxRate
	}
	if req.LowStockLevel != nil {
		p.LowStockLevel = *req.LowStockLevel
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, p.SKU)
	return productToResponse(p), nil
}

func (s *catalogService) Deactivate(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, p.SKU)
	return nil
}

func (s *catalogService) Reactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.Reactivate(ctx, id)
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:             p.ID.String(),
		SKU:            p.SKU,
		Name:           p.Name,
		Description:    p.Description,
		Category:       p.Category,
		UnitPrice:      p.UnitPrice,
		TaxRate:        p.TaxRate,
		QuantityOnHand: p.QuantityOnHand,
		LowStockLevel:  p.LowStockLevel,
		Active:         p.Active,
	}
}
