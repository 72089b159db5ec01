package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/dto"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/model"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// FilterService maintains the set of dimension values observed in committed
// invoices. Analytics queries validate their filters against it, so a query
// can never reference a store, cashier or SKU that no invoice ever produced.
//
// Values are held in memory behind a RWMutex (validation sits on the query
// hot path) and persisted append-only so the set survives restarts. Values
// are never removed: a dimension value observed once stays queryable even
// after the product is deactivated or the cashier leaves.
type FilterService interface {
	// Register records the dimension values of a committed invoice. Idempotent.
	Register(ctx context.Context, storeID, cashierID string, skus []string) error
	// Validate rejects filters whose values were never observed.
	Validate(filter dto.SummaryFilter) error
	ListDimensions() dto.FilterCatalogResponse
	// Load hydrates the in-memory sets from the persisted values. Called once
	// at startup and again after a rollup rebuild.
	Load(ctx context.Context) error
}

type filterService struct {
	repo repository.FilterRepository

	mu   sync.RWMutex
	sets map[string]map[string]struct{}
}

func NewFilterService(repo repository.FilterRepository) FilterService {
	return &filterService{
		repo: repo,
		sets: map[string]map[string]struct{}{
			model.DimensionStore:   {},
			model.DimensionCashier: {},
			model.DimensionSKU:     {},
		},
	}
}

func (s *filterService) Load(ctx context.Context) error {
	values, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		set, ok := s.sets[v.Dimension]
		if !ok {
			set = map[string]struct{}{}
			s.sets[v.Dimension] = set
		}
		set[v.Value] = struct{}{}
	}
	log.Info().Int("values", len(values)).Msg("filter catalog loaded")
	return nil
}

func (s *filterService) Register(ctx context.Context, storeID, cashierID string, skus []string) error {
	type pair struct{ dimension, value string }
	pairs := []pair{
		{model.DimensionStore, storeID},
		{model.DimensionCashier, cashierID},
	}
	for _, sku := range skus {
		pairs = append(pairs, pair{model.DimensionSKU, sku})
	}

	// Check under the read lock first; the common case after warm-up is that
	// every value is already known and no write happens at all.
	s.mu.RLock()
	var missing []pair
	for _, p := range pairs {
		if _, ok := s.sets[p.dimension][p.value]; !ok {
			missing = append(missing, p)
		}
	}
	s.mu.RUnlock()
	if len(missing) == 0 {
		return nil
	}

	for _, p := range missing {
		if err := s.repo.Insert(ctx, p.dimension, p.value); err != nil {
			return err
		}
	}
	s.mu.Lock()
	for _, p := range missing {
		s.sets[p.dimension][p.value] = struct{}{}
	}
	s.mu.Unlock()
	return nil
}

func (s *filterService) Validate(filter dto.SummaryFilter) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	checks := []struct{ dimension, value string }{
		{model.DimensionStore, filter.StoreID},
		{model.DimensionCashier, filter.CashierID},
		{model.DimensionSKU, filter.SKU},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		if _, ok := s.sets[c.dimension][c.value]; !ok {
			return fmt.Errorf("%w: %s=%q", ErrInvalidFilter, c.dimension, c.value)
		}
	}
	return nil
}

func (s *filterService) ListDimensions() dto.FilterCatalogResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dimensions := []string{model.DimensionStore, model.DimensionCashier, model.DimensionSKU}
	resp := dto.FilterCatalogResponse{Dimensions: make([]dto.FilterDimensionResponse, 0, len(dimensions))}
	for _, dim := range dimensions {
		values := make([]string, 0, len(s.sets[dim]))
		for v := range s.sets[dim] {
			values = append(values, v)
		}
		sort.Strings(values)
		resp.Dimensions = append(resp.Dimensions, dto.FilterDimensionResponse{Name: dim, AllowedValues: values})
	}
	return resp
}
