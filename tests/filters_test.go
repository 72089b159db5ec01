package tests

import (
	"context"
	"testing"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/dto"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/model"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterThenValidate(t *testing.T) {
	filters := service.NewFilterService(newStubFilterRepo())
	ctx := context.Background()

	require.NoError(t, filters.Register(ctx, "store-1", "cashier-1", []string{"RICE-5KG", "OIL-1L"}))

	assert.NoError(t, filters.Validate(dto.SummaryFilter{StoreID: "store-1"}))
	assert.NoError(t, filters.Validate(dto.SummaryFilter{CashierID: "cashier-1", SKU: "OIL-1L"}))
	assert.NoError(t, filters.Validate(dto.SummaryFilter{}), "empty filters are always valid")

	err := filters.Validate(dto.SummaryFilter{StoreID: "store-2"})
	assert.ErrorIs(t, err, service.ErrInvalidFilter)
	assert.Contains(t, err.Error(), "store-2")
}

func TestRegisterIsIdempotent(t *testing.T) {
	repo := newStubFilterRepo()
	filters := service.NewFilterService(repo)
	ctx := context.Background()

	require.NoError(t, filters.Register(ctx, "store-1", "cashier-1", []string{"MILK-1L"}))
	require.NoError(t, filters.Register(ctx, "store-1", "cashier-1", []string{"MILK-1L"}))

	values, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, values, 3)
}

func TestListDimensionsSortsValues(t *testing.T) {
	filters := service.NewFilterService(newStubFilterRepo())
	ctx := context.Background()

	require.NoError(t, filters.Register(ctx, "store-2", "cashier-9", []string{"TEA-250G"}))
	require.NoError(t, filters.Register(ctx, "store-1", "cashier-2", []string{"ATTA-10KG"}))

	catalog := filters.ListDimensions()
	require.Len(t, catalog.Dimensions, 3)

	byName := map[string][]string{}
	for _, d := range catalog.Dimensions {
		byName[d.Name] = d.AllowedValues
	}
	assert.Equal(t, []string{"store-1", "store-2"}, byName[model.DimensionStore])
	assert.Equal(t, []string{"cashier-2", "cashier-9"}, byName[model.DimensionCashier])
	assert.Equal(t, []string{"ATTA-10KG", "TEA-250G"}, byName[model.DimensionSKU])
}

func TestLoadHydratesPersistedValues(t *testing.T) {
	repo := newStubFilterRepo()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, model.DimensionStore, "store-7"))
	require.NoError(t, repo.Insert(ctx, model.DimensionSKU, "SOAP-BAR"))

	// Fresh service, as after a restart: values come back from the repo.
	filters := service.NewFilterService(repo)
	assert.ErrorIs(t, filters.Validate(dto.SummaryFilter{StoreID: "store-7"}), service.ErrInvalidFilter)

	require.NoError(t, filters.Load(ctx))
	assert.NoError(t, filters.Validate(dto.SummaryFilter{StoreID: "store-7", SKU: "SOAP-BAR"}))
}
