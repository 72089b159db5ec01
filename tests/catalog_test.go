package tests

import (
	"context"
	"testing"
	"time"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/dto"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/model"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCatalog() (service.CatalogService, *stubProductRepo, *stubDeltaRepo) {
	products := newStubProductRepo()
	deltas := &stubDeltaRepo{}
	ledger := service.NewLedgerService(products, deltas, time.Minute)
	return service.NewCatalogService(products, ledger, nil), products, deltas
}

func TestLookupUnknownSKU(t *testing.T) {
	catalog, _, _ := buildCatalog()
	_, err := catalog.Lookup(context.Background(), "NOPE")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestLookupSkipsInactiveProducts(t *testing.T) {
	catalog, products, _ := buildCatalog()
	p := seedProduct(products, "SOAP-BAR", "Bath Soap", "0.90", "0.18", 10)
	ctx := context.Background()

	got, err := catalog.Lookup(ctx, "SOAP-BAR")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	require.NoError(t, catalog.Deactivate(ctx, p.ID))
	_, err = catalog.Lookup(ctx, "SOAP-BAR")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCreateRoutesInitialStockThroughLedger(t *testing.T) {
	catalog, products, deltas := buildCatalog()
	ctx := context.Background()

	resp, err := catalog.Create(ctx, dto.CreateProductRequest{
		SKU:          "SUGAR-1KG",
		Name:         "Sugar 1kg",
		UnitPrice:    decimal.RequireFromString("2.10"),
		TaxRate:      decimal.RequireFromString("0.05"),
		InitialStock: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, resp.QuantityOnHand)
	assert.Equal(t, "general", resp.Category)
	assert.Equal(t, 5, resp.LowStockLevel)

	// Opening stock is a restock row, not a direct column write.
	require.Len(t, deltas.deltas, 1)
	assert.Equal(t, model.DeltaReasonRestock, deltas.deltas[0].Reason)
	assert.Equal(t, 25, deltas.deltas[0].Delta)

	stock, err := products.StockBySKUTx(nil, "SUGAR-1KG")
	require.NoError(t, err)
	assert.Equal(t, 25, stock)
}

func TestCreateWithoutInitialStock(t *testing.T) {
	catalog, _, deltas := buildCatalog()

	resp, err := catalog.Create(context.Background(), dto.CreateProductRequest{
		SKU:       "SALT-500G",
		Name:      "Salt 500g",
		UnitPrice: decimal.RequireFromString("0.60"),
	})
	require.NoError(t, err)
	assert.Zero(t, resp.QuantityOnHand)
	assert.Empty(t, deltas.deltas)
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	catalog, products, _ := buildCatalog()
	p := seedProduct(products, "TEA-250G", "Black Tea 250g", "3.40", "0.05", 10)
	ctx := context.Background()

	newPrice := decimal.RequireFromString("3.75")
	resp, err := catalog.Update(ctx, p.ID, dto.UpdateProductRequest{UnitPrice: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, "3.75", resp.UnitPrice.String())
	assert.Equal(t, "Black Tea 250g", resp.Name, "unset fields stay untouched")
	assert.Equal(t, 10, resp.QuantityOnHand)
}

func TestUpdateUnknownProduct(t *testing.T) {
	catalog, _, _ := buildCatalog()
	name := "x"
	_, err := catalog.Update(context.Background(), uuid.New(), dto.UpdateProductRequest{Name: &name})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDeactivateThenReactivate(t *testing.T) {
	catalog, products, _ := buildCatalog()
	p := seedProduct(products, "MILK-1L", "Milk 1L", "1.20", "0.00", 5)
	ctx := context.Background()

	require.NoError(t, catalog.Deactivate(ctx, p.ID))
	list, err := catalog.List(ctx, dto.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, list.Data)

	require.NoError(t, catalog.Reactivate(ctx, p.ID))
	_, err = catalog.Lookup(ctx, "MILK-1L")
	assert.NoError(t, err)
}
