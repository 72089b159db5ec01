package tests

import (
	"context"
	"testing"
	"time"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/dto"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/model"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/repository"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildInventory() (service.InventoryService, *stubProductRepo, *stubDeltaRepo) {
	products := newStubProductRepo()
	deltas := &stubDeltaRepo{}
	ledger := service.NewLedgerService(products, deltas, time.Minute)
	return service.NewInventoryService(ledger, products, deltas), products, deltas
}

func TestRestockUnknownSKU(t *testing.T) {
	inventory, _, _ := buildInventory()
	err := inventory.Restock(context.Background(), dto.RestockRequest{SKU: "NOPE", Quantity: 10})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestRestockAndListDeltas(t *testing.T) {
	inventory, products, _ := buildInventory()
	seedProduct(products, "RICE-5KG", "Basmati Rice 5kg", "18.50", "0.05", 5)
	ctx := context.Background()

	require.NoError(t, inventory.Restock(ctx, dto.RestockRequest{SKU: "RICE-5KG", Quantity: 20, Note: "weekly delivery"}))
	require.NoError(t, inventory.Adjust(ctx, dto.AdjustStockRequest{SKU: "RICE-5KG", Delta: -3, Note: "torn bags written off"}))

	list, err := inventory.ListDeltas(ctx, repository.DeltaFilter{SKU: "RICE-5KG"})
	require.NoError(t, err)
	require.Len(t, list.Data, 2)
	assert.Equal(t, model.DeltaReasonRestock, list.Data[0].Reason)
	assert.Equal(t, "weekly delivery", list.Data[0].Note)
	assert.Equal(t, model.DeltaReasonAdjustment, list.Data[1].Reason)

	// Filter by reason narrows the log.
	list, err = inventory.ListDeltas(ctx, repository.DeltaFilter{Reason: model.DeltaReasonAdjustment})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, -3, list.Data[0].Delta)
}

func TestAdjustBelowZeroRejected(t *testing.T) {
	inventory, products, _ := buildInventory()
	seedProduct(products, "OIL-1L", "Cooking Oil 1L", "4.75", "0.05", 2)

	err := inventory.Adjust(context.Background(), dto.AdjustStockRequest{SKU: "OIL-1L", Delta: -5, Note: "count correction"})
	assert.ErrorIs(t, err, service.ErrInsufficientStock)
}

func TestLowStockAlerts(t *testing.T) {
	inventory, products, _ := buildInventory()
	seedProduct(products, "MILK-1L", "Milk 1L", "1.20", "0.00", 3)   // at/below level 5
	seedProduct(products, "TEA-250G", "Black Tea 250g", "3.40", "0.05", 40)

	alerts, err := inventory.LowStockAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "MILK-1L", alerts[0].SKU)
	assert.Equal(t, 3, alerts[0].QuantityOnHand)
}

func TestVerifyStockEndToEnd(t *testing.T) {
	inventory, products, _ := buildInventory()
	seedProduct(products, "SOAP-BAR", "Bath Soap", "0.90", "0.18", 0)
	ctx := context.Background()

	require.NoError(t, inventory.Restock(ctx, dto.RestockRequest{SKU: "SOAP-BAR", Quantity: 12}))
	assert.NoError(t, inventory.VerifyStock(ctx, "SOAP-BAR"))

	assert.ErrorIs(t, inventory.VerifyStock(ctx, "NOPE"), service.ErrNotFound)
}
