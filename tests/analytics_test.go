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

type analyticsFixture struct {
	invoices  *stubInvoiceRepo
	rollups   *stubRollupRepo
	filters   service.FilterService
	analytics service.AnalyticsService
}

func buildAnalytics() *analyticsFixture {
	invoices := newStubInvoiceRepo()
	rollups := newStubRollupRepo()
	filters := service.NewFilterService(newStubFilterRepo())
	return &analyticsFixture{
		invoices:  invoices,
		rollups:   rollups,
		filters:   filters,
		analytics: service.NewAnalyticsService(invoices, rollups, filters),
	}
}

// committedInvoice stores a committed invoice with one line directly in the
// stub repo, bypassing the POS flow.
func committedInvoice(f *analyticsFixture, store, cashier, sku string, qty int, subtotal, tax string, at time.Time) *model.Invoice {
	sub := decimal.RequireFromString(subtotal)
	tx := decimal.RequireFromString(tax)
	inv := &model.Invoice{
		ID:          uuid.New(),
		CashierID:   cashier,
		StoreID:     store,
		Subtotal:    sub,
		Tax:         tx,
		Total:       sub.Add(tx),
		Status:      model.InvoiceStatusCommitted,
		RollupState: model.RollupStatePending,
		CommittedAt: at,
		Lines: []model.InvoiceLine{{
			SKU:          sku,
			Name:         sku,
			Quantity:     qty,
			LineSubtotal: sub,
			LineTax:      tx,
		}},
	}
	_ = f.invoices.CreateTx(nil, inv)
	return inv
}

func daySummary(t *testing.T, f *analyticsFixture, day time.Time, filter dto.SummaryFilter) *dto.SummaryResponse {
	t.Helper()
	filter.Granularity = model.GranularityDay
	filter.From = day.Format(time.RFC3339)
	filter.To = day.AddDate(0, 0, 1).Format(time.RFC3339)
	resp, err := f.analytics.Query(context.Background(), filter)
	require.NoError(t, err)
	return resp
}

var testDay = time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC)

func TestIngestIsIdempotentUnderRedelivery(t *testing.T) {
	f := buildAnalytics()
	ctx := context.Background()
	inv := committedInvoice(f, "store-1", "cashier-1", "RICE-5KG", 2, "37.00", "1.85", testDay.Add(10*time.Hour))

	require.NoError(t, f.analytics.Ingest(ctx, inv.ID))
	// Redelivery: the state is already applied, so nothing is added.
	require.NoError(t, f.analytics.Ingest(ctx, inv.ID))
	require.NoError(t, f.analytics.Ingest(ctx, inv.ID))

	resp := daySummary(t, f, testDay, dto.SummaryFilter{})
	assert.Equal(t, int64(1), resp.InvoiceCount)
	assert.Equal(t, "38.85", resp.Total.String())
}

func TestIngestUnknownInvoice(t *testing.T) {
	f := buildAnalytics()
	err := f.analytics.Ingest(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestVoidEventNetsToZero(t *testing.T) {
	f := buildAnalytics()
	ctx := context.Background()
	inv := committedInvoice(f, "store-1", "cashier-1", "OIL-1L", 4, "19.00", "0.95", testDay.Add(9*time.Hour))

	require.NoError(t, f.analytics.Ingest(ctx, inv.ID))
	require.NoError(t, f.invoices.UpdateStatusTx(nil, inv.ID, model.InvoiceStatusVoided, nil))
	require.NoError(t, f.analytics.Ingest(ctx, inv.ID))

	resp := daySummary(t, f, testDay, dto.SummaryFilter{})
	assert.Equal(t, int64(0), resp.InvoiceCount)
	assert.True(t, resp.Total.IsZero(), "void compensation must cancel exactly, got %s", resp.Total)
}

func TestVoidBeforeIngestWritesNothing(t *testing.T) {
	f := buildAnalytics()
	ctx := context.Background()
	inv := committedInvoice(f, "store-1", "cashier-1", "OIL-1L", 1, "4.75", "0.24", testDay.Add(9*time.Hour))

	// Voided while the commit event was still queued: the state jumps straight
	// to void_applied and both events become no-ops.
	require.NoError(t, f.invoices.UpdateStatusTx(nil, inv.ID, model.InvoiceStatusVoided, nil))
	require.NoError(t, f.analytics.Ingest(ctx, inv.ID))
	require.NoError(t, f.analytics.Ingest(ctx, inv.ID))

	n, err := f.rollups.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQuerySeparatesInvoiceAndLineFamilies(t *testing.T) {
	f := buildAnalytics()
	ctx := context.Background()

	// Two invoices, one with 3 units of the SKU, one with 2.
	a := committedInvoice(f, "store-1", "cashier-1", "MILK-1L", 3, "3.60", "0.00", testDay.Add(8*time.Hour))
	b := committedInvoice(f, "store-1", "cashier-2", "MILK-1L", 2, "2.40", "0.00", testDay.Add(14*time.Hour))
	require.NoError(t, f.analytics.Ingest(ctx, a.ID))
	require.NoError(t, f.analytics.Ingest(ctx, b.ID))

	// Invoice-level family: counts invoices.
	resp := daySummary(t, f, testDay, dto.SummaryFilter{})
	assert.Equal(t, int64(2), resp.InvoiceCount)
	assert.Equal(t, "6", resp.Total.String())

	// Line-level family: counts units sold of the SKU.
	resp = daySummary(t, f, testDay, dto.SummaryFilter{SKU: "MILK-1L"})
	assert.Equal(t, int64(5), resp.InvoiceCount)
	assert.Equal(t, "6", resp.Total.String())
}

func TestQueryFiltersByDimension(t *testing.T) {
	f := buildAnalytics()
	ctx := context.Background()

	a := committedInvoice(f, "store-1", "cashier-1", "RICE-5KG", 1, "18.50", "0.93", testDay.Add(8*time.Hour))
	b := committedInvoice(f, "store-2", "cashier-2", "RICE-5KG", 1, "18.50", "0.93", testDay.Add(8*time.Hour))
	require.NoError(t, f.analytics.Ingest(ctx, a.ID))
	require.NoError(t, f.analytics.Ingest(ctx, b.ID))

	resp := daySummary(t, f, testDay, dto.SummaryFilter{StoreID: "store-2"})
	assert.Equal(t, int64(1), resp.InvoiceCount)

	resp = daySummary(t, f, testDay, dto.SummaryFilter{CashierID: "cashier-1"})
	assert.Equal(t, int64(1), resp.InvoiceCount)
}

func TestQueryRejectsUnknownFilterValue(t *testing.T) {
	f := buildAnalytics()
	ctx := context.Background()
	inv := committedInvoice(f, "store-1", "cashier-1", "RICE-5KG", 1, "18.50", "0.93", testDay.Add(8*time.Hour))
	require.NoError(t, f.analytics.Ingest(ctx, inv.ID))

	_, err := f.analytics.Query(ctx, dto.SummaryFilter{StoreID: "store-99"})
	assert.ErrorIs(t, err, service.ErrInvalidFilter)

	_, err = f.analytics.Query(ctx, dto.SummaryFilter{SKU: "UNSEEN-SKU"})
	assert.ErrorIs(t, err, service.ErrInvalidFilter)
}

func TestQueryRejectsInvertedRange(t *testing.T) {
	f := buildAnalytics()
	_, err := f.analytics.Query(context.Background(), dto.SummaryFilter{
		From: "2026-08-14T00:00:00Z",
		To:   "2026-08-13T00:00:00Z",
	})
	assert.ErrorIs(t, err, service.ErrInvalidFilter)

	_, err = f.analytics.Query(context.Background(), dto.SummaryFilter{From: "not-a-time"})
	assert.ErrorIs(t, err, service.ErrInvalidFilter)
}

func TestHourGranularityBuckets(t *testing.T) {
	f := buildAnalytics()
	ctx := context.Background()

	a := committedInvoice(f, "store-1", "cashier-1", "TEA-250G", 1, "3.40", "0.17", testDay.Add(9*time.Hour+15*time.Minute))
	b := committedInvoice(f, "store-1", "cashier-1", "TEA-250G", 1, "3.40", "0.17", testDay.Add(9*time.Hour+45*time.Minute))
	c := committedInvoice(f, "store-1", "cashier-1", "TEA-250G", 1, "3.40", "0.17", testDay.Add(11*time.Hour))
	require.NoError(t, f.analytics.Ingest(ctx, a.ID))
	require.NoError(t, f.analytics.Ingest(ctx, b.ID))
	require.NoError(t, f.analytics.Ingest(ctx, c.ID))

	resp, err := f.analytics.Query(ctx, dto.SummaryFilter{
		Granularity: model.GranularityHour,
		From:        testDay.Format(time.RFC3339),
		To:          testDay.AddDate(0, 0, 1).Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.Len(t, resp.Buckets, 2)
	assert.Equal(t, int64(2), resp.Buckets[0].InvoiceCount)
	assert.Equal(t, int64(1), resp.Buckets[1].InvoiceCount)
	assert.Equal(t, int64(3), resp.InvoiceCount)
}

func TestRebuildMatchesIncrementalIngest(t *testing.T) {
	f := buildAnalytics()
	ctx := context.Background()

	a := committedInvoice(f, "store-1", "cashier-1", "RICE-5KG", 2, "37.00", "1.85", testDay.Add(8*time.Hour))
	b := committedInvoice(f, "store-1", "cashier-2", "OIL-1L", 1, "4.75", "0.24", testDay.Add(9*time.Hour))
	v := committedInvoice(f, "store-2", "cashier-3", "MILK-1L", 1, "1.20", "0.00", testDay.Add(10*time.Hour))
	require.NoError(t, f.analytics.Ingest(ctx, a.ID))
	require.NoError(t, f.analytics.Ingest(ctx, b.ID))
	require.NoError(t, f.analytics.Ingest(ctx, v.ID))
	require.NoError(t, f.invoices.UpdateStatusTx(nil, v.ID, model.InvoiceStatusVoided, nil))
	require.NoError(t, f.analytics.Ingest(ctx, v.ID))

	before := daySummary(t, f, testDay, dto.SummaryFilter{})

	resp, err := f.analytics.Rebuild(ctx)
	require.NoError(t, err)
	assert.True(t, resp.Verified)
	assert.Equal(t, int64(2), resp.InvoicesReplayed, "voided invoices are skipped on replay")

	after := daySummary(t, f, testDay, dto.SummaryFilter{})
	assert.Equal(t, before.InvoiceCount, after.InvoiceCount)
	assert.Equal(t, before.Total.String(), after.Total.String())
}

func TestVerifyDetectsDivergence(t *testing.T) {
	f := buildAnalytics()
	ctx := context.Background()

	inv := committedInvoice(f, "store-1", "cashier-1", "RICE-5KG", 1, "18.50", "0.93", testDay.Add(8*time.Hour))
	require.NoError(t, f.analytics.Ingest(ctx, inv.ID))

	ok, err := f.analytics.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Inject a phantom bucket the invoice history cannot explain.
	require.NoError(t, f.rollups.AddToBuckets(ctx, []model.RollupBucket{{
		Granularity:  model.GranularityDay,
		BucketStart:  testDay,
		StoreID:      "store-1",
		CashierID:    "cashier-1",
		SKU:          "",
		InvoiceCount: 1,
		Total:        decimal.RequireFromString("100.00"),
	}}))

	_, err = f.analytics.Verify(ctx)
	assert.ErrorIs(t, err, service.ErrInvariantViolation)
}

func TestIngestExhaustionParksInvoiceInError(t *testing.T) {
	f := buildAnalytics()
	ctx := context.Background()
	inv := committedInvoice(f, "store-1", "cashier-1", "RICE-5KG", 1, "18.50", "0.93", testDay.Add(8*time.Hour))

	f.invoices.mu.Lock()
	f.invoices.invoices[inv.ID].RollupRetries = 5
	f.invoices.mu.Unlock()
	f.rollups.failNext = true

	require.Error(t, f.analytics.Ingest(ctx, inv.ID))

	stored, err := f.invoices.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RollupStateError, stored.RollupState)
	assert.Nil(t, stored.NextRetryAt)
}
