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

const replayBatchSize = 500

// AnalyticsService maintains the rollup buckets committed invoices feed and
// answers summary queries from them. Reads never touch invoice rows; they are
// served entirely from the pre-aggregated table.
type AnalyticsService interface {
	// Ingest applies one invoice event to the buckets exactly once. It is
	// idempotent under queue redelivery: the rollup-state transition on the
	// invoice row gates the bucket write.
	Ingest(ctx context.Context, invoiceID uuid.UUID) error
	Query(ctx context.Context, filter dto.SummaryFilter) (*dto.SummaryResponse, error)
	// Rebuild discards all buckets and replays committed invoices in commit
	// order, then verifies the result against the invoice table.
	Rebuild(ctx context.Context) (*dto.RebuildResponse, error)
	Verify(ctx context.Context) (bool, error)
}

type analyticsService struct {
	invoices repository.InvoiceRepository
	rollups  repository.RollupRepository
	filters  FilterService
}

func NewAnalyticsService(invoices repository.InvoiceRepository, rollups repository.RollupRepository, filters FilterService) AnalyticsService {
	return &analyticsService{invoices: invoices, rollups: rollups, filters: filters}
}

// ── Ingest ───────────────────────────────────────────────────────────────────

func (s *analyticsService) Ingest(ctx context.Context, invoiceID uuid.UUID) error {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var from, to string
	sign := 1
	switch inv.RollupState {
	case model.RollupStatePending:
		from, to = model.RollupStatePending, model.RollupStateApplied
	case model.RollupStateVoidPending:
		from, to = model.RollupStateVoidPending, model.RollupStateVoidApplied
		sign = -1
	default:
		// Already applied (redelivery) or parked in error. Nothing to do.
		log.Debug().Str("invoice_id", invoiceID.String()).Str("state", inv.RollupState).
			Msg("rollup: event skipped")
		return nil
	}

	// Claim the event first. A concurrent worker holding the same delivery
	// loses the CAS and walks away; the additive upsert below then runs at
	// most once per transition.
	owned, err := s.invoices.CompareAndSetRollupState(ctx, inv.ID, from, to)
	if err != nil {
		return err
	}
	if !owned {
		return nil
	}

	if err := s.rollups.AddToBuckets(ctx, bucketContributions(inv, sign)); err != nil {
		// Hand the event back so the retry cron can re-claim it.
		retry := time.Now().UTC().Add(backoff(inv.RollupRetries))
		if markErr := s.invoices.MarkRollupFailure(ctx, inv.ID, from, err.Error(), &retry, inv.RollupRetries >= maxRollupRetries); markErr != nil {
			log.Error().Err(markErr).Str("invoice_id", inv.ID.String()).Msg("rollup: failure bookkeeping failed")
		}
		return err
	}

	if sign > 0 {
		skus := make([]string, 0, len(inv.Lines))
		for _, l := range inv.Lines {
			skus = append(skus, l.SKU)
		}
		if err := s.filters.Register(ctx, inv.StoreID, inv.CashierID, skus); err != nil {
			// Buckets are written; a filter gap only blocks queries for the new
			// value until the next invoice re-registers it.
			log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("rollup: filter registration failed")
		}
	}
	return nil
}

const maxRollupRetries = 5

// backoff doubles per attempt: 30s, 1m, 2m, 4m, 8m.
func backoff(retries int) time.Duration {
	d := 30 * time.Second
	for i := 0; i < retries && d < 8*time.Minute; i++ {
		d *= 2
	}
	return d
}

// bucketContributions expands one invoice into its additive bucket rows:
// for each granularity, one invoice-level row (SKU = "") plus one line-level
// row per line. sign = -1 yields the exact negation, the void compensation.
func bucketContributions(inv *model.Invoice, sign int) []model.RollupBucket {
	granularities := []string{model.GranularityHour, model.GranularityDay, model.GranularityMonth}
	buckets := make([]model.RollupBucket, 0, len(granularities)*(1+len(inv.Lines)))
	mult := decimal.NewFromInt(int64(sign))

	for _, g := range granularities {
		start := bucketStart(g, inv.CommittedAt)
		buckets = append(buckets, model.RollupBucket{
			Granularity:  g,
			BucketStart:  start,
			StoreID:      inv.StoreID,
			CashierID:    inv.CashierID,
			SKU:          "",
			InvoiceCount: int64(sign),
			Subtotal:     inv.Subtotal.Mul(mult),
			Tax:          inv.Tax.Mul(mult),
			Total:        inv.Total.Mul(mult),
		})
		for _, l := range inv.Lines {
			buckets = append(buckets, model.RollupBucket{
				Granularity:  g,
				BucketStart:  start,
				StoreID:      inv.StoreID,
				CashierID:    inv.CashierID,
				SKU:          l.SKU,
				InvoiceCount: int64(sign * l.Quantity),
				Subtotal:     l.LineSubtotal.Mul(mult),
				Tax:          l.LineTax.Mul(mult),
				Total:        l.LineSubtotal.Add(l.LineTax).Mul(mult),
			})
		}
	}
	return buckets
}

func bucketStart(granularity string, t time.Time) time.Time {
	t = t.UTC()
	switch granularity {
	case model.GranularityHour:
		return t.Truncate(time.Hour)
	case model.GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // day
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// ── Query ────────────────────────────────────────────────────────────────────

func (s *analyticsService) Query(ctx context.Context, filter dto.SummaryFilter) (*dto.SummaryResponse, error) {
	if err := s.filters.Validate(filter); err != nil {
		return nil, err
	}

	granularity := filter.Granularity
	if granularity == "" {
		granularity = model.GranularityDay
	}

	from, to, err := summaryRange(filter.From, filter.To)
	if err != nil {
		return nil, err
	}

	rows, err := s.rollups.Query(ctx, repository.RollupQuery{
		Granularity: granularity,
		From:        from,
		To:          to,
		StoreID:     filter.StoreID,
		CashierID:   filter.CashierID,
		SKU:         filter.SKU,
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.SummaryResponse{
		Granularity: granularity,
		From:        from.Format(time.RFC3339),
		To:          to.Format(time.RFC3339),
		Buckets:     make([]dto.SummaryBucket, 0, len(rows)),
	}
	for _, row := range rows {
		resp.InvoiceCount += row.InvoiceCount
		resp.Subtotal = resp.Subtotal.Add(row.Subtotal)
		resp.Tax = resp.Tax.Add(row.Tax)
		resp.Total = resp.Total.Add(row.Total)
		resp.Buckets = append(resp.Buckets, dto.SummaryBucket{
			BucketStart:  row.BucketStart.UTC().Format(time.RFC3339),
			InvoiceCount: row.InvoiceCount,
			Subtotal:     row.Subtotal,
			Tax:          row.Tax,
			Total:        row.Total,
		})
	}
	return resp, nil
}

func summaryRange(fromStr, toStr string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	if fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidFilter
		}
		from = t.UTC()
	}
	if toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidFilter
		}
		to = t.UTC()
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, ErrInvalidFilter
	}
	return from, to, nil
}

// ── Rebuild / Verify ─────────────────────────────────────────────────────────

func (s *analyticsService) Rebuild(ctx context.Context) (*dto.RebuildResponse, error) {
	log.Info().Msg("rollup rebuild: truncating buckets")
	if err := s.rollups.Truncate(ctx); err != nil {
		return nil, err
	}

	var replayed int64
	after := time.Time{}
	for {
		batch, err := s.invoices.ListCommittedInOrder(ctx, replayBatchSize, after)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		for i := range batch {
			inv := &batch[i]
			// A voided invoice's + and - contributions cancel exactly, so
			// replay writes neither.
			if inv.Status == model.InvoiceStatusVoided {
				continue
			}
			if err := s.rollups.AddToBuckets(ctx, bucketContributions(inv, 1)); err != nil {
				return nil, err
			}
			replayed++
			skus := make([]string, 0, len(inv.Lines))
			for _, l := range inv.Lines {
				skus = append(skus, l.SKU)
			}
			if err := s.filters.Register(ctx, inv.StoreID, inv.CashierID, skus); err != nil {
				return nil, err
			}
		}
		after = batch[len(batch)-1].CommittedAt
	}

	if err := s.invoices.NormalizeRollupStates(ctx); err != nil {
		return nil, err
	}

	written, err := s.rollups.Count(ctx)
	if err != nil {
		return nil, err
	}
	verified, err := s.Verify(ctx)
	if err != nil {
		return nil, err
	}

	log.Info().Int64("invoices", replayed).Int64("buckets", written).Bool("verified", verified).
		Msg("rollup rebuild complete")
	return &dto.RebuildResponse{InvoicesReplayed: replayed, BucketsWritten: written, Verified: verified}, nil
}

// Verify folds the day-granularity invoice-level buckets and compares the
// grand totals against a direct scan of committed invoices. A mismatch means
// incremental ingest diverged from replay.
func (s *analyticsService) Verify(ctx context.Context) (bool, error) {
	buckets, err := s.rollups.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	var bucketCount int64
	bucketTotal := decimal.Zero
	for _, b := range buckets {
		if b.Granularity != model.GranularityDay || b.SKU != "" {
			continue
		}
		bucketCount += b.InvoiceCount
		bucketTotal = bucketTotal.Add(b.Total)
	}

	var invoiceCount int64
	invoiceTotal := decimal.Zero
	after := time.Time{}
	for {
		batch, err := s.invoices.ListCommittedInOrder(ctx, replayBatchSize, after)
		if err != nil {
			return false, err
		}
		if len(batch) == 0 {
			break
		}
		for i := range batch {
			if batch[i].Status != model.InvoiceStatusCommitted {
				continue
			}
			invoiceCount++
			invoiceTotal = invoiceTotal.Add(batch[i].Total)
		}
		after = batch[len(batch)-1].CommittedAt
	}

	if bucketCount != invoiceCount || !bucketTotal.Equal(invoiceTotal) {
		log.Error().
			Int64("bucket_count", bucketCount).
			Int64("invoice_count", invoiceCount).
			Str("bucket_total", bucketTotal.String()).
			Str("invoice_total", invoiceTotal.String()).
			Msg("rollup verify: buckets diverged from invoice history")
		return false, ErrInvariantViolation
	}
	return true, nil
}
