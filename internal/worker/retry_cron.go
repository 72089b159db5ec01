package worker

// retry_cron.go
// Background goroutine that periodically re-attempts analytics ingestion for
// invoices stuck in pending / void_pending with a next_retry_at in the past.
// Exhausted events are parked in the error state and copied to the DLQ.

import (
	"context"
	"fmt"
	"time"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/repository"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
	maxRollupRetries  = 5
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	Invoices  repository.InvoiceRepository
	Analytics service.AnalyticsService
	RDB       *redis.Client
}

// StartRetryCron launches a background goroutine that ticks every 30s,
// queries invoices with due rollup retries, and re-runs ingestion.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	now := time.Now().UTC()
	invoices, err := cfg.Invoices.ListPendingRollups(ctx, now, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending rollups")
		return
	}
	if len(invoices) == 0 {
		return
	}

	log.Info().Int("count", len(invoices)).Msg("retry_cron: re-attempting stuck rollup events")

	for i := range invoices {
		inv := &invoices[i]

		if err := cfg.Analytics.Ingest(ctx, inv.ID); err != nil {
			// Ingest already rescheduled or parked the event; our only extra
			// duty is the DLQ copy once it is exhausted.
			if inv.RollupRetries+1 >= maxRollupRetries {
				payload := fmt.Sprintf(`{"invoice_id":%q}`, inv.ID)
				SendToDLQ(ctx, cfg.RDB, QueueRollup, "rollup", []byte(payload),
					fmt.Sprintf("max retries (%d) exceeded: %v", maxRollupRetries, err),
					inv.RollupRetries+1)
			} else {
				log.Warn().
					Str("invoice_id", inv.ID.String()).
					Str("state", inv.RollupState).
					Int("retries", inv.RollupRetries).
					Msg("retry_cron: ingest retry failed, rescheduled")
			}
			continue
		}

		log.Info().
			Str("invoice_id", inv.ID.String()).
			Int("total_retries", inv.RollupRetries).
			Msg("retry_cron: event applied after retry")
	}
}
