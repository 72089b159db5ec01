package worker

// rollup_worker.go
// Processes analytics ingest jobs from QueueRollup. Each job carries one
// invoice id; the ingest itself is idempotent (state-gated on the invoice
// row), so BRPOP's at-least-once delivery is safe.

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RollupWorker feeds committed and voided invoices into the analytics buckets.
type RollupWorker struct {
	analytics service.AnalyticsService
}

func NewRollupWorker(analytics service.AnalyticsService) *RollupWorker {
	return &RollupWorker{analytics: analytics}
}

// Process handles a single rollup job. Transient failures are not re-enqueued
// here: the ingest hands the event back with a next_retry_at and the retry
// cron picks it up.
func (w *RollupWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload RollupJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("rollup_worker: invalid payload")
		return
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		log.Error().Str("invoice_id", payload.InvoiceID).Msg("rollup_worker: invalid invoice_id")
		return
	}

	if err := w.analytics.Ingest(ctx, invoiceID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			log.Error().Str("invoice_id", payload.InvoiceID).Msg("rollup_worker: invoice vanished")
			return
		}
		log.Warn().Err(err).Str("invoice_id", payload.InvoiceID).
			Msg("rollup_worker: ingest failed, retry cron will re-attempt")
		return
	}
	log.Debug().Str("invoice_id", payload.InvoiceID).Msg("rollup_worker: event applied")
}
