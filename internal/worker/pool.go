package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueRollup  = "jobs:rollup"
	QueueReceipt = "jobs:receipt"
	QueueEmail   = "jobs:email"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RollupJobPayload is the job envelope sent to QueueRollup. The payload is
// just the invoice id: the worker re-reads the row, so a redelivered or stale
// message can never apply outdated figures.
type RollupJobPayload struct {
	InvoiceID string `json:"invoice_id"`
}

// ReceiptJobPayload is the job envelope sent to QueueReceipt.
type ReceiptJobPayload struct {
	InvoiceID     string  `json:"invoice_id"`
	CustomerEmail *string `json:"customer_email,omitempty"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
// It implements service.EventPublisher.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// PublishRollup pushes an analytics ingest job for one invoice event.
func (d *Dispatcher) PublishRollup(ctx context.Context, invoiceID uuid.UUID) error {
	return d.enqueue(ctx, QueueRollup, "rollup", RollupJobPayload{InvoiceID: invoiceID.String()})
}

// PublishReceipt pushes a receipt generation job.
func (d *Dispatcher) PublishReceipt(ctx context.Context, invoiceID uuid.UUID, customerEmail *string) error {
	return d.enqueue(ctx, QueueReceipt, "receipt", ReceiptJobPayload{InvoiceID: invoiceID.String(), CustomerEmail: customerEmail})
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload interface{}) error {
	return d.enqueue(ctx, QueueEmail, "email", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handlers bundles the per-queue processors the pool dispatches to.
type Handlers struct {
	Rollup  *RollupWorker
	Receipt *ReceiptWorker
	Email   *EmailWorker
}

// StartWorkerPool launches numWorkers goroutines consuming all queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, h Handlers) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, h)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, h Handlers) {
	queues := []string{QueueRollup, QueueReceipt, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, h, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, h Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	switch {
	case queue == QueueRollup && h.Rollup != nil:
		h.Rollup.Process(ctx, job.Payload)
	case queue == QueueReceipt && h.Receipt != nil:
		h.Receipt.Process(ctx, job.Payload)
	case queue == QueueEmail && h.Email != nil:
		h.Email.Process(ctx, job.Payload)
	default:
		log.Warn().Str("queue", queue).Str("type", job.Type).Msg("job dropped: no handler for queue")
	}
}
