package worker

// receipt_worker.go
// Processes receipt jobs from QueueReceipt: renders the PDF and, when the
// customer left an email, chains an email job.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/infra"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ReceiptWorker struct {
	invoices    repository.InvoiceRepository
	dispatcher  *Dispatcher
	storagePath string
	storeName   string
}

func NewReceiptWorker(invoices repository.InvoiceRepository, dispatcher *Dispatcher, storagePath, storeName string) *ReceiptWorker {
	return &ReceiptWorker{invoices: invoices, dispatcher: dispatcher, storagePath: storagePath, storeName: storeName}
}

// Process renders the receipt PDF for one committed invoice and optionally
// enqueues the email that delivers it.
func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("receipt_worker: invalid payload")
		return
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		log.Error().Str("invoice_id", payload.InvoiceID).Msg("receipt_worker: invalid invoice_id")
		return
	}

	inv, err := w.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		log.Error().Err(err).Str("invoice_id", payload.InvoiceID).Msg("receipt_worker: invoice not found")
		return
	}

	pdfPath, err := infra.GenerateReceiptPDF(inv, w.storeName, w.storagePath)
	if err != nil {
		log.Error().Err(err).Str("invoice_id", payload.InvoiceID).Msg("receipt_worker: PDF generation failed")
		return
	}
	log.Info().Str("pdf", pdfPath).Str("invoice_id", payload.InvoiceID).Msg("receipt_worker: PDF generated")

	if payload.CustomerEmail != nil && *payload.CustomerEmail != "" {
		emailJob := EmailJobPayload{
			ToEmail: *payload.CustomerEmail,
			Subject: fmt.Sprintf("%s — Receipt #%d", w.storeName, inv.Number),
			Body:    fmt.Sprintf("Thank you for your purchase.\nTotal: $%s", inv.Total.StringFixed(2)),
			PDFPath: pdfPath,
		}
		if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
			log.Warn().Err(err).Str("email", *payload.CustomerEmail).Msg("receipt_worker: failed to enqueue email")
		}
	}
}
