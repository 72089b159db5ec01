package dto

import "github.com/shopspring/decimal"

// ─── Scan ────────────────────────────────────────────────────────────────────

// ScanRequest is one barcode scan. Quantity defaults to 1 when omitted.
type ScanRequest struct {
	SKU      string `json:"sku"      validate:"required"`
	Quantity int    `json:"quantity" validate:"min=0,max=1000"`
}

// ScanResponse is the priced cart line plus the stock reservation backing it.
// The client echoes ReservationID back in the invoice commit; the hold expires
// at ExpiresAt unless committed or released before then.
type ScanResponse struct {
	ReservationID string          `json:"reservation_id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	LineSubtotal  decimal.Decimal `json:"line_subtotal"`
	LineTax       decimal.Decimal `json:"line_tax"`
	ExpiresAt     string          `json:"expires_at"`
}

// ─── Invoice commit ─────────────────────────────────────────────────────────

// InvoiceLineRequest references a prior scan via ReservationID. When the
// reservation is absent (client re-scanned offline, or the hold expired and
// the cashier chose to retry) SKU+Quantity allow an inline reservation at
// commit time.
type InvoiceLineRequest struct {
	SKU           string  `json:"sku"            validate:"required"`
	Quantity      int     `json:"quantity"       validate:"required,min=1"`
	ReservationID *string `json:"reservation_id" validate:"omitempty,uuid"`
}

type CreateInvoiceRequest struct {
	Lines []InvoiceLineRequest `json:"lines" validate:"required,min=1,dive"`
	// CustomerEmail: optional — when present, the receipt worker mails the PDF.
	CustomerEmail *string `json:"customer_email" validate:"omitempty,email"`
}

type VoidInvoiceRequest struct {
	Reason string `json:"reason" validate:"required,min=5"`
}

// ─── Responses ──────────────────────────────────────────────────────────────

type InvoiceLineResponse struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	LineSubtotal decimal.Decimal `json:"line_subtotal"`
	LineTax      decimal.Decimal `json:"line_tax"`
}

type InvoiceResponse struct {
	ID        string                `json:"id"`
	Number    int64                 `json:"number"`
	CashierID string                `json:"cashier_id"`
	StoreID   string                `json:"store_id"`
	Lines     []InvoiceLineResponse `json:"lines"`
	Subtotal  decimal.Decimal       `json:"subtotal"`
	Tax       decimal.Decimal       `json:"tax"`
	Total     decimal.Decimal       `json:"total"`
	Status    string                `json:"status"`
	CreatedAt string                `json:"created_at"`
}

// InvoiceFilter is bound from the query string of GET /v1/pos/invoices.
type InvoiceFilter struct {
	Date    string `form:"date"`   // YYYY-MM-DD; empty = today
	Status  string `form:"status"` // committed | voided | all
	StoreID string `form:"store_id"`
	Page    int    `form:"page,default=1"   validate:"min=1"`
	Limit   int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type InvoiceListResponse struct {
	Data  []InvoiceResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
