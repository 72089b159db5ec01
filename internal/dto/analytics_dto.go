package dto

import "github.com/shopspring/decimal"

// SummaryFilter is bound from the query string of GET /v1/admin/analytics/summary.
// From/To are RFC 3339 timestamps; empty values default to the current day.
// Unknown dimension values are rejected against the filter catalog.
type SummaryFilter struct {
	StoreID     string `form:"store_id"`
	CashierID   string `form:"cashier_id"`
	SKU         string `form:"sku"`
	From        string `form:"from"`
	To          string `form:"to"`
	Granularity string `form:"granularity,default=day" validate:"omitempty,oneof=hour day month"`
}

// SummaryBucket is one time bucket inside a summary response.
type SummaryBucket struct {
	BucketStart  string          `json:"bucket_start"`
	InvoiceCount int64           `json:"invoice_count"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

type SummaryResponse struct {
	Granularity  string          `json:"granularity"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	InvoiceCount int64           `json:"invoice_count"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	Buckets      []SummaryBucket `json:"buckets"`
}

type FilterDimensionResponse struct {
	Name          string   `json:"name"`
	AllowedValues []string `json:"allowed_values"`
}

type FilterCatalogResponse struct {
	Dimensions []FilterDimensionResponse `json:"dimensions"`
}

// RebuildResponse reports the outcome of an analytics replay.
type RebuildResponse struct {
	InvoicesReplayed int64 `json:"invoices_replayed"`
	BucketsWritten   int64 `json:"buckets_written"`
	Verified         bool  `json:"verified"`
}
