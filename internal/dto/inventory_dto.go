package dto

type RestockRequest struct {
	SKU      string `json:"sku"      validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Note     string `json:"note"`
}

// AdjustStockRequest corrects stock after a physical count. Delta may be
// negative but can never drive the on-hand count below zero.
type AdjustStockRequest struct {
	SKU   string `json:"sku"   validate:"required"`
	Delta int    `json:"delta" validate:"required"`
	Note  string `json:"note"  validate:"required,min=5"`
}

type DeltaResponse struct {
	ID          string  `json:"id"`
	SKU         string  `json:"sku"`
	Delta       int     `json:"delta"`
	Reason      string  `json:"reason"`
	StockBefore int     `json:"stock_before"`
	StockAfter  int     `json:"stock_after"`
	Note        string  `json:"note,omitempty"`
	InvoiceID   *string `json:"invoice_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type DeltaListResponse struct {
	Data  []DeltaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// StockAlertResponse flags products at or below their low-stock level.
type StockAlertResponse struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	QuantityOnHand int    `json:"quantity_on_hand"`
	LowStockLevel  int    `json:"low_stock_level"`
}
