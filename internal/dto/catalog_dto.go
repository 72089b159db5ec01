package dto

import "github.com/shopspring/decimal"

// ProductFilter is bound from the query string of GET /v1/catalog/products.
type ProductFilter struct {
	SKU      string `form:"sku"`
	Name     string `form:"name"`
	Category string `form:"category"`
	Active   string `form:"active"` // "false" = inactive, "all" = everything, default active
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type CreateProductRequest struct {
	SKU           string          `json:"sku"             validate:"required"`
	Name          string          `json:"name"            validate:"required"`
	Description   *string         `json:"description"`
	Category      string          `json:"category"`
	UnitPrice     decimal.Decimal `json:"unit_price"      validate:"required,gt=0"`
	TaxRate       decimal.Decimal `json:"tax_rate"        validate:"min=0,max=1"`
	InitialStock  int             `json:"initial_stock"   validate:"min=0"`
	LowStockLevel int             `json:"low_stock_level" validate:"min=0"`
}

type UpdateProductRequest struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Category      *string          `json:"category"`
	UnitPrice     *decimal.Decimal `json:"unit_price" validate:"omitempty,gt=0"`
	TaxRate       *decimal.Decimal `json:"tax_rate"   validate:"omitempty,min=0,max=1"`
	LowStockLevel *int             `json:"low_stock_level"`
}

type ProductResponse struct {
	ID             string          `json:"id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	Category       string          `json:"category"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	QuantityOnHand int             `json:"quantity_on_hand"`
	LowStockLevel  int             `json:"low_stock_level"`
	Active         bool            `json:"active"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
