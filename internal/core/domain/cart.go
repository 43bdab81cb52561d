package domain

import "github.com/shopspring/decimal"

// LineItem is one product row in the cart. Prices are frozen at add time.
type LineItem struct {
	ProductID          string          `json:"product_id"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	OriginalUnitPrice  decimal.Decimal `json:"original_unit_price"`
	DiscountPercentage int             `json:"discount_percentage"`
}

// Aggregates are derived from the line items and recomputed after every mutation.
type Aggregates struct {
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}
