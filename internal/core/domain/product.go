package domain

import "github.com/shopspring/decimal"

// Product is catalog reference data. The engine reads it but never owns it.
type Product struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Category           string          `json:"category"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage int             `json:"discount_percentage"`
	ImageURL           string          `json:"image_url,omitempty"`
	InitialStock       int             `json:"initial_stock"`
}
