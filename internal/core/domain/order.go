package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

// Orders are only created once their stock is committed.
const OrderStatusConfirmed OrderStatus = "confirmed"

type Order struct {
	ID               string          `json:"id"`
	Items            []LineItem      `json:"items"`
	TotalItems       int             `json:"total_items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	OriginalSubtotal decimal.Decimal `json:"original_subtotal"`
	Savings          decimal.Decimal `json:"savings"`
	Status           OrderStatus     `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// CheckoutResult is what the settlement hands back to the caller for rendering.
type CheckoutResult struct {
	Success           bool               `json:"success"`
	OrderID           string             `json:"order_id,omitempty"`
	Order             *Order             `json:"order,omitempty"`
	InsufficientItems []InsufficientItem `json:"insufficient_items,omitempty"`
	Reason            string             `json:"reason,omitempty"`
	Message           string             `json:"message"`
}
