package domain

import "time"

const EventInventoryUpdated = "inventory-updated"

type StockChangeReason string

const (
	StockInitialized StockChangeReason = "initialized"
	StockSet         StockChangeReason = "set"
	StockDeducted    StockChangeReason = "deducted"
	StockAdded       StockChangeReason = "added"
)

type StockRecord struct {
	ProductID string
	Stock     int
}

// StockRequest asks the ledger for quantity units of one product.
type StockRequest struct {
	ProductID string
	Quantity  int
}

// InsufficientItem describes one shortfall found by a bulk deduction.
type InsufficientItem struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InventoryEvent describes one applied mutation. Sequence increases by one per
// event within a ledger, so consumers can discard anything older than what they hold.
type InventoryEvent struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	ProductID  string            `json:"product_id"`
	Stock      int               `json:"stock"`
	Previous   int               `json:"previous"`
	Reason     StockChangeReason `json:"reason"`
	OccurredAt time.Time         `json:"occurred_at"`
}
