package port

import (
	"context"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
)

type EventPublisher interface {
	// PublishInventoryEvent forwards a ledger change to read-side consumers
	PublishInventoryEvent(ctx context.Context, event domain.InventoryEvent) error
}

// CheckoutRecorder receives settlement outcomes, e.g. for metrics.
type CheckoutRecorder interface {
	CheckoutSucceeded(order domain.Order)
	CheckoutRejected(reason string)
}
