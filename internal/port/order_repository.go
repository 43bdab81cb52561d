package port

import (
	"context"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
)

type OrderRepository interface {
	// SaveOrder archives a settled order and its line items
	SaveOrder(ctx context.Context, order domain.Order) error

	// GetOrder returns an archived order, or nil when it does not exist
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}
