package port

import (
	"context"
	"errors"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
)

var ErrProductNotFound = errors.New("product not found")

type ProductCatalog interface {
	// GetProduct returns ErrProductNotFound for unknown IDs
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)

	ListProducts(ctx context.Context) ([]domain.Product, error)
}
