package port

import (
	"context"
	"errors"
)

// ErrStateNotFound is returned by Load when nothing was ever saved under the key.
var ErrStateNotFound = errors.New("state not found")

// Persisted state keys.
const (
	KeyProductStock   = "product-stock"
	KeyCartItems      = "cart-items"
	KeyCartAggregates = "cart-aggregates"
)

type StateStore interface {
	// Load returns the raw bytes saved under key, or ErrStateNotFound
	Load(ctx context.Context, key string) ([]byte, error)

	// Save overwrites the bytes stored under key
	Save(ctx context.Context, key string, data []byte) error
}
