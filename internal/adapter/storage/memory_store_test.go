package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/port"
)

func testProduct(id, price string, discount int) domain.Product {
	return domain.Product{ID: id, Name: id, Price: decimal.RequireFromString(price), DiscountPercentage: discount}
}

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Load(ctx, port.KeyCartItems)
	assert.ErrorIs(t, err, port.ErrStateNotFound)

	payload := []byte(`[]`)
	require.NoError(t, store.Save(ctx, port.KeyCartItems, payload))
	payload[0] = 'x'

	data, err := store.Load(ctx, port.KeyCartItems)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	// Returned bytes are a copy
	data[0] = 'y'
	again, _ := store.Load(ctx, port.KeyCartItems)
	assert.Equal(t, "[]", string(again))
}
