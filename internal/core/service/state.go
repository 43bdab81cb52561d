package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/port"
)

// Persisted shapes. Prices and stock travel as plain JSON numbers.

type stockEntry struct {
	Stock float64 `json:"stock"`
}

type lineItemEntry struct {
	ProductID          string  `json:"productId"`
	Quantity           int     `json:"quantity"`
	UnitPrice          float64 `json:"unitPrice"`
	OriginalUnitPrice  float64 `json:"originalUnitPrice"`
	DiscountPercentage int     `json:"discountPercentage"`
}

type aggregatesEntry struct {
	TotalItems int     `json:"totalItems"`
	Subtotal   float64 `json:"subtotal"`
}

func toLineItemEntry(item domain.LineItem) lineItemEntry {
	return lineItemEntry{
		ProductID:          item.ProductID,
		Quantity:           item.Quantity,
		UnitPrice:          item.UnitPrice.InexactFloat64(),
		OriginalUnitPrice:  item.OriginalUnitPrice.InexactFloat64(),
		DiscountPercentage: item.DiscountPercentage,
	}
}

func (e lineItemEntry) toLineItem() domain.LineItem {
	return domain.LineItem{
		ProductID:          e.ProductID,
		Quantity:           e.Quantity,
		UnitPrice:          decimal.NewFromFloat(e.UnitPrice).Round(2),
		OriginalUnitPrice:  decimal.NewFromFloat(e.OriginalUnitPrice).Round(2),
		DiscountPercentage: e.DiscountPercentage,
	}
}

// saveState writes v under key. Failures are logged and swallowed: the in-memory
// state stays authoritative for the session.
func saveState(ctx context.Context, store port.StateStore, logger *zap.Logger, key string, v any) {
	if store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("encode state failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := store.Save(ctx, key, data); err != nil {
		logger.Error("persist state failed", zap.String("key", key), zap.Error(err))
	}
}

// loadState decodes key into v and reports whether usable data was found.
func loadState(ctx context.Context, store port.StateStore, logger *zap.Logger, key string, v any) bool {
	if store == nil {
		return false
	}
	data, err := store.Load(ctx, key)
	if errors.Is(err, port.ErrStateNotFound) {
		return false
	}
	if err != nil {
		logger.Warn("load state failed, using defaults", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("corrupted state, using defaults", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}
