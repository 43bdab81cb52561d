package service

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/pricing"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/port"
)

// StockChecker is the read side of the inventory the cart validates against.
type StockChecker interface {
	IsInStock(productID string, quantity int) bool
	GetStock(productID string) int
}

// Cart holds what the current user intends to buy. Stock is checked on every
// mutation but not reserved; checkout validates again.
type Cart struct {
	mu         sync.Mutex
	items      []domain.LineItem
	aggregates domain.Aggregates
	stock      StockChecker
	store      port.StateStore
	logger     *zap.Logger
}

func NewCart(stock StockChecker, store port.StateStore, logger *zap.Logger) *Cart {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cart{
		stock:      stock,
		store:      store,
		logger:     logger,
		aggregates: domain.Aggregates{Subtotal: decimal.Zero},
	}
}

// Restore rehydrates line items from the store and returns how many were loaded.
// Invalid or duplicate lines are dropped and the aggregates are always recomputed.
func (c *Cart) Restore(ctx context.Context) int {
	var saved []lineItemEntry
	loadState(ctx, c.store, c.logger, port.KeyCartItems, &saved)

	items := make([]domain.LineItem, 0, len(saved))
	seen := make(map[string]bool, len(saved))
	for _, entry := range saved {
		item := entry.toLineItem()
		if !validLine(item) || seen[item.ProductID] {
			c.logger.Warn("skipping invalid cart line", zap.String("product_id", item.ProductID), zap.Int("quantity", item.Quantity))
			continue
		}
		seen[item.ProductID] = true
		items = append(items, item)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.recomputeLocked()

	var cached aggregatesEntry
	if loadState(ctx, c.store, c.logger, port.KeyCartAggregates, &cached) {
		if cached.TotalItems != c.aggregates.TotalItems ||
			!decimal.NewFromFloat(cached.Subtotal).Round(2).Equal(c.aggregates.Subtotal) {
			c.logger.Warn("cached cart aggregates drifted, recomputed",
				zap.Int("cached_items", cached.TotalItems), zap.Int("items", c.aggregates.TotalItems))
			c.persistLocked(ctx)
		}
	}
	return len(items)
}

func validLine(item domain.LineItem) bool {
	return item.ProductID != "" &&
		item.Quantity >= 1 &&
		!item.UnitPrice.IsNegative() &&
		!item.OriginalUnitPrice.IsNegative() &&
		pricing.ValidDiscount(item.DiscountPercentage)
}

// AddItem adds quantity units of product. An existing line is incremented and keeps
// its frozen price; a new line snapshots the product's current discounted price.
func (c *Cart) AddItem(ctx context.Context, product domain.Product, quantity int) error {
	if product.ID == "" {
		c.logger.Warn("add item rejected", zap.Error(ErrInvalidProductID))
		return ErrInvalidProductID
	}
	if quantity <= 0 {
		c.logger.Warn("add item rejected", zap.String("product_id", product.ID), zap.Int("quantity", quantity))
		return fmt.Errorf("add %s: %w", product.ID, ErrInvalidQuantity)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// TotalItems bounds every line, so this also keeps the line from wrapping
	if quantity > math.MaxInt-c.aggregates.TotalItems {
		c.logger.Warn("add item rejected, cart total would overflow",
			zap.String("product_id", product.ID), zap.Int("quantity", quantity), zap.Int("total_items", c.aggregates.TotalItems))
		return fmt.Errorf("add %s: %w", product.ID, ErrInvalidQuantity)
	}

	idx := c.indexLocked(product.ID)
	wanted := quantity
	if idx >= 0 {
		wanted += c.items[idx].Quantity
	}
	if err := c.checkStock(product.ID, wanted); err != nil {
		return err
	}

	if idx >= 0 {
		c.items[idx].Quantity = wanted
	} else {
		if product.Price.IsNegative() {
			return fmt.Errorf("add %s: %w", product.ID, ErrInvalidPrice)
		}
		if !pricing.ValidDiscount(product.DiscountPercentage) {
			return fmt.Errorf("add %s: %w", product.ID, ErrInvalidDiscount)
		}
		original := pricing.Round2(product.Price)
		c.items = append(c.items, domain.LineItem{
			ProductID:          product.ID,
			Quantity:           wanted,
			UnitPrice:          pricing.DiscountedPrice(original, product.DiscountPercentage),
			OriginalUnitPrice:  original,
			DiscountPercentage: product.DiscountPercentage,
		})
	}

	c.recomputeLocked()
	c.persistLocked(ctx)
	return nil
}

// RemoveItem deletes the line for productID. Absent lines are a no-op.
func (c *Cart) RemoveItem(ctx context.Context, productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(ctx, productID)
	return nil
}

// UpdateQuantity sets the line quantity exactly. Zero or less removes the line.
func (c *Cart) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		c.removeLocked(ctx, productID)
		return nil
	}

	idx := c.indexLocked(productID)
	if idx < 0 {
		return fmt.Errorf("update %s: %w", productID, ErrItemNotInCart)
	}
	if quantity-c.items[idx].Quantity > math.MaxInt-c.aggregates.TotalItems {
		c.logger.Warn("update rejected, cart total would overflow",
			zap.String("product_id", productID), zap.Int("quantity", quantity), zap.Int("total_items", c.aggregates.TotalItems))
		return fmt.Errorf("update %s: %w", productID, ErrInvalidQuantity)
	}
	if err := c.checkStock(productID, quantity); err != nil {
		return err
	}

	c.items[idx].Quantity = quantity
	c.recomputeLocked()
	c.persistLocked(ctx)
	return nil
}

// UpdateDiscount reprices a line from its stored original price. Products not in
// the cart are ignored.
func (c *Cart) UpdateDiscount(ctx context.Context, productID string, discountPercentage int) error {
	if !pricing.ValidDiscount(discountPercentage) {
		c.logger.Warn("update discount rejected", zap.String("product_id", productID), zap.Int("discount", discountPercentage))
		return fmt.Errorf("discount %s: %w", productID, ErrInvalidDiscount)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexLocked(productID)
	if idx < 0 {
		return nil
	}
	line := &c.items[idx]
	line.DiscountPercentage = discountPercentage
	line.UnitPrice = pricing.DiscountedPrice(line.OriginalUnitPrice, discountPercentage)

	c.recomputeLocked()
	c.persistLocked(ctx)
	return nil
}

func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.recomputeLocked()
	c.persistLocked(ctx)
	return nil
}

// Settle runs fn with a snapshot of the lines while the cart is locked, and empties
// the cart only when fn succeeds. No other cart operation can interleave.
func (c *Cart) Settle(ctx context.Context, fn func(items []domain.LineItem) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := fn(c.itemsLocked()); err != nil {
		return err
	}

	c.items = nil
	c.recomputeLocked()
	c.persistLocked(ctx)
	return nil
}

func (c *Cart) Item(productID string) (domain.LineItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := c.indexLocked(productID); idx >= 0 {
		return c.items[idx], true
	}
	return domain.LineItem{}, false
}

// CartSnapshot is a consistent view of the cart taken under a single lock.
type CartSnapshot struct {
	Items            []domain.LineItem
	Aggregates       domain.Aggregates
	OriginalSubtotal decimal.Decimal
	Savings          decimal.Decimal
}

func (c *Cart) Snapshot() CartSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	original := originalSubtotal(c.items)
	return CartSnapshot{
		Items:            c.itemsLocked(),
		Aggregates:       c.aggregates,
		OriginalSubtotal: original,
		Savings:          pricing.Savings(original, c.aggregates.Subtotal),
	}
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []domain.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemsLocked()
}

func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aggregates.TotalItems
}

func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aggregates.Subtotal
}

// OriginalSubtotal sums the lines at their pre-discount prices.
func (c *Cart) OriginalSubtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return originalSubtotal(c.items)
}

func (c *Cart) Savings() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pricing.Savings(originalSubtotal(c.items), c.aggregates.Subtotal)
}

func (c *Cart) Aggregates() domain.Aggregates {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aggregates
}

func (c *Cart) checkStock(productID string, quantity int) error {
	if c.stock.IsInStock(productID, quantity) {
		return nil
	}
	err := &InsufficientStockError{
		ProductID: productID,
		Requested: quantity,
		Available: c.stock.GetStock(productID),
	}
	c.logger.Info("cart change rejected", zap.String("product_id", productID), zap.Error(err))
	return err
}

func (c *Cart) removeLocked(ctx context.Context, productID string) {
	idx := c.indexLocked(productID)
	if idx < 0 {
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.recomputeLocked()
	c.persistLocked(ctx)
}

func (c *Cart) indexLocked(productID string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) itemsLocked() []domain.LineItem {
	out := make([]domain.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// recomputeLocked refolds the aggregates from scratch.
func (c *Cart) recomputeLocked() {
	c.aggregates = fold(c.items)
}

func fold(items []domain.LineItem) domain.Aggregates {
	agg := domain.Aggregates{Subtotal: decimal.Zero}
	for _, item := range items {
		agg.TotalItems += item.Quantity
		agg.Subtotal = agg.Subtotal.Add(pricing.LineTotal(item.UnitPrice, item.Quantity))
	}
	return agg
}

func originalSubtotal(items []domain.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(pricing.LineTotal(item.OriginalUnitPrice, item.Quantity))
	}
	return total
}

func (c *Cart) persistLocked(ctx context.Context) {
	entries := make([]lineItemEntry, 0, len(c.items))
	for _, item := range c.items {
		entries = append(entries, toLineItemEntry(item))
	}
	saveState(ctx, c.store, c.logger, port.KeyCartItems, entries)
	saveState(ctx, c.store, c.logger, port.KeyCartAggregates, aggregatesEntry{
		TotalItems: c.aggregates.TotalItems,
		Subtotal:   c.aggregates.Subtotal.InexactFloat64(),
	})
}
