package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/port"
)

type subscriber struct {
	id uint64
	fn func(domain.InventoryEvent)
}

// InventoryLedger is the single source of truth for remaining stock per product.
type InventoryLedger struct {
	mu     sync.Mutex
	stocks map[string]int
	store  port.StateStore
	logger *zap.Logger
	now    func() time.Time

	// guarded by mu; events queue in mutation order and one caller at a time drains them
	seq      uint64
	pending  []domain.InventoryEvent
	draining bool

	subMu       sync.Mutex
	subscribers []subscriber
	nextSubID   uint64
}

func NewInventoryLedger(store port.StateStore, logger *zap.Logger) *InventoryLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryLedger{
		stocks: make(map[string]int),
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Restore rehydrates stock records from the store and returns how many were loaded.
// Missing or corrupted data leaves the ledger empty; invalid entries are skipped.
func (l *InventoryLedger) Restore(ctx context.Context) int {
	var saved map[string]stockEntry
	if !loadState(ctx, l.store, l.logger, port.KeyProductStock, &saved) {
		return 0
	}

	stocks := make(map[string]int, len(saved))
	for id, entry := range saved {
		if id == "" || entry.Stock < 0 || entry.Stock >= math.MaxInt || entry.Stock != math.Trunc(entry.Stock) {
			l.logger.Warn("skipping invalid stock record", zap.String("product_id", id), zap.Float64("stock", entry.Stock))
			continue
		}
		stocks[id] = int(entry.Stock)
	}

	l.mu.Lock()
	l.stocks = stocks
	l.mu.Unlock()
	return len(stocks)
}

// Initialize creates the record when absent and reports whether it did.
// An existing record is never overwritten.
func (l *InventoryLedger) Initialize(ctx context.Context, productID string, initialStock int) (bool, error) {
	if productID == "" {
		l.logger.Warn("initialize rejected", zap.Error(ErrInvalidProductID))
		return false, ErrInvalidProductID
	}
	if initialStock < 0 {
		l.logger.Warn("initialize rejected", zap.String("product_id", productID), zap.Int("stock", initialStock))
		return false, fmt.Errorf("initialize %s: %w", productID, ErrInvalidStock)
	}

	l.mu.Lock()
	if _, exists := l.stocks[productID]; exists {
		l.mu.Unlock()
		return false, nil
	}
	l.stocks[productID] = initialStock
	l.persistLocked(ctx)
	l.publish(l.eventLocked(productID, 0, initialStock, domain.StockInitialized))
	return true, nil
}

// SetStock overwrites the stock of a product unconditionally.
func (l *InventoryLedger) SetStock(ctx context.Context, productID string, newStock int) error {
	if productID == "" {
		l.logger.Warn("set stock rejected", zap.Error(ErrInvalidProductID))
		return ErrInvalidProductID
	}
	if newStock < 0 {
		l.logger.Warn("set stock rejected", zap.String("product_id", productID), zap.Int("stock", newStock))
		return fmt.Errorf("set stock %s: %w", productID, ErrInvalidStock)
	}

	l.mu.Lock()
	prev := l.stocks[productID]
	l.stocks[productID] = newStock
	l.persistLocked(ctx)
	l.publish(l.eventLocked(productID, prev, newStock, domain.StockSet))
	return nil
}

// GetStock returns the current stock. Unknown products read as zero.
func (l *InventoryLedger) GetStock(productID string) int {
	l.mu.Lock()
	stock, ok := l.stocks[productID]
	l.mu.Unlock()

	if !ok {
		l.logger.Warn("unknown product, treating as zero stock", zap.String("product_id", productID))
	}
	return stock
}

// Known reports whether a stock record exists, separating "never initialized"
// from "sold out".
func (l *InventoryLedger) Known(productID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.stocks[productID]
	return ok
}

// IsInStock reports whether quantity units are available. Unknown products are
// always out of stock.
func (l *InventoryLedger) IsInStock(productID string, quantity int) bool {
	l.mu.Lock()
	stock, ok := l.stocks[productID]
	l.mu.Unlock()

	if !ok {
		l.logger.Warn("unknown product, treating as out of stock", zap.String("product_id", productID))
		return false
	}
	return stock >= quantity
}

func (l *InventoryLedger) Deduct(ctx context.Context, productID string, quantity int) error {
	if productID == "" {
		l.logger.Warn("deduct rejected", zap.Error(ErrInvalidProductID))
		return ErrInvalidProductID
	}
	if quantity <= 0 {
		l.logger.Warn("deduct rejected", zap.String("product_id", productID), zap.Int("quantity", quantity))
		return fmt.Errorf("deduct %s: %w", productID, ErrInvalidQuantity)
	}

	l.mu.Lock()
	prev := l.stocks[productID]
	if prev < quantity {
		l.mu.Unlock()
		err := &InsufficientStockError{ProductID: productID, Requested: quantity, Available: prev}
		l.logger.Info("deduct rejected", zap.String("product_id", productID), zap.Error(err))
		return err
	}
	l.stocks[productID] = prev - quantity
	l.persistLocked(ctx)
	l.publish(l.eventLocked(productID, prev, prev-quantity, domain.StockDeducted))
	return nil
}

// Add returns units to stock (restocks, returns). Unknown products are created.
// A quantity that would push the stock past math.MaxInt is rejected.
func (l *InventoryLedger) Add(ctx context.Context, productID string, quantity int) error {
	if productID == "" {
		l.logger.Warn("add rejected", zap.Error(ErrInvalidProductID))
		return ErrInvalidProductID
	}
	if quantity <= 0 {
		l.logger.Warn("add rejected", zap.String("product_id", productID), zap.Int("quantity", quantity))
		return fmt.Errorf("add %s: %w", productID, ErrInvalidQuantity)
	}

	l.mu.Lock()
	prev := l.stocks[productID]
	if quantity > math.MaxInt-prev {
		l.mu.Unlock()
		l.logger.Warn("add rejected, stock would overflow",
			zap.String("product_id", productID), zap.Int("stock", prev), zap.Int("quantity", quantity))
		return fmt.Errorf("add %s: %w", productID, ErrInvalidQuantity)
	}
	l.stocks[productID] = prev + quantity
	l.persistLocked(ctx)
	l.publish(l.eventLocked(productID, prev, prev+quantity, domain.StockAdded))
	return nil
}

// BulkDeduct deducts every request or none of them. Requests for the same product
// are summed, and a sum past math.MaxInt rejects the whole call. On shortfall it
// returns every insufficient item together with an error matching
// ErrInsufficientStock, and the ledger is left untouched.
func (l *InventoryLedger) BulkDeduct(ctx context.Context, items []domain.StockRequest) ([]domain.InsufficientItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	order := make([]string, 0, len(items))
	totals := make(map[string]int, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			l.logger.Warn("bulk deduct rejected", zap.Error(ErrInvalidProductID))
			return nil, fmt.Errorf("bulk deduct: %w", ErrInvalidProductID)
		}
		if item.Quantity <= 0 {
			l.logger.Warn("bulk deduct rejected", zap.String("product_id", item.ProductID), zap.Int("quantity", item.Quantity))
			return nil, fmt.Errorf("bulk deduct %s: %w", item.ProductID, ErrInvalidQuantity)
		}
		total, seen := totals[item.ProductID]
		if !seen {
			order = append(order, item.ProductID)
		}
		if item.Quantity > math.MaxInt-total {
			l.logger.Warn("bulk deduct rejected, requested total overflows", zap.String("product_id", item.ProductID))
			return nil, fmt.Errorf("bulk deduct %s: %w", item.ProductID, ErrInvalidQuantity)
		}
		totals[item.ProductID] = total + item.Quantity
	}

	l.mu.Lock()

	// First pass: validate every product before touching any of them
	var insufficient []domain.InsufficientItem
	for _, id := range order {
		if available := l.stocks[id]; available < totals[id] {
			insufficient = append(insufficient, domain.InsufficientItem{
				ProductID: id,
				Requested: totals[id],
				Available: available,
			})
		}
	}
	if len(insufficient) > 0 {
		l.mu.Unlock()
		l.logger.Info("bulk deduct rejected", zap.Int("shortfalls", len(insufficient)))
		return insufficient, fmt.Errorf("%w: %s", ErrInsufficientStock, DescribeShortfalls(insufficient))
	}

	// Second pass: deduct
	events := make([]domain.InventoryEvent, 0, len(order))
	for _, id := range order {
		prev := l.stocks[id]
		l.stocks[id] = prev - totals[id]
		events = append(events, l.eventLocked(id, prev, prev-totals[id], domain.StockDeducted))
	}
	l.persistLocked(ctx)
	l.publish(events...)
	return nil, nil
}

// Snapshot returns a copy of every stock record.
func (l *InventoryLedger) Snapshot() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]int, len(l.stocks))
	for id, stock := range l.stocks {
		out[id] = stock
	}
	return out
}

// OnChange registers fn for every successful mutation and returns a function that
// removes it. Callbacks run outside the ledger lock, one event at a time, in the
// order the mutations were applied. They must not block.
func (l *InventoryLedger) OnChange(fn func(domain.InventoryEvent)) (unsubscribe func()) {
	l.subMu.Lock()
	l.nextSubID++
	id := l.nextSubID
	l.subscribers = append(l.subscribers, subscriber{id: id, fn: fn})
	l.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.subMu.Lock()
			defer l.subMu.Unlock()
			for i, s := range l.subscribers {
				if s.id == id {
					l.subscribers = append(l.subscribers[:i:i], l.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// publish queues events and releases l.mu, which must be held. The first caller to
// find the queue idle delivers everything queued until it runs dry, including
// events from mutations that land while it is delivering.
func (l *InventoryLedger) publish(events ...domain.InventoryEvent) {
	l.pending = append(l.pending, events...)
	if l.draining {
		l.mu.Unlock()
		return
	}
	l.draining = true
	l.mu.Unlock()

	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		if len(batch) == 0 {
			l.draining = false
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()

		for _, e := range batch {
			l.notify(e)
		}
	}
}

func (l *InventoryLedger) notify(e domain.InventoryEvent) {
	l.subMu.Lock()
	subs := make([]subscriber, len(l.subscribers))
	copy(subs, l.subscribers)
	l.subMu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}
}

func (l *InventoryLedger) eventLocked(productID string, prev, stock int, reason domain.StockChangeReason) domain.InventoryEvent {
	l.seq++
	return domain.InventoryEvent{
		Sequence:   l.seq,
		Type:       domain.EventInventoryUpdated,
		ProductID:  productID,
		Stock:      stock,
		Previous:   prev,
		Reason:     reason,
		OccurredAt: l.now(),
	}
}

// persistLocked must be called with l.mu held.
func (l *InventoryLedger) persistLocked(ctx context.Context) {
	out := make(map[string]stockEntry, len(l.stocks))
	for id, stock := range l.stocks {
		out[id] = stockEntry{Stock: float64(stock)}
	}
	saveState(ctx, l.store, l.logger, port.KeyProductStock, out)
}
