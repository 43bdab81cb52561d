package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/pricing"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/port"
)

const msgOrderPlaced = "order placed successfully"

// Rejection reasons reported on CheckoutResult and to the recorder.
const (
	ReasonEmptyCart         = "empty_cart"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonInvalidCart       = "invalid_cart"
)

type CheckoutOption func(*CheckoutService)

// WithRecorder reports every settlement outcome to r.
func WithRecorder(r port.CheckoutRecorder) CheckoutOption {
	return func(s *CheckoutService) { s.recorder = r }
}

func WithClock(now func() time.Time) CheckoutOption {
	return func(s *CheckoutService) { s.now = now }
}

func WithOrderIDGenerator(gen func(time.Time) string) CheckoutOption {
	return func(s *CheckoutService) { s.newOrderID = gen }
}

// CheckoutService moves the cart into committed stock deductions in one step.
// Settled orders are offered to a buffered queue for archiving.
type CheckoutService struct {
	cart       *Cart
	ledger     *InventoryLedger
	logger     *zap.Logger
	recorder   port.CheckoutRecorder
	now        func() time.Time
	newOrderID func(time.Time) string

	queueMu    sync.RWMutex
	closed     bool
	orderQueue chan domain.Order
}

func NewCheckoutService(cart *Cart, ledger *InventoryLedger, queueSize int, logger *zap.Logger, opts ...CheckoutOption) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CheckoutService{
		cart:       cart,
		ledger:     ledger,
		logger:     logger,
		now:        time.Now,
		newOrderID: NewOrderID,
		orderQueue: make(chan domain.Order, queueSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOrderID builds a timestamp-derived order identifier.
func NewOrderID(at time.Time) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("ORD-%d-%s", at.UnixMilli(), strings.ToUpper(token))
}

// Checkout validates the whole cart against the ledger. On success stock is deducted
// and the cart emptied; on failure neither is touched and the shortfalls are returned.
func (s *CheckoutService) Checkout(ctx context.Context) domain.CheckoutResult {
	var (
		order        domain.Order
		insufficient []domain.InsufficientItem
	)

	err := s.cart.Settle(ctx, func(items []domain.LineItem) error {
		if len(items) == 0 {
			return ErrEmptyCart
		}

		requests := make([]domain.StockRequest, 0, len(items))
		for _, item := range items {
			requests = append(requests, domain.StockRequest{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		short, err := s.ledger.BulkDeduct(ctx, requests)
		if err != nil {
			insufficient = short
			return err
		}

		order = s.buildOrder(items)
		return nil
	})

	switch {
	case errors.Is(err, ErrEmptyCart):
		s.rejected(ReasonEmptyCart)
		return domain.CheckoutResult{Reason: ReasonEmptyCart, Message: ErrEmptyCart.Error()}
	case errors.Is(err, ErrInsufficientStock):
		s.rejected(ReasonInsufficientStock)
		s.logger.Info("checkout rejected", zap.Int("shortfalls", len(insufficient)))
		return domain.CheckoutResult{
			InsufficientItems: insufficient,
			Reason:            ReasonInsufficientStock,
			Message:           DescribeShortfalls(insufficient),
		}
	case err != nil:
		s.rejected(ReasonInvalidCart)
		s.logger.Warn("checkout rejected", zap.Error(err))
		return domain.CheckoutResult{Reason: ReasonInvalidCart, Message: err.Error()}
	}

	s.enqueue(order)
	if s.recorder != nil {
		s.recorder.CheckoutSucceeded(order)
	}
	s.logger.Info("checkout settled",
		zap.String("order_id", order.ID),
		zap.Int("items", order.TotalItems),
		zap.String("subtotal", order.Subtotal.StringFixed(2)))

	return domain.CheckoutResult{
		Success: true,
		OrderID: order.ID,
		Order:   &order,
		Message: msgOrderPlaced,
	}
}

func (s *CheckoutService) buildOrder(items []domain.LineItem) domain.Order {
	now := s.now()
	agg := fold(items)
	original := originalSubtotal(items)
	return domain.Order{
		ID:               s.newOrderID(now),
		Items:            items,
		TotalItems:       agg.TotalItems,
		Subtotal:         agg.Subtotal,
		OriginalSubtotal: original,
		Savings:          pricing.Savings(original, agg.Subtotal),
		Status:           domain.OrderStatusConfirmed,
		CreatedAt:        now,
	}
}

// enqueue never blocks: archiving is best-effort and cannot undo a settlement.
func (s *CheckoutService) enqueue(order domain.Order) {
	s.queueMu.RLock()
	defer s.queueMu.RUnlock()

	if s.closed {
		s.logger.Warn("order queue closed, order not archived", zap.String("order_id", order.ID))
		return
	}
	select {
	case s.orderQueue <- order:
	default:
		s.logger.Warn("order queue full, order not archived", zap.String("order_id", order.ID))
	}
}

func (s *CheckoutService) rejected(reason string) {
	if s.recorder != nil {
		s.recorder.CheckoutRejected(reason)
	}
}

func (s *CheckoutService) OrderQueue() <-chan domain.Order {
	return s.orderQueue
}

// Close stops accepting orders for archiving and closes the queue so workers drain.
func (s *CheckoutService) Close() {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.orderQueue)
	}
}
