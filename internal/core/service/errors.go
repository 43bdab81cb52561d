package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
)

var (
	ErrInvalidProductID  = errors.New("product id is required")
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
	ErrInvalidStock      = errors.New("stock must be a non-negative integer")
	ErrInvalidPrice      = errors.New("price must not be negative")
	ErrInvalidDiscount   = errors.New("discount percentage must be between 0 and 100")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrItemNotInCart     = errors.New("item not in cart")
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
)

// InsufficientStockError reports a single shortfall. It matches ErrInsufficientStock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return shortfall(e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func shortfall(productID string, requested, available int) string {
	if available <= 0 {
		return fmt.Sprintf("%s is out of stock, %d requested", productID, requested)
	}
	return fmt.Sprintf("only %d units of %s available, %d requested", available, productID, requested)
}

// DescribeShortfalls renders every insufficient item as one human-readable line.
func DescribeShortfalls(items []domain.InsufficientItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, shortfall(item.ProductID, item.Requested, item.Available))
	}
	return strings.Join(parts, "; ")
}
