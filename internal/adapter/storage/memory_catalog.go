package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/port"
)

// MemoryCatalog serves product reference data from memory.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewMemoryCatalog(products []domain.Product) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// LoadCatalogFile reads a JSON array of products.
func LoadCatalogFile(path string) ([]domain.Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	for i, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if p.Price.IsNegative() || p.InitialStock < 0 {
			return nil, fmt.Errorf("catalog entry %s has negative price or stock", p.ID)
		}
	}
	return products, nil
}

func DemoProducts() []domain.Product {
	return []domain.Product{
		{ID: "wireless-earbuds", Name: "Wireless Earbuds", Category: "audio", Price: decimal.RequireFromString("59.99"), DiscountPercentage: 15, InitialStock: 25},
		{ID: "usb-c-hub", Name: "USB-C Hub", Category: "accessories", Price: decimal.RequireFromString("34.50"), InitialStock: 40},
		{ID: "mechanical-keyboard", Name: "Mechanical Keyboard", Category: "peripherals", Price: decimal.RequireFromString("89.00"), DiscountPercentage: 10, InitialStock: 12},
		{ID: "desk-lamp", Name: "LED Desk Lamp", Category: "home", Price: decimal.RequireFromString("24.99"), DiscountPercentage: 25, InitialStock: 30},
		{ID: "phone-stand", Name: "Phone Stand", Category: "accessories", Price: decimal.RequireFromString("12.00"), InitialStock: 0},
	}
}

func (c *MemoryCatalog) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", productID, port.ErrProductNotFound)
	}
	return &p, nil
}

// ListProducts returns products ordered by ID.
func (c *MemoryCatalog) ListProducts(_ context.Context) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetPrice changes the catalog price. Lines already in a cart keep their snapshot.
func (c *MemoryCatalog) SetPrice(productID string, price decimal.Decimal, discountPercentage int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[productID]
	if !ok {
		return fmt.Errorf("%s: %w", productID, port.ErrProductNotFound)
	}
	p.Price = price
	p.DiscountPercentage = discountPercentage
	c.products[productID] = p
	return nil
}
