package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(64) PRIMARY KEY,
		total_items INT NOT NULL,
		subtotal DECIMAL(12,2) NOT NULL,
		original_subtotal DECIMAL(12,2) NOT NULL,
		savings DECIMAL(12,2) NOT NULL,
		status VARCHAR(16) NOT NULL,
		created_at DATETIME(3) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id VARCHAR(64) NOT NULL,
		product_id VARCHAR(128) NOT NULL,
		quantity INT NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL,
		original_unit_price DECIMAL(12,2) NOT NULL,
		discount_percentage INT NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,
}

// MySQLAdapter archives settled orders. It is order history only; stock lives in
// the ledger.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) SaveOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, total_items, subtotal, original_subtotal, savings, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.TotalItems, order.Subtotal, order.OriginalSubtotal, order.Savings,
		order.Status, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price, original_unit_price, discount_percentage)
			VALUES (?, ?, ?, ?, ?, ?)`,
			order.ID, item.ProductID, item.Quantity, item.UnitPrice, item.OriginalUnitPrice, item.DiscountPercentage,
		)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", item.ProductID, err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := m.db.QueryRowContext(ctx, `
		SELECT id, total_items, subtotal, original_subtotal, savings, status, created_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&order.ID, &order.TotalItems, &order.Subtotal, &order.OriginalSubtotal, &order.Savings,
		&order.Status, &order.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, quantity, unit_price, original_unit_price, discount_percentage
		FROM order_items WHERE order_id = ? ORDER BY product_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice, &item.OriginalUnitPrice, &item.DiscountPercentage); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return &order, nil
}
