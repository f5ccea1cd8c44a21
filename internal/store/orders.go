package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mrcolv86/bierserv/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrderWithItems creates the order header and all line items in a
// single transaction, then derives total_amount from the rows just written.
// The returned order carries the recomputed total.
func (s *Store) CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (table_id, status, total_amount)
		VALUES ($1, $2, 0)
		RETURNING id, created_at, updated_at`

	if err := tx.GetContext(ctx, order, query, order.TableID, order.Status); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		itemQuery := `
			INSERT INTO order_items (order_id, product_id, variation_id, quantity, unit_price, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`

		if err := tx.GetContext(ctx, &items[i].ID, itemQuery,
			items[i].OrderID, items[i].ProductID, items[i].VariationID,
			items[i].Quantity, items[i].UnitPrice, items[i].Notes); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	total, err := recomputeTotalTx(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	order.TotalAmount = total

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrders retrieves orders, newest first
func (s *Store) GetOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1", limit)
	return orders, err
}

// GetOrdersByTableID retrieves all orders for a table
func (s *Store) GetOrdersByTableID(ctx context.Context, tableID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE table_id = $1 ORDER BY created_at DESC", tableID)
	return orders, err
}

// CountActiveOrdersForTable counts orders for a table that are not in a
// terminal status. The table is occupied iff this count is positive.
func (s *Store) CountActiveOrdersForTable(ctx context.Context, tableID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM orders WHERE table_id = $1 AND status NOT IN ($2, $3)",
		tableID, models.OrderStatusCompleted, models.OrderStatusCancelled)
	return count, err
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// CreateOrderItem creates a new order item
func (s *Store) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, variation_id, quantity, unit_price, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return s.db.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.VariationID,
		item.Quantity, item.UnitPrice, item.Notes)
}

// GetOrderItemByID retrieves a single order item
func (s *Store) GetOrderItemByID(ctx context.Context, id int64) (*models.OrderItem, error) {
	var item models.OrderItem
	err := s.db.GetContext(ctx, &item, "SELECT * FROM order_items WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// UpdateOrderItem updates quantity and notes on an order item
func (s *Store) UpdateOrderItem(ctx context.Context, item *models.OrderItem) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE order_items SET quantity = $1, notes = $2 WHERE id = $3",
		item.Quantity, item.Notes, item.ID)
	return err
}

// DeleteOrderItem removes an order item
func (s *Store) DeleteOrderItem(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM order_items WHERE id = $1", id)
	return err
}

// RecomputeOrderTotal recalculates total_amount from the order's current
// line items and persists it. Returns the new total. Idempotent.
func (s *Store) RecomputeOrderTotal(ctx context.Context, orderID int64) (float64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	total, err := recomputeTotalTx(ctx, tx, orderID)
	if err != nil {
		return 0, err
	}

	return total, tx.Commit()
}

func recomputeTotalTx(ctx context.Context, tx *sqlx.Tx, orderID int64) (float64, error) {
	var total float64
	err := tx.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(unit_price * quantity), 0) FROM order_items WHERE order_id = $1",
		orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum order items: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET total_amount = $1, updated_at = NOW() WHERE id = $2",
		total, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to update order total: %w", err)
	}

	return total, nil
}
