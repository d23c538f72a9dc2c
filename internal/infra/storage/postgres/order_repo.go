package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/infra/storage"
)

// OrderRepo implements storage.OrderRepository using PostgreSQL.
type OrderRepo struct {
	db *DB
}

// NewOrderRepo creates a new PostgreSQL purchase order repository.
func NewOrderRepo(db *DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) Get(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	var o domain.PurchaseOrder
	err := r.db.GetContext(ctx, &o,
		`SELECT id, supplier_id, status, total, ordered_at, received_at
		 FROM purchase_orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if err := r.loadLines(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) List(ctx context.Context) ([]*domain.PurchaseOrder, error) {
	var orders []*domain.PurchaseOrder
	err := r.db.SelectContext(ctx, &orders,
		`SELECT id, supplier_id, status, total, ordered_at, received_at
		 FROM purchase_orders ORDER BY ordered_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *OrderRepo) ListByStatus(
	ctx context.Context,
	status domain.OrderStatus,
) ([]*domain.PurchaseOrder, error) {
	var orders []*domain.PurchaseOrder
	err := r.db.SelectContext(ctx, &orders,
		`SELECT id, supplier_id, status, total, ordered_at, received_at
		 FROM purchase_orders WHERE status = $1 ORDER BY ordered_at DESC`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by status: %w", err)
	}
	return orders, nil
}

// Save upserts an order together with its lines.
func (r *OrderRepo) Save(ctx context.Context, o *domain.PurchaseOrder) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO purchase_orders (id, supplier_id, status, total, ordered_at, received_at)
		VALUES (:id, :supplier_id, :status, :total, :ordered_at, :received_at)
		ON CONFLICT (id) DO UPDATE SET
			supplier_id = EXCLUDED.supplier_id,
			status = EXCLUDED.status,
			total = EXCLUDED.total,
			ordered_at = EXCLUDED.ordered_at,
			received_at = EXCLUDED.received_at`, o)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = $1`, o.ID)
	if err != nil {
		return fmt.Errorf("failed to clear order lines: %w", err)
	}

	for i := range o.Lines {
		o.Lines[i].OrderID = o.ID
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO order_lines (id, order_id, item_id, quantity, unit_price)
			VALUES (:id, :order_id, :item_id, :quantity, :unit_price)`, o.Lines[i])
		if err != nil {
			return fmt.Errorf("failed to save order line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

// UpdateStatus transitions an order to a new status.
func (r *OrderRepo) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.OrderStatus,
) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE purchase_orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) loadLines(ctx context.Context, o *domain.PurchaseOrder) error {
	err := r.db.SelectContext(ctx, &o.Lines,
		`SELECT id, order_id, item_id, quantity, unit_price
		 FROM order_lines WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return fmt.Errorf("failed to load order lines: %w", err)
	}
	return nil
}
