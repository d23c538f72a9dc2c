package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/infra/storage"
)

const itemColumns = `id, sku, name, category, stock, min_stock, unit_price, supplier_id, version, updated_at`

// ItemRepo implements storage.ItemRepository using PostgreSQL.
type ItemRepo struct {
	db *DB
}

// NewItemRepo creates a new PostgreSQL item repository.
func NewItemRepo(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

// Get retrieves an item by ID.
func (r *ItemRepo) Get(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	err := r.db.GetContext(ctx, &item,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// GetBySKU retrieves an item by SKU.
func (r *ItemRepo) GetBySKU(ctx context.Context, sku string) (*domain.Item, error) {
	var item domain.Item
	err := r.db.GetContext(ctx, &item,
		`SELECT `+itemColumns+` FROM items WHERE sku = $1`, sku)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item by sku: %w", err)
	}
	return &item, nil
}

// List returns all items.
func (r *ItemRepo) List(ctx context.Context) ([]*domain.Item, error) {
	var items []*domain.Item
	err := r.db.SelectContext(ctx, &items,
		`SELECT `+itemColumns+` FROM items ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// Save inserts or replaces an item.
func (r *ItemRepo) Save(ctx context.Context, item *domain.Item) error {
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO items (id, sku, name, category, stock, min_stock, unit_price, supplier_id, version, updated_at)
		VALUES (:id, :sku, :name, :category, :stock, :min_stock, :unit_price, :supplier_id, :version, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			sku = EXCLUDED.sku,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			stock = EXCLUDED.stock,
			min_stock = EXCLUDED.min_stock,
			unit_price = EXCLUDED.unit_price,
			supplier_id = EXCLUDED.supplier_id,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at`, item)
	if err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

// UpdateStock sets an item's stock level under the versioned write
// contract. The row is locked for the duration of the check so a
// version mismatch always reports the true authoritative state.
func (r *ItemRepo) UpdateStock(
	ctx context.Context,
	id string,
	quantity int,
	expectedVersion *int64,
	origin string,
) (*domain.Item, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current domain.Item
	err = tx.GetContext(ctx, &current,
		`SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock item: %w", err)
	}

	if expectedVersion != nil && current.Version != *expectedVersion {
		journal, jerr := recentUpdatesTx(ctx, tx, id, *expectedVersion)
		if jerr != nil {
			return nil, jerr
		}
		return nil, &storage.VersionConflictError{
			ItemID:            id,
			ExpectedVersion:   *expectedVersion,
			ActualVersion:     current.Version,
			ActualStock:       current.Stock,
			ConcurrentUpdates: journal,
		}
	}

	now := time.Now().UTC()
	update := &domain.StockUpdate{
		ID:        uuid.NewString(),
		ItemID:    id,
		Quantity:  quantity,
		Delta:     quantity - current.Stock,
		Version:   current.Version + 1,
		Origin:    origin,
		CreatedAt: now,
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET stock = $1, version = $2, updated_at = $3 WHERE id = $4`,
		quantity, update.Version, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO stock_updates (id, item_id, quantity, delta, version, origin, created_at)
		VALUES (:id, :item_id, :quantity, :delta, :version, :origin, :created_at)`, update)
	if err != nil {
		return nil, fmt.Errorf("failed to journal stock update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stock update: %w", err)
	}

	current.Stock = quantity
	current.Version = update.Version
	current.UpdatedAt = now
	return &current, nil
}

// RecentUpdates returns journal entries written after the given
// version, oldest first.
func (r *ItemRepo) RecentUpdates(
	ctx context.Context,
	itemID string,
	afterVersion int64,
) ([]*domain.StockUpdate, error) {
	return recentUpdatesTx(ctx, r.db, itemID, afterVersion)
}

// Delete removes an item.
func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func recentUpdatesTx(
	ctx context.Context,
	q sqlx.QueryerContext,
	itemID string,
	afterVersion int64,
) ([]*domain.StockUpdate, error) {
	var updates []*domain.StockUpdate
	err := sqlx.SelectContext(ctx, q, &updates, `
		SELECT id, item_id, quantity, delta, version, origin, created_at
		FROM stock_updates
		WHERE item_id = $1 AND version > $2
		ORDER BY version`, itemID, afterVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to read stock update journal: %w", err)
	}
	return updates, nil
}
