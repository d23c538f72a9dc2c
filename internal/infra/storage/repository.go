package storage

import (
	"context"
	"errors"

	"github.com/hotelops/stockpilot/internal/core/domain"
)

var (
	// ErrNotFound is returned when an entity doesn't exist.
	ErrNotFound = errors.New("not found")
)

// ItemRepository handles inventory item storage. Stock writes follow an
// optimistic versioned write contract: a caller states the version it
// believes is current and the write fails with *VersionConflictError
// when the precondition no longer holds.
type ItemRepository interface {
	// Get retrieves an item by ID.
	Get(ctx context.Context, id string) (*domain.Item, error)

	// GetBySKU retrieves an item by SKU.
	GetBySKU(ctx context.Context, sku string) (*domain.Item, error)

	// List returns all items.
	List(ctx context.Context) ([]*domain.Item, error)

	// Save inserts or replaces an item.
	Save(ctx context.Context, item *domain.Item) error

	// UpdateStock sets the stock level of an item. When expectedVersion
	// is non-nil the write only applies if the stored version matches;
	// a mismatch returns *VersionConflictError carrying the
	// authoritative state and the concurrent modification journal.
	// A nil expectedVersion bypasses the version check (force override).
	UpdateStock(
		ctx context.Context,
		id string,
		quantity int,
		expectedVersion *int64,
		origin string,
	) (*domain.Item, error)

	// RecentUpdates returns the stock update journal entries written
	// after the given version, oldest first.
	RecentUpdates(ctx context.Context, itemID string, afterVersion int64) ([]*domain.StockUpdate, error)

	// Delete removes an item.
	Delete(ctx context.Context, id string) error
}

// SupplierRepository handles supplier storage.
type SupplierRepository interface {
	Get(ctx context.Context, id string) (*domain.Supplier, error)
	List(ctx context.Context) ([]*domain.Supplier, error)
	Save(ctx context.Context, s *domain.Supplier) error
	Delete(ctx context.Context, id string) error
}

// OrderRepository handles purchase order storage.
type OrderRepository interface {
	Get(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	List(ctx context.Context) ([]*domain.PurchaseOrder, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.PurchaseOrder, error)
	Save(ctx context.Context, o *domain.PurchaseOrder) error

	// UpdateStatus transitions an order to a new status.
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

// AuditRepository stores audit records.
type AuditRepository interface {
	Create(ctx context.Context, rec *domain.AuditRecord) error
	ListByItem(ctx context.Context, itemID string) ([]*domain.AuditRecord, error)
	Count(ctx context.Context) (int, error)
}
