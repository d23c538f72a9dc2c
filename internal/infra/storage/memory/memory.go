package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/infra/storage"
)

// MemoryStorage backs the repositories with in-process maps. Used for
// tests and for running the agent without a database.
type MemoryStorage struct {
	items    map[string]*domain.Item
	journal  map[string][]*domain.StockUpdate
	supplier map[string]*domain.Supplier
	orders   map[string]*domain.PurchaseOrder
	audits   []*domain.AuditRecord
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items:    make(map[string]*domain.Item),
		journal:  make(map[string][]*domain.StockUpdate),
		supplier: make(map[string]*domain.Supplier),
		orders:   make(map[string]*domain.PurchaseOrder),
	}
}

// -----------------------------------------------------------------------------
// Item Repository
// -----------------------------------------------------------------------------

type ItemRepo struct {
	store *MemoryStorage
}

func NewItemRepo(store *MemoryStorage) *ItemRepo {
	return &ItemRepo{store: store}
}

func (r *ItemRepo) Get(ctx context.Context, id string) (*domain.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	item, ok := r.store.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (r *ItemRepo) GetBySKU(ctx context.Context, sku string) (*domain.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, item := range r.store.items {
		if item.SKU == sku {
			copied := *item
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *ItemRepo) List(ctx context.Context) ([]*domain.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	items := make([]*domain.Item, 0, len(r.store.items))
	for _, item := range r.store.items {
		copied := *item
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SKU < items[j].SKU })
	return items, nil
}

func (r *ItemRepo) Save(ctx context.Context, item *domain.Item) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if item.Version == 0 {
		item.Version = 1
	}
	copied := *item
	r.store.items[item.ID] = &copied
	return nil
}

func (r *ItemRepo) UpdateStock(
	ctx context.Context,
	id string,
	quantity int,
	expectedVersion *int64,
	origin string,
) (*domain.Item, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	if expectedVersion != nil && item.Version != *expectedVersion {
		return nil, &storage.VersionConflictError{
			ItemID:            id,
			ExpectedVersion:   *expectedVersion,
			ActualVersion:     item.Version,
			ActualStock:       item.Stock,
			ConcurrentUpdates: journalAfter(r.store.journal[id], *expectedVersion),
		}
	}

	now := time.Now().UTC()
	update := &domain.StockUpdate{
		ID:        uuid.NewString(),
		ItemID:    id,
		Quantity:  quantity,
		Delta:     quantity - item.Stock,
		Version:   item.Version + 1,
		Origin:    origin,
		CreatedAt: now,
	}
	r.store.journal[id] = append(r.store.journal[id], update)

	item.Stock = quantity
	item.Version = update.Version
	item.UpdatedAt = now

	copied := *item
	return &copied, nil
}

func (r *ItemRepo) RecentUpdates(
	ctx context.Context,
	itemID string,
	afterVersion int64,
) ([]*domain.StockUpdate, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return journalAfter(r.store.journal[itemID], afterVersion), nil
}

func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.items, id)
	delete(r.store.journal, id)
	return nil
}

func journalAfter(journal []*domain.StockUpdate, afterVersion int64) []*domain.StockUpdate {
	var updates []*domain.StockUpdate
	for _, u := range journal {
		if u.Version > afterVersion {
			updates = append(updates, u)
		}
	}
	return updates
}

// -----------------------------------------------------------------------------
// Supplier Repository
// -----------------------------------------------------------------------------

type SupplierRepo struct {
	store *MemoryStorage
}

func NewSupplierRepo(store *MemoryStorage) *SupplierRepo {
	return &SupplierRepo{store: store}
}

func (r *SupplierRepo) Get(ctx context.Context, id string) (*domain.Supplier, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	s, ok := r.store.supplier[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *SupplierRepo) List(ctx context.Context) ([]*domain.Supplier, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	suppliers := make([]*domain.Supplier, 0, len(r.store.supplier))
	for _, s := range r.store.supplier {
		copied := *s
		suppliers = append(suppliers, &copied)
	}
	sort.Slice(suppliers, func(i, j int) bool { return suppliers[i].Name < suppliers[j].Name })
	return suppliers, nil
}

func (r *SupplierRepo) Save(ctx context.Context, s *domain.Supplier) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *s
	r.store.supplier[s.ID] = &copied
	return nil
}

func (r *SupplierRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.supplier, id)
	return nil
}

// -----------------------------------------------------------------------------
// Order Repository
// -----------------------------------------------------------------------------

type OrderRepo struct {
	store *MemoryStorage
}

func NewOrderRepo(store *MemoryStorage) *OrderRepo {
	return &OrderRepo{store: store}
}

func (r *OrderRepo) Get(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	o, ok := r.store.orders[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *o
	copied.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &copied, nil
}

func (r *OrderRepo) List(ctx context.Context) ([]*domain.PurchaseOrder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	orders := make([]*domain.PurchaseOrder, 0, len(r.store.orders))
	for _, o := range r.store.orders {
		copied := *o
		orders = append(orders, &copied)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].OrderedAt.After(orders[j].OrderedAt)
	})
	return orders, nil
}

func (r *OrderRepo) ListByStatus(
	ctx context.Context,
	status domain.OrderStatus,
) ([]*domain.PurchaseOrder, error) {
	all, _ := r.List(ctx)
	var orders []*domain.PurchaseOrder
	for _, o := range all {
		if o.Status == status {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (r *OrderRepo) Save(ctx context.Context, o *domain.PurchaseOrder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *o
	copied.Lines = append([]domain.OrderLine(nil), o.Lines...)
	r.store.orders[o.ID] = &copied
	return nil
}

func (r *OrderRepo) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.OrderStatus,
) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, ok := r.store.orders[id]
	if !ok {
		return storage.ErrNotFound
	}
	o.Status = status
	return nil
}

// -----------------------------------------------------------------------------
// Audit Repository
// -----------------------------------------------------------------------------

type AuditRepo struct {
	store *MemoryStorage
}

func NewAuditRepo(store *MemoryStorage) *AuditRepo {
	return &AuditRepo{store: store}
}

func (r *AuditRepo) Create(ctx context.Context, rec *domain.AuditRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	copied := *rec
	r.store.audits = append(r.store.audits, &copied)
	return nil
}

func (r *AuditRepo) ListByItem(ctx context.Context, itemID string) ([]*domain.AuditRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var records []*domain.AuditRecord
	for _, rec := range r.store.audits {
		if rec.ItemID == itemID {
			copied := *rec
			records = append(records, &copied)
		}
	}
	return records, nil
}

func (r *AuditRepo) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.audits), nil
}
