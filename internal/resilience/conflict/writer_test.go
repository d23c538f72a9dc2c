package conflict

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/infra/storage"
	"github.com/hotelops/stockpilot/internal/resilience/retry"
)

// =============================================================================
// Mock repositories
// =============================================================================

type mockItemRepo struct {
	mu    sync.Mutex
	item  *domain.Item
	calls []updateCall
}

type updateCall struct {
	quantity        int
	expectedVersion *int64
}

func newMockItemRepo(stock int, version int64) *mockItemRepo {
	return &mockItemRepo{
		item: &domain.Item{
			ID:      "item-1",
			SKU:     "LIN-001",
			Name:    "Bath towel",
			Stock:   stock,
			Version: version,
		},
	}
}

func (r *mockItemRepo) Get(ctx context.Context, id string) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.item
	return &cp, nil
}

func (r *mockItemRepo) GetBySKU(ctx context.Context, sku string) (*domain.Item, error) {
	return r.Get(ctx, "")
}

func (r *mockItemRepo) List(ctx context.Context) ([]*domain.Item, error) {
	it, _ := r.Get(ctx, "")
	return []*domain.Item{it}, nil
}

func (r *mockItemRepo) Save(ctx context.Context, item *domain.Item) error { return nil }

func (r *mockItemRepo) UpdateStock(
	ctx context.Context,
	id string,
	quantity int,
	expectedVersion *int64,
	origin string,
) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, updateCall{quantity: quantity, expectedVersion: expectedVersion})

	if expectedVersion != nil && *expectedVersion != r.item.Version {
		return nil, &storage.VersionConflictError{
			ItemID:          id,
			ExpectedVersion: *expectedVersion,
			ActualVersion:   r.item.Version,
			ActualStock:     r.item.Stock,
		}
	}

	r.item.Stock = quantity
	r.item.Version++
	cp := *r.item
	return &cp, nil
}

func (r *mockItemRepo) RecentUpdates(
	ctx context.Context,
	itemID string,
	afterVersion int64,
) ([]*domain.StockUpdate, error) {
	return nil, nil
}

func (r *mockItemRepo) Delete(ctx context.Context, id string) error { return nil }

type mockAuditRepo struct {
	mu      sync.Mutex
	records []*domain.AuditRecord
}

func (r *mockAuditRepo) Create(ctx context.Context, rec *domain.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *mockAuditRepo) ListByItem(
	ctx context.Context,
	itemID string,
) ([]*domain.AuditRecord, error) {
	return r.records, nil
}

func (r *mockAuditRepo) Count(ctx context.Context) (int, error) {
	return len(r.records), nil
}

func testWriter(items storage.ItemRepository, audits storage.AuditRepository) *Writer {
	cfg := retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	return NewWriter(items, audits, cfg, "test-context", nil)
}

// =============================================================================
// Writer
// =============================================================================

func TestWriter_CleanWrite(t *testing.T) {
	repo := newMockItemRepo(100, 7)
	w := testWriter(repo, &mockAuditRepo{})

	out, err := w.UpdateStock(context.Background(), "item-1", 95, 100, 7)
	if err != nil {
		t.Fatalf("UpdateStock failed: %v", err)
	}
	if out.Item == nil || out.Item.Stock != 95 {
		t.Fatalf("expected stock 95, got %+v", out.Item)
	}
	if out.Pending != nil {
		t.Error("clean write must not produce a pending conflict")
	}
	if len(repo.calls) != 1 {
		t.Errorf("expected 1 write, got %d", len(repo.calls))
	}
}

func TestWriter_SmallDriftAutoHeals(t *testing.T) {
	// Caller believes version 7 / stock 100; store is at version 9 /
	// stock 103. Variance 3 -> last_write_wins, write re-issued against
	// the authoritative version.
	repo := newMockItemRepo(103, 9)
	w := testWriter(repo, &mockAuditRepo{})

	out, err := w.UpdateStock(context.Background(), "item-1", 95, 100, 7)
	if err != nil {
		t.Fatalf("UpdateStock failed: %v", err)
	}
	if out.Resolution == nil || out.Resolution.Strategy != StrategyLastWriteWins {
		t.Fatalf("expected last_write_wins resolution, got %+v", out.Resolution)
	}
	if out.Item == nil || out.Item.Stock != 95 {
		t.Fatalf("expected healed write to land stock 95, got %+v", out.Item)
	}
	if len(repo.calls) != 2 {
		t.Fatalf("expected 2 writes (conflict + heal), got %d", len(repo.calls))
	}
	if repo.calls[1].expectedVersion == nil || *repo.calls[1].expectedVersion != 9 {
		t.Errorf("healed write must use the authoritative version, got %v",
			repo.calls[1].expectedVersion)
	}
}

func TestWriter_ModerateDriftReturnsPending(t *testing.T) {
	repo := newMockItemRepo(115, 9) // variance 15 vs expected 100
	audits := &mockAuditRepo{}
	w := testWriter(repo, audits)

	out, err := w.UpdateStock(context.Background(), "item-1", 95, 100, 7)
	if err != nil {
		t.Fatalf("UpdateStock failed: %v", err)
	}
	if out.Item != nil {
		t.Error("moderate drift must not write silently")
	}
	if out.Pending == nil {
		t.Fatal("expected pending conflict")
	}
	if out.Resolution.Strategy != StrategyManualResolution {
		t.Errorf("expected manual_resolution, got %s", out.Resolution.Strategy)
	}
	if len(audits.records) != 0 {
		t.Errorf("manual_resolution must not auto-file an audit, got %d", len(audits.records))
	}
	// Only the original attempt hit the store.
	if len(repo.calls) != 1 {
		t.Errorf("expected 1 write attempt, got %d", len(repo.calls))
	}
}

func TestWriter_LargeDriftFilesAuditImmediately(t *testing.T) {
	repo := newMockItemRepo(151, 9) // variance 51
	audits := &mockAuditRepo{}
	w := testWriter(repo, audits)

	out, err := w.UpdateStock(context.Background(), "item-1", 95, 100, 7)
	if err != nil {
		t.Fatalf("UpdateStock failed: %v", err)
	}
	if out.Resolution.Strategy != StrategyAuditRequired {
		t.Fatalf("expected audit_required, got %s", out.Resolution.Strategy)
	}
	if out.Pending == nil {
		t.Fatal("expected pending conflict")
	}
	if len(audits.records) != 1 {
		t.Fatalf("expected the audit record to be filed immediately, got %d", len(audits.records))
	}
	rec := audits.records[0]
	if rec.AuditType != domain.AuditTypeConflictResolution {
		t.Errorf("expected conflict-resolution audit, got %s", rec.AuditType)
	}
	if rec.ItemID != "item-1" || rec.ID == "" {
		t.Errorf("audit record incomplete: %+v", rec)
	}
}

// =============================================================================
// Pending conflict options
// =============================================================================

func TestPending_AcceptActual(t *testing.T) {
	repo := newMockItemRepo(115, 9)
	w := testWriter(repo, &mockAuditRepo{})

	out, err := w.UpdateStock(context.Background(), "item-1", 95, 100, 7)
	if err != nil {
		t.Fatalf("UpdateStock failed: %v", err)
	}

	item, err := out.Pending.AcceptActual(context.Background())
	if err != nil {
		t.Fatalf("AcceptActual failed: %v", err)
	}
	if item.Stock != 115 {
		t.Errorf("expected authoritative stock 115, got %d", item.Stock)
	}
	// Accepting must not write.
	if len(repo.calls) != 1 {
		t.Errorf("AcceptActual must not issue a write, got %d calls", len(repo.calls))
	}
}

func TestPending_ForceOverride(t *testing.T) {
	repo := newMockItemRepo(115, 9)
	audits := &mockAuditRepo{}
	w := testWriter(repo, audits)

	out, err := w.UpdateStock(context.Background(), "item-1", 95, 100, 7)
	if err != nil {
		t.Fatalf("UpdateStock failed: %v", err)
	}

	item, err := out.Pending.ForceOverride(context.Background())
	if err != nil {
		t.Fatalf("ForceOverride failed: %v", err)
	}
	if item.Stock != 95 {
		t.Errorf("expected forced stock 95, got %d", item.Stock)
	}
	last := repo.calls[len(repo.calls)-1]
	if last.expectedVersion != nil {
		t.Error("force override must bypass the version check")
	}
	if len(audits.records) != 1 || audits.records[0].AuditType != domain.AuditTypeManualOverride {
		t.Errorf("expected a manual-override audit record, got %+v", audits.records)
	}
}

func TestPending_CreateAuditRecord(t *testing.T) {
	repo := newMockItemRepo(115, 9)
	audits := &mockAuditRepo{}
	w := testWriter(repo, audits)

	out, err := w.UpdateStock(context.Background(), "item-1", 95, 100, 7)
	if err != nil {
		t.Fatalf("UpdateStock failed: %v", err)
	}

	if err := out.Pending.CreateAuditRecord(context.Background(), "housekeeping recount pending"); err != nil {
		t.Fatalf("CreateAuditRecord failed: %v", err)
	}
	if len(audits.records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(audits.records))
	}
	if audits.records[0].Reason != "housekeeping recount pending" {
		t.Errorf("unexpected reason %q", audits.records[0].Reason)
	}
	// The stock itself stays untouched.
	item, _ := repo.Get(context.Background(), "item-1")
	if item.Stock != 115 {
		t.Errorf("audit-only resolution must not change stock, got %d", item.Stock)
	}
}
