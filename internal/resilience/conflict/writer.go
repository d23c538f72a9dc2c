package conflict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/infra/storage"
	"github.com/hotelops/stockpilot/internal/metrics"
	"github.com/hotelops/stockpilot/internal/resilience/retry"
)

// Writer is the conflict-aware stock write path. It attempts a
// versioned write, and on a version conflict consults the resolver:
// small drift is healed automatically, everything else is handed back
// to the caller as a PendingConflict.
type Writer struct {
	items  storage.ItemRepository
	audits storage.AuditRepository
	retry  retry.Config
	origin string
	log    *slog.Logger
}

// NewWriter creates a conflict-aware writer. origin identifies this
// execution context in the stock update journal.
func NewWriter(
	items storage.ItemRepository,
	audits storage.AuditRepository,
	retryCfg retry.Config,
	origin string,
	log *slog.Logger,
) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{
		items:  items,
		audits: audits,
		retry:  retryCfg,
		origin: origin,
		log:    log,
	}
}

// Outcome reports how an UpdateStock call ended. Exactly one of Item
// and Pending is set: Item when the write applied (directly or after
// auto-healing), Pending when a human has to choose.
type Outcome struct {
	Item       *domain.Item
	Resolution *Resolution
	Pending    *PendingConflict
}

// UpdateStock writes a new stock level for an item, expecting the given
// version. The expected stock is the caller's basis quantity, used to
// compute the conflict variance.
//
// On a version conflict the resolver decides: last_write_wins re-issues
// the write against the authoritative version; manual_resolution and
// audit_required return a PendingConflict whose options the caller must
// pick from explicitly. audit_required additionally files an audit
// record immediately, before any caller decision, so the incident trail
// doesn't depend on operator follow-through.
func (w *Writer) UpdateStock(
	ctx context.Context,
	itemID string,
	quantity int,
	expectedStock int,
	expectedVersion int64,
) (*Outcome, error) {
	item, err := w.attempt(ctx, itemID, quantity, &expectedVersion)
	if err == nil {
		return &Outcome{Item: item}, nil
	}

	var conflict *storage.VersionConflictError
	if !errors.As(err, &conflict) {
		return nil, err
	}

	res := ResolveStock(expectedStock, conflict.ActualStock, conflict.ConcurrentUpdates)
	metrics.ConflictsResolved.WithLabelValues(string(res.Strategy)).Inc()
	w.log.Warn("stock conflict detected",
		"item", itemID,
		"variance", res.Data.Variance,
		"strategy", res.Strategy,
	)

	if res.Strategy == StrategyLastWriteWins {
		// Re-issue the write against the authoritative version.
		item, err := w.attempt(ctx, itemID, quantity, &conflict.ActualVersion)
		if err != nil {
			return nil, fmt.Errorf("retry after auto-heal: %w", err)
		}
		return &Outcome{Item: item, Resolution: res}, nil
	}

	if res.RequiresAudit {
		if err := w.fileAudit(ctx, itemID, "stock variance exceeded audit threshold", res.Data); err != nil {
			w.log.Error("failed to create audit record", "item", itemID, "error", err)
		}
	}

	return &Outcome{
		Resolution: res,
		Pending: &PendingConflict{
			writer:     w,
			itemID:     itemID,
			quantity:   quantity,
			resolution: res,
			conflict:   conflict,
		},
	}, nil
}

// attempt performs one versioned write, retried per the writer's policy
// for transient failures. Version conflicts are not retried here; they
// are the resolver's job.
func (w *Writer) attempt(
	ctx context.Context,
	itemID string,
	quantity int,
	expectedVersion *int64,
) (*domain.Item, error) {
	return retry.DoValue(ctx, w.retry, func(ctx context.Context) (*domain.Item, error) {
		item, err := w.items.UpdateStock(ctx, itemID, quantity, expectedVersion, w.origin)
		if err != nil {
			var conflict *storage.VersionConflictError
			if errors.As(err, &conflict) {
				// Retrying an identical precondition cannot
				// succeed; the resolver has to see it first.
				return nil, retry.Abort(err)
			}
			return nil, err
		}
		return item, nil
	})
}

func (w *Writer) fileOverrideAudit(ctx context.Context, itemID string, data *Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal conflict data: %w", err)
	}
	return w.audits.Create(ctx, &domain.AuditRecord{
		ID:        uuid.New().String(),
		ItemID:    itemID,
		AuditType: domain.AuditTypeManualOverride,
		Reason:    "operator forced caller value over authoritative stock",
		Data:      string(payload),
		CreatedAt: time.Now(),
	})
}

func (w *Writer) fileAudit(ctx context.Context, itemID, reason string, data *Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal conflict data: %w", err)
	}
	return w.audits.Create(ctx, &domain.AuditRecord{
		ID:        uuid.New().String(),
		ItemID:    itemID,
		AuditType: domain.AuditTypeConflictResolution,
		Reason:    reason,
		Data:      string(payload),
		CreatedAt: time.Now(),
	})
}
