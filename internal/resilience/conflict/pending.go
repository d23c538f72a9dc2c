package conflict

import (
	"context"
	"fmt"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/infra/storage"
)

// PendingConflict is a conflict whose resolution requires an explicit
// caller choice. Exactly three options are offered; none is applied
// silently.
type PendingConflict struct {
	writer     *Writer
	itemID     string
	quantity   int
	resolution *Resolution
	conflict   *storage.VersionConflictError
}

// Resolution returns the decision record behind this pending conflict.
func (p *PendingConflict) Resolution() *Resolution { return p.resolution }

// AcceptActual resolves the conflict by accepting the authoritative
// value; no write is issued, the current item is returned.
func (p *PendingConflict) AcceptActual(ctx context.Context) (*domain.Item, error) {
	item, err := p.writer.items.Get(ctx, p.itemID)
	if err != nil {
		return nil, fmt.Errorf("read authoritative item: %w", err)
	}
	p.writer.log.Info("conflict resolved by accepting authoritative value",
		"item", p.itemID, "stock", item.Stock)
	return item, nil
}

// ForceOverride resolves the conflict by writing the caller's original
// value, bypassing the version check. An audit record of the override
// is always filed.
func (p *PendingConflict) ForceOverride(ctx context.Context) (*domain.Item, error) {
	item, err := p.writer.attempt(ctx, p.itemID, p.quantity, nil)
	if err != nil {
		return nil, fmt.Errorf("force override: %w", err)
	}
	if err := p.writer.fileOverrideAudit(ctx, p.itemID, p.resolution.Data); err != nil {
		p.writer.log.Error("failed to record override audit", "item", p.itemID, "error", err)
	}
	p.writer.log.Warn("conflict resolved by force override",
		"item", p.itemID, "stock", p.quantity)
	return item, nil
}

// CreateAuditRecord resolves the conflict by filing an audit record
// with the given reason and leaving the stored value untouched.
func (p *PendingConflict) CreateAuditRecord(ctx context.Context, reason string) error {
	if reason == "" {
		reason = "unresolved stock conflict flagged for review"
	}
	return p.writer.fileAudit(ctx, p.itemID, reason, p.resolution.Data)
}
