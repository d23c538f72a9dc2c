// Package conflict decides how conflicting concurrent stock updates are
// resolved, and drives the conflict-aware write path on top of the
// versioned write contract.
package conflict

import (
	"github.com/hotelops/stockpilot/internal/core/domain"
)

// Strategy is how a stock conflict should be resolved.
type Strategy string

const (
	StrategyLastWriteWins    Strategy = "last_write_wins"
	StrategyManualResolution Strategy = "manual_resolution"
	StrategyAuditRequired    Strategy = "audit_required"
	// StrategyMergeChanges is part of the closed enumeration but is not
	// produced by the stock policy; field-level merges don't apply to a
	// single numeric quantity.
	StrategyMergeChanges Strategy = "merge_changes"
)

// Variance thresholds, in absolute units of stock.
const (
	// VarianceAutoHeal is the largest drift accepted silently. Small
	// drift is expected under light concurrent write traffic.
	VarianceAutoHeal = 5

	// VarianceAuditRequired is the drift above which a conflict is
	// treated as a potential integrity incident.
	VarianceAuditRequired = 20
)

// Data captures the inputs of a conflict plus the computed variance,
// for downstream display and audit.
type Data struct {
	ExpectedStock     int                   `json:"expected_stock"`
	ActualStock       int                   `json:"actual_stock"`
	Variance          int                   `json:"variance"`
	ConcurrentUpdates []*domain.StockUpdate `json:"concurrent_updates"`
}

// Resolution is the decision record for one conflict. It is returned to
// the caller, which owns applying it; it is never persisted as an
// entity itself.
type Resolution struct {
	Strategy         Strategy `json:"strategy"`
	ResolvedValue    *int     `json:"resolved_value"`
	RequiresApproval bool     `json:"requires_approval"`
	RequiresAudit    bool     `json:"requires_audit"`
	Data             *Data    `json:"conflict_data"`
}

// ResolveStock decides how a stock-quantity conflict is resolved.
// Deterministic in its inputs; the strategy is a monotonic step
// function of the variance.
func ResolveStock(expectedStock, actualStock int, updates []*domain.StockUpdate) *Resolution {
	variance := expectedStock - actualStock
	if variance < 0 {
		variance = -variance
	}

	data := &Data{
		ExpectedStock:     expectedStock,
		ActualStock:       actualStock,
		Variance:          variance,
		ConcurrentUpdates: updates,
	}

	switch {
	case variance <= VarianceAutoHeal:
		resolved := actualStock
		return &Resolution{
			Strategy:      StrategyLastWriteWins,
			ResolvedValue: &resolved,
			Data:          data,
		}
	case variance <= VarianceAuditRequired:
		return &Resolution{
			Strategy:         StrategyManualResolution,
			RequiresApproval: true,
			Data:             data,
		}
	default:
		return &Resolution{
			Strategy:         StrategyAuditRequired,
			RequiresApproval: true,
			RequiresAudit:    true,
			Data:             data,
		}
	}
}
