package domain

import (
	"time"
)

// AuditRecord is a durable record of an event that requires review,
// such as a large stock variance discovered during conflict resolution.
type AuditRecord struct {
	ID        string    `json:"id" db:"id"`
	ItemID    string    `json:"item_id" db:"item_id"`
	AuditType AuditType `json:"audit_type" db:"audit_type"`
	Reason    string    `json:"reason" db:"reason"`
	Data      string    `json:"data" db:"data"` // JSON payload (conflict data etc.)
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type AuditType string

const (
	AuditTypeConflictResolution AuditType = "conflict-resolution"
	AuditTypeManualOverride     AuditType = "manual-override"
	AuditTypeStockCorrection    AuditType = "stock-correction"
)
