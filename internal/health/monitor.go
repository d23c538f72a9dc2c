package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// AuthChecker reports whether a valid session is held.
type AuthChecker interface {
	IsAuthenticated() bool
}

// Pinger checks connectivity of a backing store.
type Pinger interface {
	Health(ctx context.Context) error
}

// SyncStatus reports the last successful sync run and how many stock
// conflicts it left awaiting manual resolution.
type SyncStatus interface {
	LastSync() time.Time
	PendingConflicts() int
}

// AuditCounter reports the size of the audit trail.
type AuditCounter interface {
	Count(ctx context.Context) (int, error)
}

// Monitor aggregates health status from system components.
type Monitor struct {
	auth       AuthChecker
	db         Pinger // nil when running on memory storage
	sync       SyncStatus
	audits     AuditCounter
	staleAfter time.Duration

	lastCheck  time.Time
	lastReport Report
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. staleAfter is how old the
// last successful sync may be before the sync component degrades.
func NewMonitor(auth AuthChecker, db Pinger, sync SyncStatus, audits AuditCounter, staleAfter time.Duration) *Monitor {
	return &Monitor{
		auth:       auth,
		db:         db,
		sync:       sync,
		audits:     audits,
		staleAfter: staleAfter,
	}
}

// CheckHealth performs a health check across all components.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks to avoid hammering the database
	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport.Components != nil {
		return m.lastReport
	}

	report := Report{Components: make(map[string]ComponentHealth)}

	session := ComponentHealth{Name: "session", Status: StatusHealthy}
	if m.auth != nil && !m.auth.IsAuthenticated() {
		session.Status = StatusDegraded
		session.Detail = "no valid session"
	}
	report.Components["session"] = session

	if m.db != nil {
		db := ComponentHealth{Name: "database", Status: StatusHealthy}
		if err := m.db.Health(ctx); err != nil {
			db.Status = StatusCritical
			db.Detail = err.Error()
		}
		report.Components["database"] = db
	}

	if m.sync != nil {
		syncHealth := ComponentHealth{Name: "sync", Status: StatusHealthy}
		last := m.sync.LastSync()
		switch {
		case last.IsZero():
			syncHealth.Status = StatusDegraded
			syncHealth.Detail = "no sync completed yet"
		case time.Since(last) > m.staleAfter:
			syncHealth.Status = StatusDegraded
			syncHealth.Detail = fmt.Sprintf("last sync %s ago", time.Since(last).Round(time.Second))
		}
		report.Components["sync"] = syncHealth

		conflicts := ComponentHealth{Name: "conflicts", Status: StatusHealthy}
		if n := m.sync.PendingConflicts(); n > 0 {
			conflicts.Status = StatusDegraded
			conflicts.Detail = fmt.Sprintf("%d stock conflicts awaiting resolution", n)
		} else if m.audits != nil {
			if n, err := m.audits.Count(ctx); err == nil {
				conflicts.Detail = fmt.Sprintf("%d audit records on file", n)
			}
		}
		report.Components["conflicts"] = conflicts
	}

	report.SystemStatus = report.Overall()

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
