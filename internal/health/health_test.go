package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// =============================================================================
// Mocks
// =============================================================================

type stubAuth struct {
	authenticated bool
}

func (s *stubAuth) IsAuthenticated() bool { return s.authenticated }

type stubPinger struct {
	err error
}

func (s *stubPinger) Health(ctx context.Context) error { return s.err }

type stubSync struct {
	last    time.Time
	pending int
}

func (s *stubSync) LastSync() time.Time   { return s.last }
func (s *stubSync) PendingConflicts() int { return s.pending }

type stubAudits struct {
	count int
	err   error
}

func (s *stubAudits) Count(ctx context.Context) (int, error) { return s.count, s.err }

// =============================================================================
// Tests
// =============================================================================

func TestMonitor_Healthy(t *testing.T) {
	monitor := NewMonitor(
		&stubAuth{authenticated: true},
		&stubPinger{},
		&stubSync{last: time.Now()},
		nil,
		5*time.Minute,
	)

	report := monitor.CheckHealth(context.Background())
	if report.SystemStatus != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.SystemStatus)
	}
}

func TestMonitor_DegradedWithoutSession(t *testing.T) {
	monitor := NewMonitor(
		&stubAuth{authenticated: false},
		&stubPinger{},
		&stubSync{last: time.Now()},
		nil,
		5*time.Minute,
	)

	report := monitor.CheckHealth(context.Background())
	if report.SystemStatus != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.SystemStatus)
	}
	if report.Components["session"].Status != StatusDegraded {
		t.Errorf("session component should be degraded")
	}
}

func TestMonitor_StaleSyncDegrades(t *testing.T) {
	monitor := NewMonitor(
		&stubAuth{authenticated: true},
		&stubPinger{},
		&stubSync{last: time.Now().Add(-time.Hour)},
		nil,
		5*time.Minute,
	)

	report := monitor.CheckHealth(context.Background())
	if report.Components["sync"].Status != StatusDegraded {
		t.Errorf("expected degraded sync, got %s", report.Components["sync"].Status)
	}
}

func TestMonitor_DatabaseFailureCritical(t *testing.T) {
	monitor := NewMonitor(
		&stubAuth{authenticated: true},
		&stubPinger{err: errors.New("connection refused")},
		&stubSync{last: time.Now()},
		nil,
		5*time.Minute,
	)

	report := monitor.CheckHealth(context.Background())
	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
}

func TestMonitor_NilDatabaseSkipped(t *testing.T) {
	monitor := NewMonitor(
		&stubAuth{authenticated: true},
		nil,
		&stubSync{last: time.Now()},
		nil,
		5*time.Minute,
	)

	report := monitor.CheckHealth(context.Background())
	if _, ok := report.Components["database"]; ok {
		t.Error("nil database should not be reported")
	}
	if report.SystemStatus != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.SystemStatus)
	}
}

func TestMonitor_PendingConflictsDegrade(t *testing.T) {
	monitor := NewMonitor(
		&stubAuth{authenticated: true},
		&stubPinger{},
		&stubSync{last: time.Now(), pending: 2},
		&stubAudits{count: 5},
		5*time.Minute,
	)

	report := monitor.CheckHealth(context.Background())
	conflicts := report.Components["conflicts"]
	if conflicts.Status != StatusDegraded {
		t.Errorf("expected degraded conflicts, got %s", conflicts.Status)
	}
	if conflicts.Detail != "2 stock conflicts awaiting resolution" {
		t.Errorf("unexpected detail %q", conflicts.Detail)
	}
	if report.SystemStatus != StatusDegraded {
		t.Errorf("expected degraded system, got %s", report.SystemStatus)
	}
}

func TestMonitor_NoPendingConflictsReportsAuditTrail(t *testing.T) {
	monitor := NewMonitor(
		&stubAuth{authenticated: true},
		&stubPinger{},
		&stubSync{last: time.Now()},
		&stubAudits{count: 7},
		5*time.Minute,
	)

	report := monitor.CheckHealth(context.Background())
	conflicts := report.Components["conflicts"]
	if conflicts.Status != StatusHealthy {
		t.Errorf("expected healthy conflicts, got %s", conflicts.Status)
	}
	if conflicts.Detail != "7 audit records on file" {
		t.Errorf("unexpected detail %q", conflicts.Detail)
	}
}

func TestMonitor_CachesReports(t *testing.T) {
	auth := &stubAuth{authenticated: true}
	monitor := NewMonitor(auth, nil, &stubSync{last: time.Now()}, nil, 5*time.Minute)

	first := monitor.CheckHealth(context.Background())
	auth.authenticated = false
	second := monitor.CheckHealth(context.Background())

	if first.SystemStatus != second.SystemStatus {
		t.Error("reports within the rate-limit window should be cached")
	}
}
