package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/infra/sessionstore/memory"
	"github.com/hotelops/stockpilot/internal/session"
	"github.com/hotelops/stockpilot/internal/resilience/retry"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeRenewer struct {
	mu      sync.Mutex
	calls   int
	failFor int // fail this many leading calls
	block   chan struct{}
	creds   session.Credentials
}

func (r *fakeRenewer) Renew(ctx context.Context, refreshToken string) (*session.Credentials, error) {
	r.mu.Lock()
	r.calls++
	n := r.calls
	block := r.block
	r.mu.Unlock()

	if block != nil {
		<-block
	}
	if n <= r.failFor {
		return nil, errors.New("renewal endpoint: connection refused")
	}
	creds := r.creds
	if creds.Token == "" {
		creds = session.Credentials{Token: fmt.Sprintf("token-%d", n), ExpiresIn: 3600}
	}
	return &creds, nil
}

func (r *fakeRenewer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func testConfig() session.Config {
	return session.Config{
		RenewalThreshold: 5 * time.Minute,
		RenewRetry: retry.Config{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		},
	}
}

func testUser() *domain.User {
	return &domain.User{ID: "u-1", Username: "frontdesk", Role: "manager"}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// =============================================================================
// Session lifecycle
// =============================================================================

func TestSetSession_Authenticates(t *testing.T) {
	store := memory.NewStore()
	m := session.NewManager(store, &fakeRenewer{}, testConfig(), nil)
	defer m.Cleanup()

	err := m.SetSession(context.Background(), testUser(), "tok-1", "", time.Hour)
	if err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	if !m.IsAuthenticated() {
		t.Error("expected authenticated after SetSession")
	}

	info := m.SessionInfo()
	if !info.Authenticated {
		t.Error("SessionInfo should report authenticated")
	}
	if info.TimeUntilExpiry > time.Hour || info.TimeUntilExpiry <= time.Hour-time.Second {
		t.Errorf("timeUntilExpiry out of range: %v", info.TimeUntilExpiry)
	}

	// The session was persisted as a whole.
	persisted, err := store.Load(context.Background())
	if err != nil || persisted == nil {
		t.Fatalf("expected persisted session, got %v, %v", persisted, err)
	}
	if persisted.Token != "tok-1" || persisted.User.ID != "u-1" {
		t.Errorf("persisted session incomplete: %+v", persisted)
	}
}

func TestIsAuthenticated_RecomputedAgainstClock(t *testing.T) {
	store := memory.NewStore()
	now := time.Now()
	current := now
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	m := session.NewManager(store, &fakeRenewer{}, testConfig(), nil, session.WithClock(clock))
	defer m.Cleanup()

	if err := m.SetSession(context.Background(), testUser(), "tok", "", time.Hour); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	if !m.IsAuthenticated() {
		t.Fatal("expected authenticated")
	}

	// Move the clock past expiry; no event fired, the check is live.
	mu.Lock()
	current = now.Add(2 * time.Hour)
	mu.Unlock()

	if m.IsAuthenticated() {
		t.Error("expected unauthenticated after expiry")
	}
}

func TestClearSession_EmitsOnce(t *testing.T) {
	store := memory.NewStore()
	m := session.NewManager(store, &fakeRenewer{}, testConfig(), nil)
	defer m.Cleanup()

	if err := m.SetSession(context.Background(), testUser(), "tok", "", time.Hour); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	var mu sync.Mutex
	cleared := 0
	unsubscribe := m.AddListener(func(ev session.Event, data any) {
		if ev == session.EventCleared {
			mu.Lock()
			cleared++
			mu.Unlock()
		}
	})
	defer unsubscribe()

	if err := m.ClearSession(context.Background()); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}

	if m.IsAuthenticated() {
		t.Error("expected unauthenticated after clear")
	}
	mu.Lock()
	got := cleared
	mu.Unlock()
	if got != 1 {
		t.Errorf("expected exactly 1 session_cleared, got %d", got)
	}

	persisted, _ := store.Load(context.Background())
	if persisted != nil {
		t.Error("expected persisted session wiped")
	}
}

func TestInitialize_RestoresValidSession(t *testing.T) {
	store := memory.NewStore()
	seed := &domain.Session{
		User:      testUser(),
		Token:     "tok-persisted",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := store.Save(context.Background(), seed, "other-context"); err != nil {
		t.Fatal(err)
	}

	m := session.NewManager(store, &fakeRenewer{}, testConfig(), nil)
	defer m.Cleanup()

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !m.IsAuthenticated() {
		t.Error("expected restored session to authenticate")
	}
	if m.Token() != "tok-persisted" {
		t.Errorf("expected restored token, got %q", m.Token())
	}
}

func TestInitialize_IgnoresExpiredSession(t *testing.T) {
	store := memory.NewStore()
	seed := &domain.Session{
		User:      testUser(),
		Token:     "tok-stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := store.Save(context.Background(), seed, "other-context"); err != nil {
		t.Fatal(err)
	}

	m := session.NewManager(store, &fakeRenewer{}, testConfig(), nil)
	defer m.Cleanup()

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if m.IsAuthenticated() {
		t.Error("expired persisted session must not authenticate")
	}
}

// =============================================================================
// Renewal
// =============================================================================

func TestRenewSession_FailThenSucceed(t *testing.T) {
	store := memory.NewStore()
	renewer := &fakeRenewer{
		failFor: 1,
		creds:   session.Credentials{Token: "tok-new", RefreshToken: "refresh-new", ExpiresIn: 3600},
	}
	m := session.NewManager(store, renewer, testConfig(), nil)
	defer m.Cleanup()

	if err := m.SetSession(context.Background(), testUser(), "tok-old", "refresh-old", time.Hour); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	var renewed int
	var mu sync.Mutex
	m.AddListener(func(ev session.Event, data any) {
		if ev == session.EventRenewed {
			mu.Lock()
			renewed++
			mu.Unlock()
		}
	})

	if err := m.RenewSession(context.Background()); err != nil {
		t.Fatalf("RenewSession failed: %v", err)
	}

	if got := renewer.callCount(); got != 2 {
		t.Errorf("expected exactly 2 renewal endpoint calls, got %d", got)
	}
	if !m.IsAuthenticated() {
		t.Error("expected authenticated after renewal")
	}
	if m.Token() != "tok-new" {
		t.Errorf("expected new token stored, got %q", m.Token())
	}
	mu.Lock()
	got := renewed
	mu.Unlock()
	if got != 1 {
		t.Errorf("expected 1 session_renewed event, got %d", got)
	}
}

func TestRenewSession_NoRefreshTokenIsFatal(t *testing.T) {
	store := memory.NewStore()
	renewer := &fakeRenewer{}
	redirected := false
	m := session.NewManager(store, renewer, testConfig(), nil,
		session.WithRedirect(func() { redirected = true }))
	defer m.Cleanup()

	if err := m.SetSession(context.Background(), testUser(), "tok", "", time.Hour); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	var expired int
	m.AddListener(func(ev session.Event, data any) {
		if ev == session.EventExpired {
			expired++
		}
	})

	err := m.RenewSession(context.Background())
	if !errors.Is(err, domain.ErrNoRefreshToken) {
		t.Fatalf("expected ErrNoRefreshToken, got %v", err)
	}
	if renewer.callCount() != 0 {
		t.Error("renewal endpoint must not be called without a refresh token")
	}
	if m.IsAuthenticated() {
		t.Error("fatal renewal failure must destroy the session")
	}
	if expired != 1 {
		t.Errorf("expected 1 session_expired event, got %d", expired)
	}
	if !redirected {
		t.Error("fatal renewal failure must signal the redirect path")
	}
}

func TestRenewSession_ExhaustedRetriesDestroySession(t *testing.T) {
	store := memory.NewStore()
	renewer := &fakeRenewer{failFor: 100}
	m := session.NewManager(store, renewer, testConfig(), nil)
	defer m.Cleanup()

	if err := m.SetSession(context.Background(), testUser(), "tok", "refresh", time.Hour); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	err := m.RenewSession(context.Background())
	if err == nil {
		t.Fatal("expected renewal failure")
	}
	// Distinct renewal cap: MaxRetries=2 means 3 attempts.
	if got := renewer.callCount(); got != 3 {
		t.Errorf("expected 3 renewal attempts, got %d", got)
	}
	if m.IsAuthenticated() {
		t.Error("expected session destroyed; there is no partially-renewed state")
	}
	persisted, _ := store.Load(context.Background())
	if persisted != nil {
		t.Error("expected persisted session wiped after fatal renewal failure")
	}
}

func TestRenewSession_ConcurrentCallsCollapse(t *testing.T) {
	store := memory.NewStore()
	renewer := &fakeRenewer{block: make(chan struct{})}
	m := session.NewManager(store, renewer, testConfig(), nil)
	defer m.Cleanup()

	if err := m.SetSession(context.Background(), testUser(), "tok", "refresh", time.Hour); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.RenewSession(context.Background())
	}()
	waitFor(t, "first renewal in flight", func() bool { return renewer.callCount() == 1 })

	// A second caller finds renewal in progress and does not duplicate.
	if err := m.RenewSession(context.Background()); err != nil {
		t.Fatalf("concurrent RenewSession returned error: %v", err)
	}
	if got := renewer.callCount(); got != 1 {
		t.Errorf("expected 1 in-flight renewal, got %d calls", got)
	}

	close(renewer.block)
	if err := <-done; err != nil {
		t.Fatalf("renewal failed: %v", err)
	}
}

func TestScheduledRenewal_FiresWhenPastThreshold(t *testing.T) {
	store := memory.NewStore()
	renewer := &fakeRenewer{}
	m := session.NewManager(store, renewer, testConfig(), nil)
	defer m.Cleanup()

	// Expiry inside the renewal threshold: timer fires immediately on
	// the next tick rather than being skipped.
	if err := m.SetSession(context.Background(), testUser(), "tok", "refresh", time.Minute); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	waitFor(t, "scheduled renewal", func() bool { return renewer.callCount() >= 1 })
}

// =============================================================================
// Reactivation
// =============================================================================

func TestRevalidate_RenewsInsideThreshold(t *testing.T) {
	store := memory.NewStore()
	// While this context was suspended, the session drifted to within
	// the renewal threshold.
	seed := &domain.Session{
		User:         testUser(),
		Token:        "tok-stale",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(2 * time.Minute),
	}
	if err := store.Save(context.Background(), seed, "other-context"); err != nil {
		t.Fatal(err)
	}

	renewer := &fakeRenewer{creds: session.Credentials{Token: "tok-fresh", ExpiresIn: 3600}}
	m := session.NewManager(store, renewer, testConfig(), nil)
	defer m.Cleanup()

	if err := m.Revalidate(context.Background()); err != nil {
		t.Fatalf("Revalidate failed: %v", err)
	}
	if renewer.callCount() < 1 {
		t.Fatal("expected an immediate renewal on reactivation")
	}
	if m.Token() != "tok-fresh" {
		t.Errorf("token = %q, want the renewed token", m.Token())
	}
}

func TestRevalidate_FreshSessionLeftAlone(t *testing.T) {
	store := memory.NewStore()
	seed := &domain.Session{
		User:         testUser(),
		Token:        "tok-persisted",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := store.Save(context.Background(), seed, "other-context"); err != nil {
		t.Fatal(err)
	}

	renewer := &fakeRenewer{}
	m := session.NewManager(store, renewer, testConfig(), nil)
	defer m.Cleanup()

	if err := m.Revalidate(context.Background()); err != nil {
		t.Fatalf("Revalidate failed: %v", err)
	}
	if renewer.callCount() != 0 {
		t.Errorf("renewer called %d times, a fresh session must not renew", renewer.callCount())
	}
	if !m.IsAuthenticated() {
		t.Error("expected the persisted session to be adopted")
	}
	if m.Token() != "tok-persisted" {
		t.Errorf("token = %q, want the persisted token", m.Token())
	}
}

// =============================================================================
// Cross-context synchronization
// =============================================================================

func twoContexts(t *testing.T, store session.Store) (*session.Manager, *session.Manager) {
	t.Helper()
	a := session.NewManager(store, &fakeRenewer{}, testConfig(), nil)
	b := session.NewManager(store, &fakeRenewer{}, testConfig(), nil)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize context A: %v", err)
	}
	if err := b.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize context B: %v", err)
	}
	t.Cleanup(a.Cleanup)
	t.Cleanup(b.Cleanup)
	return a, b
}

func TestExternalClear_Propagates(t *testing.T) {
	store := memory.NewStore()
	a, b := twoContexts(t, store)

	if err := a.SetSession(context.Background(), testUser(), "tok", "refresh", time.Hour); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	waitFor(t, "context B to adopt the session", b.IsAuthenticated)

	var mu sync.Mutex
	var events []session.Event
	b.AddListener(func(ev session.Event, data any) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	if err := a.ClearSession(context.Background()); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}

	waitFor(t, "context B to observe the clear", func() bool { return !b.IsAuthenticated() })
	waitFor(t, "session_cleared_external event", func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, ev := range events {
			if ev == session.EventClearedExternal {
				return true
			}
		}
		return false
	})

	mu.Lock()
	defer mu.Unlock()
	for _, ev := range events {
		if ev == session.EventCleared {
			t.Error("external clear must emit session_cleared_external, not session_cleared")
		}
	}
}

func TestExternalUpdate_Propagates(t *testing.T) {
	store := memory.NewStore()
	a, b := twoContexts(t, store)

	var mu sync.Mutex
	updated := 0
	b.AddListener(func(ev session.Event, data any) {
		if ev == session.EventUpdatedExternal {
			mu.Lock()
			updated++
			mu.Unlock()
		}
	})

	if err := a.SetSession(context.Background(), testUser(), "tok-a", "refresh", time.Hour); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	waitFor(t, "context B to observe the update", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return updated >= 1
	})
	if b.Token() != "tok-a" {
		t.Errorf("context B should re-read the updated session, got token %q", b.Token())
	}
}

func TestOwnWritesNotTreatedAsExternal(t *testing.T) {
	store := memory.NewStore()
	m := session.NewManager(store, &fakeRenewer{}, testConfig(), nil)
	defer m.Cleanup()
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	var mu sync.Mutex
	var external int
	m.AddListener(func(ev session.Event, data any) {
		if ev == session.EventUpdatedExternal || ev == session.EventClearedExternal {
			mu.Lock()
			external++
			mu.Unlock()
		}
	})

	if err := m.SetSession(context.Background(), testUser(), "tok", "", time.Hour); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	if err := m.ClearSession(context.Background()); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}

	// Give the watch loop a moment to (not) react to our own writes.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if external != 0 {
		t.Errorf("own writes must not surface as external events, got %d", external)
	}
}

// =============================================================================
// Listener registry
// =============================================================================

func TestListeners_PanicIsolated(t *testing.T) {
	store := memory.NewStore()
	m := session.NewManager(store, &fakeRenewer{}, testConfig(), nil)
	defer m.Cleanup()

	var survived bool
	m.AddListener(func(ev session.Event, data any) {
		panic("faulty subscriber")
	})
	m.AddListener(func(ev session.Event, data any) {
		survived = true
	})

	if err := m.SetSession(context.Background(), testUser(), "tok", "", time.Hour); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	if !survived {
		t.Error("a panicking listener must not block the others")
	}
	// Manager state is intact after the panic.
	if !m.IsAuthenticated() {
		t.Error("manager state corrupted by listener panic")
	}
}

func TestListeners_Unsubscribe(t *testing.T) {
	store := memory.NewStore()
	m := session.NewManager(store, &fakeRenewer{}, testConfig(), nil)
	defer m.Cleanup()

	calls := 0
	unsubscribe := m.AddListener(func(ev session.Event, data any) { calls++ })
	unsubscribe()

	if err := m.SetSession(context.Background(), testUser(), "tok", "", time.Hour); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("unsubscribed listener was still notified %d times", calls)
	}
}
