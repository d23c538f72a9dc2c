// Package session owns the client's authentication session: persisted
// state, scheduled renewal, cross-context synchronization, and
// lifecycle event notification.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/metrics"
	"github.com/hotelops/stockpilot/internal/resilience/retry"
)

// RenewalThreshold is the lead time before expiry at which automatic
// renewal fires.
const RenewalThreshold = 5 * time.Minute

// Config defines manager behavior.
type Config struct {
	// RenewalThreshold overrides the default renewal lead time.
	RenewalThreshold time.Duration

	// RenewRetry is the retry policy for the renewal network call,
	// capped distinctly from ordinary operation retries.
	RenewRetry retry.Config
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	RenewalThreshold: RenewalThreshold,
	RenewRetry: retry.Config{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
	},
}

// Manager exclusively owns the Session value. All other components
// access session state through its accessors and events, never through
// shared variables.
type Manager struct {
	store   Store
	renewer Renewer
	cfg     Config
	origin  string
	now     func() time.Time
	log     *slog.Logger

	mu           sync.Mutex
	session      *domain.Session // ephemeral per-context view
	renewTimer   *time.Timer
	renewing     bool
	listeners    map[int]Listener
	nextListener int
	watchCancel  context.CancelFunc
	onRedirect   func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithRedirect sets the collaborator invoked when a fatal renewal
// failure requires handing off to login.
func WithRedirect(fn func()) Option {
	return func(m *Manager) { m.onRedirect = fn }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager. Each manager instance is an
// independent execution context with its own origin identity.
func NewManager(store Store, renewer Renewer, cfg Config, log *slog.Logger, opts ...Option) *Manager {
	if cfg.RenewalThreshold <= 0 {
		cfg.RenewalThreshold = RenewalThreshold
	}
	if cfg.RenewRetry.MaxRetries == 0 && cfg.RenewRetry.BaseDelay == 0 {
		cfg.RenewRetry = DefaultConfig.RenewRetry
	}
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{
		store:     store,
		renewer:   renewer,
		cfg:       cfg,
		origin:    uuid.New().String(),
		now:       time.Now,
		log:       log,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Origin returns this context's identity in the shared store.
func (m *Manager) Origin() string { return m.origin }

// Initialize loads persisted session state, arms renewal when the
// session is valid, and begins listening for changes made by other
// execution contexts.
func (m *Manager) Initialize(ctx context.Context) error {
	s, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load persisted session: %w", err)
	}

	m.mu.Lock()
	if s.Valid(m.now()) {
		m.session = s
		m.scheduleRenewalLocked()
		m.log.Info("session restored", "user", s.User.Username, "expires_at", s.ExpiresAt)
	} else if s != nil {
		m.log.Info("persisted session no longer valid, ignoring")
	}
	m.mu.Unlock()

	watchCtx, cancel := context.WithCancel(context.Background())
	ch, err := m.store.Watch(watchCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("watch session store: %w", err)
	}
	m.mu.Lock()
	m.watchCancel = cancel
	m.mu.Unlock()

	go m.watchLoop(ch)

	m.updateGauge()
	return nil
}

// SetSession computes the absolute expiry, persists all session fields
// atomically, (re-)arms the renewal timer, and emits session_created.
func (m *Manager) SetSession(
	ctx context.Context,
	user *domain.User,
	token, refreshToken string,
	expiresIn time.Duration,
) error {
	s := &domain.Session{
		User:         user,
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    m.now().Add(expiresIn),
	}
	if err := m.persist(ctx, s); err != nil {
		return err
	}
	m.emit(EventCreated, s.User)
	metrics.SessionEvents.WithLabelValues(string(EventCreated)).Inc()
	return nil
}

// persist installs s as the current session: atomic store write,
// in-memory view, renewal timer.
func (m *Manager) persist(ctx context.Context, s *domain.Session) error {
	if err := m.store.Save(ctx, s, m.origin); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.mu.Lock()
	m.session = s
	m.scheduleRenewalLocked()
	m.mu.Unlock()
	m.updateGauge()
	return nil
}

// IsAuthenticated reports whether a valid session is held right now.
// Always recomputed against the wall clock, never cached.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Valid(m.now())
}

// Token returns the current access credential, or "" when
// unauthenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.Valid(m.now()) {
		return ""
	}
	return m.session.Token
}

// Info is a point-in-time snapshot of session state.
type Info struct {
	Authenticated   bool
	User            *domain.User
	ExpiresAt       time.Time
	TimeUntilExpiry time.Duration
}

// SessionInfo returns a snapshot of the current session state.
func (m *Manager) SessionInfo() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if !m.session.Valid(now) {
		return Info{}
	}
	return Info{
		Authenticated:   true,
		User:            m.session.User,
		ExpiresAt:       m.session.ExpiresAt,
		TimeUntilExpiry: m.session.ExpiresAt.Sub(now),
	}
}

// scheduleRenewalLocked cancels any pending renewal timer and arms a
// new one at expiresAt - threshold. A fire time already in the past
// fires on the next tick instead of being skipped. Caller holds m.mu.
func (m *Manager) scheduleRenewalLocked() {
	if m.renewTimer != nil {
		m.renewTimer.Stop()
		m.renewTimer = nil
	}
	if m.session == nil || m.renewer == nil {
		return
	}
	delay := m.session.ExpiresAt.Add(-m.cfg.RenewalThreshold).Sub(m.now())
	if delay < 0 {
		delay = 0
	}
	m.renewTimer = time.AfterFunc(delay, func() {
		if err := m.RenewSession(context.Background()); err != nil {
			m.log.Warn("scheduled renewal failed", "error", err)
		}
	})
	m.log.Debug("renewal armed", "in", delay)
}

// RenewSession exchanges the refresh credential for fresh session
// credentials. Concurrent callers collapse into a single in-flight
// renewal. A fatal failure destroys the session; there is no
// partially-renewed state.
func (m *Manager) RenewSession(ctx context.Context) error {
	m.mu.Lock()
	if m.renewing {
		m.mu.Unlock()
		return nil // already in progress
	}
	if m.session == nil {
		m.mu.Unlock()
		return domain.ErrSessionNotFound
	}
	refreshToken := m.session.RefreshToken
	user := m.session.User
	m.renewing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.renewing = false
		m.mu.Unlock()
	}()

	if refreshToken == "" {
		m.log.Error("renewal impossible without refresh token")
		metrics.SessionRenewals.WithLabelValues("failure").Inc()
		m.expire(ctx)
		return domain.ErrNoRefreshToken
	}

	creds, err := retry.DoValue(ctx, m.cfg.RenewRetry,
		func(ctx context.Context) (*Credentials, error) {
			return m.renewer.Renew(ctx, refreshToken)
		})
	if err != nil {
		m.log.Error("session renewal failed", "error", err)
		metrics.SessionRenewals.WithLabelValues("failure").Inc()
		m.expire(ctx)
		return fmt.Errorf("renew session: %w", err)
	}

	next := &domain.Session{
		User:         user,
		Token:        creds.Token,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    m.now().Add(time.Duration(creds.ExpiresIn) * time.Second),
	}
	if next.RefreshToken == "" {
		next.RefreshToken = refreshToken
	}
	if err := m.persist(ctx, next); err != nil {
		metrics.SessionRenewals.WithLabelValues("failure").Inc()
		m.expire(ctx)
		return err
	}

	metrics.SessionRenewals.WithLabelValues("success").Inc()
	m.emit(EventRenewed, next.User)
	m.log.Info("session renewed", "expires_at", next.ExpiresAt)
	return nil
}

// expire destroys the session after a fatal renewal failure and hands
// off to the redirect collaborator.
func (m *Manager) expire(ctx context.Context) {
	m.destroy(ctx)
	m.emit(EventExpired, nil)
	metrics.SessionEvents.WithLabelValues(string(EventExpired)).Inc()
	if m.onRedirect != nil {
		m.onRedirect()
	}
}

// HandleAuthFailure is the invalidation path for authentication-
// classified failures observed mid-operation: the session is destroyed
// and the redirect strategy signalled.
func (m *Manager) HandleAuthFailure(ctx context.Context) {
	m.log.Warn("authentication failure reported, destroying session")
	m.expire(ctx)
}

// ClearSession wipes persisted session fields, cancels the renewal
// timer, drops the per-context view, and emits session_cleared.
func (m *Manager) ClearSession(ctx context.Context) error {
	m.destroy(ctx)
	m.emit(EventCleared, nil)
	metrics.SessionEvents.WithLabelValues(string(EventCleared)).Inc()
	return nil
}

// destroy wipes state without emitting; callers choose the event.
func (m *Manager) destroy(ctx context.Context) {
	m.mu.Lock()
	if m.renewTimer != nil {
		m.renewTimer.Stop()
		m.renewTimer = nil
	}
	m.session = nil
	m.mu.Unlock()

	if err := m.store.Clear(ctx, m.origin); err != nil {
		m.log.Error("failed to clear persisted session", "error", err)
	}
	m.updateGauge()
}

// Revalidate re-validates the session against the persisted store,
// e.g. after the host signals it became active again.
func (m *Manager) Revalidate(ctx context.Context) error {
	observed, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("revalidate session: %w", err)
	}
	m.reconcile(observed)

	m.mu.Lock()
	needsRenewal := m.session != nil &&
		m.session.RefreshToken != "" &&
		m.now().After(m.session.ExpiresAt.Add(-m.cfg.RenewalThreshold))
	m.mu.Unlock()

	if needsRenewal {
		return m.RenewSession(ctx)
	}
	return nil
}

// Cleanup cancels the renewal timer and the store watch. The manager
// can be re-initialized afterwards.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	if m.renewTimer != nil {
		m.renewTimer.Stop()
		m.renewTimer = nil
	}
	cancel := m.watchCancel
	m.watchCancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) updateGauge() {
	if m.IsAuthenticated() {
		metrics.AuthenticatedGauge.Set(1)
	} else {
		metrics.AuthenticatedGauge.Set(0)
	}
}
