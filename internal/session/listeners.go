package session

import (
	"context"
	"time"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/metrics"
)

// AddListener registers a lifecycle listener and returns its
// unsubscribe function.
func (m *Manager) AddListener(fn Listener) func() {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// emit invokes every registered listener with the event. Each callback
// is isolated: a panicking listener cannot prevent the others from
// being notified or corrupt manager state.
func (m *Manager) emit(event Event, data any) {
	m.mu.Lock()
	snapshot := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		snapshot = append(snapshot, fn)
	}
	m.mu.Unlock()

	for _, fn := range snapshot {
		m.safeNotify(fn, event, data)
	}
}

func (m *Manager) safeNotify(fn Listener, event Event, data any) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("session listener panicked", "event", event, "panic", r)
		}
	}()
	fn(event, data)
}

// watchLoop consumes change notifications from the shared store.
func (m *Manager) watchLoop(ch <-chan Change) {
	for change := range ch {
		if change.Origin == m.origin {
			continue // our own write
		}
		switch change.Kind {
		case ChangeCleared:
			m.handleExternalClear()
		case ChangeUpdated:
			m.handleExternalUpdate()
		}
	}
}

// handleExternalClear reacts to another context destroying the
// session. The other context's clear is authoritative; this context
// drops its view without attempting a renewal of its own.
func (m *Manager) handleExternalClear() {
	m.mu.Lock()
	hadSession := m.session != nil
	if m.renewTimer != nil {
		m.renewTimer.Stop()
		m.renewTimer = nil
	}
	m.session = nil
	m.mu.Unlock()

	m.updateGauge()
	if hadSession {
		m.log.Info("session cleared by another context")
		m.emit(EventClearedExternal, nil)
		metrics.SessionEvents.WithLabelValues(string(EventClearedExternal)).Inc()
	}
}

// handleExternalUpdate re-reads the store after another context
// updated the session.
func (m *Manager) handleExternalUpdate() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	observed, err := m.store.Load(ctx)
	if err != nil {
		m.log.Error("failed to re-read externally updated session", "error", err)
		return
	}
	m.reconcile(observed)
}

// reconcile folds an externally observed session state into this
// context's view: computes the pure transition, applies it, emits.
func (m *Manager) reconcile(observed *domain.Session) {
	m.mu.Lock()
	next, events := Reconcile(m.session, observed, m.now())
	m.session = next
	if len(events) > 0 {
		m.scheduleRenewalLocked()
	}
	m.mu.Unlock()

	m.updateGauge()
	for _, ev := range events {
		m.emit(ev, nil)
		metrics.SessionEvents.WithLabelValues(string(ev)).Inc()
	}
}
