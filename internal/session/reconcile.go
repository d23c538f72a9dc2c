package session

import (
	"time"

	"github.com/hotelops/stockpilot/internal/core/domain"
)

// Reconcile decides the next local session state given the state
// observed in the shared store. It is a pure function of
// (own state, observed state, now), independent of the notification
// transport, so the cross-context behavior is testable on its own.
//
// Rules:
//   - observed absent or invalid, own present: another context's clear
//     is authoritative; drop the view, session_cleared_external.
//   - observed valid and different from own: adopt it,
//     session_updated_external.
//   - otherwise: nothing changed.
func Reconcile(current, observed *domain.Session, now time.Time) (*domain.Session, []Event) {
	if !observed.Valid(now) {
		if current != nil {
			return nil, []Event{EventClearedExternal}
		}
		return nil, nil
	}

	if current == nil ||
		current.Token != observed.Token ||
		!current.ExpiresAt.Equal(observed.ExpiresAt) {
		return observed, []Event{EventUpdatedExternal}
	}

	return current, nil
}
