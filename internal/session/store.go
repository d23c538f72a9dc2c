package session

import (
	"context"

	"github.com/hotelops/stockpilot/internal/core/domain"
)

// ChangeKind describes what another execution context did to the
// shared session.
type ChangeKind string

const (
	ChangeUpdated ChangeKind = "updated"
	ChangeCleared ChangeKind = "cleared"
)

// Change is a notification that the shared session store was modified.
// Origin identifies the execution context that wrote; a context ignores
// its own changes.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Origin string     `json:"origin"`
}

// Store is the persistent session store shared across execution
// contexts. The session's fields are written atomically as a group,
// last writer wins; reconciliation happens above this layer.
type Store interface {
	// Load reads the persisted session. Returns (nil, nil) when no
	// session is stored.
	Load(ctx context.Context) (*domain.Session, error)

	// Save persists the whole session atomically and notifies other
	// contexts, tagged with the writer's origin.
	Save(ctx context.Context, s *domain.Session, origin string) error

	// Clear wipes all session fields atomically and notifies other
	// contexts.
	Clear(ctx context.Context, origin string) error

	// Watch delivers change notifications from all contexts (including
	// this one's own writes) until ctx is cancelled. The channel is
	// closed on cancellation.
	Watch(ctx context.Context) (<-chan Change, error)
}

// Credentials is what the renewal endpoint returns.
type Credentials struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// Renewer exchanges a refresh credential for fresh session
// credentials.
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (*Credentials, error)
}
