package domain

import (
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned when no session is persisted.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoRefreshToken is returned when renewal is attempted without a
	// stored refresh credential.
	ErrNoRefreshToken = errors.New("no refresh token stored")
)

// User is the opaque identity record attached to a session.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Session is the client-held authentication session. It is owned
// exclusively by the session manager; everything else reads it through
// the manager's accessors.
type Session struct {
	User         *User     `json:"user"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the session is usable at the given instant:
// user and token present, expiry strictly in the future.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.User == nil || s.Token == "" {
		return false
	}
	return s.ExpiresAt.After(now)
}
