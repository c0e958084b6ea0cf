package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidSession = errors.New("session: missing session id or principal")
	ErrExpired        = errors.New("session: expires_at must be in the future")
)

// Session represents an authenticated browser session.
// It stores only a Principal, never the identity itself.
type Session struct {
	ID        string    `json:"id"`
	Principal Principal `json:"principal"`

	// Token is the bearer token issued at login, handed back to the
	// browser on request.
	Token          string    `json:"token,omitempty"`
	TokenExpiresAt time.Time `json:"token_expires_at,omitzero"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"` // absolute expiry
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *Session) validate() error {
	if s.ID == "" || s.Principal.IdentityID == "" {
		return ErrInvalidSession
	}
	return nil
}

// Store defines how sessions are stored and retrieved.
// Get returns (nil, nil) for unknown or expired sessions.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
}
