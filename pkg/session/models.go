package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionUnknown is returned for tokens that do not resolve to a
	// session record, including revoked (logged out) sessions.
	ErrSessionUnknown = errors.New("unknown session")

	// ErrSessionExpired is returned for sessions past their absolute expiry.
	ErrSessionExpired = errors.New("session expired")
)

// AdminSession is a time-bounded credential for a logged-in admin. Its expiry
// is absolute from issuance: there is no touch/keep-alive and the timeout
// never slides.
type AdminSession struct {
	ID        uuid.UUID  `json:"id"`
	AdminID   uuid.UUID  `json:"admin_id"`
	JTI       string     `json:"jti"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// IsExpired reports whether the session has passed its absolute expiry.
func (s AdminSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// IsRevoked reports whether the session was explicitly invalidated.
func (s AdminSession) IsRevoked() bool {
	return s.RevokedAt != nil
}

// IsLive reports whether the session is neither revoked nor expired.
func (s AdminSession) IsLive(now time.Time) bool {
	return !s.IsRevoked() && !s.IsExpired(now)
}
