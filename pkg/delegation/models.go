package delegation

import (
	"time"

	"github.com/google/uuid"
)

// GrantStatus is the observed state of a delegation grant. Per (admin,
// device) pair a grant moves GRANTED -> EXPIRED | REVOKED | SUPERSEDED.
// Expiry and revocation are computed lazily at read time; only supersession
// is recorded in the store.
type GrantStatus string

const (
	StatusGranted    GrantStatus = "granted"
	StatusExpired    GrantStatus = "expired"
	StatusRevoked    GrantStatus = "revoked"
	StatusSuperseded GrantStatus = "superseded"
)

// Grant is a short-lived credential authorizing one delegation episode: the
// admin acting as the device identity. It becomes invalid when its own TTL
// elapses, when its parent admin session is invalidated, or when a newer
// grant for the same (admin, device) pair supersedes it.
type Grant struct {
	ID           uuid.UUID  `json:"id"`
	JTI          string     `json:"jti"`
	SessionID    uuid.UUID  `json:"session_id"`
	AdminID      uuid.UUID  `json:"admin_id"`
	DeviceID     uuid.UUID  `json:"device_id"`
	DeviceEmail  string     `json:"device_email"`
	IssuedAt     time.Time  `json:"issued_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	SupersededAt *time.Time `json:"superseded_at,omitempty"`
}

// Status computes the grant's state at the given instant. sessionLive is the
// liveness of the parent admin session, supplied by the caller so revocation
// cascades without a fan-out write.
func (g Grant) Status(now time.Time, sessionLive bool) GrantStatus {
	if g.SupersededAt != nil {
		return StatusSuperseded
	}
	if !sessionLive {
		return StatusRevoked
	}
	if now.After(g.ExpiresAt) {
		return StatusExpired
	}
	return StatusGranted
}
