package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionRepository defines the interface for admin session storage operations
type SessionRepository interface {
	// Create a new session record
	Create(ctx context.Context, session AdminSession) (AdminSession, error)

	// Get a session by its JWT ID
	GetByJTI(ctx context.Context, jti string) (AdminSession, error)

	// Get a session by record ID
	GetByID(ctx context.Context, id uuid.UUID) (AdminSession, error)

	// Revoke a session by JTI; revoking an already revoked session is a no-op
	Revoke(ctx context.Context, jti string) error

	// Cleanup sessions expired before the cutoff (storage hygiene only)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error
}
