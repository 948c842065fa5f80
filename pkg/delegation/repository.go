package delegation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GrantRepository defines the interface for delegation grant storage
// operations.
type GrantRepository interface {
	// SupersedeAndCreate atomically marks any live grant for the new grant's
	// (admin, device) pair as superseded and records the new grant. Concurrent
	// calls for the same pair serialize so exactly one grant is left live.
	SupersedeAndCreate(ctx context.Context, grant Grant) (Grant, error)

	// GetByJTI returns the grant recorded under the JWT ID.
	GetByJTI(ctx context.Context, jti string) (Grant, error)

	// FindByPair returns all recorded grants for the (admin, device) pair in
	// issuance order.
	FindByPair(ctx context.Context, adminID, deviceID uuid.UUID) ([]Grant, error)

	// DeleteExpiredBefore removes grants that expired before the cutoff
	// (storage hygiene only).
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error
}
