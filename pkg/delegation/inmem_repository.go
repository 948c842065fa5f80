package delegation

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemGrantRepository implements GrantRepository using an in-memory map
type InMemGrantRepository struct {
	grants map[string]Grant // keyed by JTI
	mu     sync.Mutex
}

// NewInMemGrantRepository creates a new in-memory grant repository
func NewInMemGrantRepository() *InMemGrantRepository {
	return &InMemGrantRepository{
		grants: make(map[string]Grant),
	}
}

// SupersedeAndCreate runs under a single lock so the supersede-then-mint step
// is atomic per (admin, device) pair.
func (r *InMemGrantRepository) SupersedeAndCreate(ctx context.Context, grant Grant) (Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for jti, prior := range r.grants {
		if prior.AdminID == grant.AdminID && prior.DeviceID == grant.DeviceID && prior.SupersededAt == nil {
			supersededAt := now
			prior.SupersededAt = &supersededAt
			r.grants[jti] = prior
			slog.Debug("Superseded prior grant", "prior_jti", jti, "admin_id", grant.AdminID, "device_id", grant.DeviceID)
		}
	}

	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	r.grants[grant.JTI] = grant
	return grant, nil
}

func (r *InMemGrantRepository) GetByJTI(ctx context.Context, jti string) (Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	grant, exists := r.grants[jti]
	if !exists {
		return Grant{}, ErrGrantUnknown
	}
	return grant, nil
}

func (r *InMemGrantRepository) FindByPair(ctx context.Context, adminID, deviceID uuid.UUID) ([]Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	grants := make([]Grant, 0)
	for _, g := range r.grants {
		if g.AdminID == adminID && g.DeviceID == deviceID {
			grants = append(grants, g)
		}
	}
	sort.Slice(grants, func(i, j int) bool {
		return grants[i].IssuedAt.Before(grants[j].IssuedAt)
	})
	return grants, nil
}

func (r *InMemGrantRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for jti, g := range r.grants {
		if g.ExpiresAt.Before(cutoff) {
			delete(r.grants, jti)
		}
	}
	return nil
}
