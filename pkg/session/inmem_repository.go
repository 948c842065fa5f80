package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemSessionRepository implements SessionRepository using an in-memory map
type InMemSessionRepository struct {
	sessions map[string]AdminSession // keyed by JTI
	mu       sync.Mutex
}

// NewInMemSessionRepository creates a new in-memory session repository
func NewInMemSessionRepository() *InMemSessionRepository {
	return &InMemSessionRepository{
		sessions: make(map[string]AdminSession),
	}
}

func (r *InMemSessionRepository) Create(ctx context.Context, session AdminSession) (AdminSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	r.sessions[session.JTI] = session
	slog.Debug("Session created", "session_id", session.ID, "admin_id", session.AdminID)
	return session, nil
}

func (r *InMemSessionRepository) GetByJTI(ctx context.Context, jti string) (AdminSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[jti]
	if !exists {
		return AdminSession{}, ErrSessionUnknown
	}
	return session, nil
}

func (r *InMemSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (AdminSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, session := range r.sessions {
		if session.ID == id {
			return session, nil
		}
	}
	return AdminSession{}, ErrSessionUnknown
}

func (r *InMemSessionRepository) Revoke(ctx context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[jti]
	if !exists {
		return ErrSessionUnknown
	}
	if session.RevokedAt == nil {
		now := time.Now().UTC()
		session.RevokedAt = &now
		r.sessions[jti] = session
	}
	return nil
}

func (r *InMemSessionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for jti, session := range r.sessions {
		if session.ExpiresAt.Before(cutoff) {
			delete(r.sessions, jti)
		}
	}
	return nil
}
