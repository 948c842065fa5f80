package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/devicelink/delegate-idm/pkg/tokengenerator"
)

// DefaultSessionTTL matches the fixed five-minute admin session observed in
// the original system. It is configurable but never sliding.
const DefaultSessionTTL = 5 * time.Minute

var nowFunc = time.Now

// SessionService issues and validates admin sessions. A session's expiry is
// absolute from issuance; invalidation is the only other way a session ends.
type SessionService struct {
	repository SessionRepository
	tokens     tokengenerator.TokenGenerator
	ttl        time.Duration
}

// SessionServiceOption is a function that configures a SessionService
type SessionServiceOption func(*SessionService)

// WithSessionTTL overrides the default absolute session lifetime.
func WithSessionTTL(ttl time.Duration) SessionServiceOption {
	return func(s *SessionService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewSessionService creates a new session service
func NewSessionService(repository SessionRepository, tokens tokengenerator.TokenGenerator, opts ...SessionServiceOption) *SessionService {
	service := &SessionService{
		repository: repository,
		tokens:     tokens,
		ttl:        DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// TTL returns the configured absolute session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// StartSession issues a session token for the admin and records the session
// with an absolute expiry of issuance + TTL.
func (s *SessionService) StartSession(ctx context.Context, adminID uuid.UUID, email string) (string, AdminSession, error) {
	token, jti, expiresAt, err := s.tokens.GenerateToken(adminID.String(), s.ttl, map[string]interface{}{
		"email":      email,
		"token_type": "admin_session",
	})
	if err != nil {
		return "", AdminSession{}, fmt.Errorf("failed to generate session token: %w", err)
	}

	session, err := s.repository.Create(ctx, AdminSession{
		AdminID:   adminID,
		JTI:       jti,
		IssuedAt:  nowFunc().UTC(),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", AdminSession{}, fmt.Errorf("failed to create session record: %w", err)
	}

	slog.Info("Admin session started", "admin_id", adminID, "session_id", session.ID, "expires_at", session.ExpiresAt.Format(time.RFC3339))
	return token, session, nil
}

// Validate resolves the token to a live session. Expired sessions return
// ErrSessionExpired; revoked or unresolvable tokens return ErrSessionUnknown.
func (s *SessionService) Validate(ctx context.Context, token string) (AdminSession, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		if tokengenerator.IsTokenExpired(err) {
			return AdminSession{}, ErrSessionExpired
		}
		return AdminSession{}, ErrSessionUnknown
	}

	session, err := s.repository.GetByJTI(ctx, claims.ID)
	if err != nil {
		return AdminSession{}, err
	}
	if session.IsRevoked() {
		return AdminSession{}, ErrSessionUnknown
	}
	if session.IsExpired(nowFunc()) {
		return AdminSession{}, ErrSessionExpired
	}
	return session, nil
}

// IsLive reports whether the session record is neither revoked nor expired.
// Used by the delegation service for lazy cascading revocation.
func (s *SessionService) IsLive(ctx context.Context, sessionID uuid.UUID) bool {
	session, err := s.repository.GetByID(ctx, sessionID)
	if err != nil {
		return false
	}
	return session.IsLive(nowFunc())
}

// Invalidate revokes the session for the token (explicit logout). Grants
// issued under the session become revoked lazily the next time they are
// checked; there is no fan-out write here.
func (s *SessionService) Invalidate(ctx context.Context, token string) error {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		if tokengenerator.IsTokenExpired(err) {
			// Logging out an expired session is a no-op, not an error.
			return nil
		}
		return ErrSessionUnknown
	}

	if err := s.repository.Revoke(ctx, claims.ID); err != nil {
		return err
	}
	slog.Info("Admin session invalidated", "jti", claims.ID)
	return nil
}

// Sweep removes long-expired session records. Correctness never depends on
// it; expiry is computed lazily at read time.
func (s *SessionService) Sweep(ctx context.Context) error {
	return s.repository.DeleteExpiredBefore(ctx, nowFunc().UTC())
}
