package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelink/delegate-idm/pkg/tokengenerator"
)

func newTestService() *SessionService {
	tokens := tokengenerator.NewJwtTokenGenerator("test-secret", "test-issuer", "test-audience")
	return NewSessionService(NewInMemSessionRepository(), tokens)
}

func TestStartAndValidateSession(t *testing.T) {
	ctx := context.Background()
	service := newTestService()
	adminID := uuid.New()

	token, created, err := service.StartSession(ctx, adminID, "admin@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, adminID, created.AdminID)
	assert.WithinDuration(t, created.IssuedAt.Add(DefaultSessionTTL), created.ExpiresAt, 2*time.Second)

	validated, err := service.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, validated.ID)
	assert.Equal(t, adminID, validated.AdminID)
}

func TestValidateUnknownToken(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	_, err := service.Validate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrSessionUnknown)
}

func TestSessionAbsoluteExpiry(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	token, _, err := service.StartSession(ctx, uuid.New(), "admin@example.com")
	require.NoError(t, err)

	// Validating repeatedly must not slide the expiry.
	for i := 0; i < 3; i++ {
		_, err = service.Validate(ctx, token)
		require.NoError(t, err)
	}

	defer func() { nowFunc = time.Now }()
	nowFunc = func() time.Time { return time.Now().Add(DefaultSessionTTL + time.Second) }

	_, err = service.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestInvalidateSession(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	token, created, err := service.StartSession(ctx, uuid.New(), "admin@example.com")
	require.NoError(t, err)

	require.NoError(t, service.Invalidate(ctx, token))

	_, err = service.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrSessionUnknown)
	assert.False(t, service.IsLive(ctx, created.ID))

	// Invalidating again stays a no-op.
	assert.NoError(t, service.Invalidate(ctx, token))
}

func TestIsLive(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	_, created, err := service.StartSession(ctx, uuid.New(), "admin@example.com")
	require.NoError(t, err)

	assert.True(t, service.IsLive(ctx, created.ID))
	assert.False(t, service.IsLive(ctx, uuid.New()))

	defer func() { nowFunc = time.Now }()
	nowFunc = func() time.Time { return time.Now().Add(DefaultSessionTTL + time.Second) }
	assert.False(t, service.IsLive(ctx, created.ID))
}

func TestSweepRemovesExpiredRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemSessionRepository()
	tokens := tokengenerator.NewJwtTokenGenerator("test-secret", "test-issuer", "test-audience")
	service := NewSessionService(repo, tokens)

	_, created, err := service.StartSession(ctx, uuid.New(), "admin@example.com")
	require.NoError(t, err)

	defer func() { nowFunc = time.Now }()
	nowFunc = func() time.Time { return time.Now().Add(DefaultSessionTTL + time.Hour) }

	require.NoError(t, service.Sweep(ctx))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrSessionUnknown)
}
