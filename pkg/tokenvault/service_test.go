package tokenvault

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRefresher struct {
	failures int
	calls    int
	material TokenMaterial
}

func (s *stubRefresher) Refresh(ctx context.Context, refreshToken string) (TokenMaterial, error) {
	s.calls++
	if s.calls <= s.failures {
		return TokenMaterial{}, errors.New("provider unavailable")
	}
	return s.material, nil
}

func TestStoreAndGet(t *testing.T) {
	ctx := context.Background()
	service := NewVaultService(NewInMemVaultRepository(), nil)
	deviceID := uuid.New()

	material := TokenMaterial{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, service.Store(ctx, deviceID, material))

	got, err := service.Get(ctx, deviceID)
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)
}

func TestGetUnknownDevice(t *testing.T) {
	ctx := context.Background()
	service := NewVaultService(NewInMemVaultRepository(), nil)

	_, err := service.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRefreshRetriesOnce(t *testing.T) {
	ctx := context.Background()
	refresher := &stubRefresher{
		failures: 1,
		material: TokenMaterial{AccessToken: "access-2", RefreshToken: "refresh-2"},
	}
	service := NewVaultService(NewInMemVaultRepository(), refresher)
	deviceID := uuid.New()

	require.NoError(t, service.Store(ctx, deviceID, TokenMaterial{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	fresh, err := service.Refresh(ctx, deviceID)
	require.NoError(t, err)
	assert.Equal(t, "access-2", fresh.AccessToken)
	assert.Equal(t, 2, refresher.calls)

	stored, err := service.Get(ctx, deviceID)
	require.NoError(t, err)
	assert.Equal(t, "access-2", stored.AccessToken)
}

func TestRefreshFailsAfterRetry(t *testing.T) {
	ctx := context.Background()
	refresher := &stubRefresher{failures: 2}
	service := NewVaultService(NewInMemVaultRepository(), refresher)
	deviceID := uuid.New()

	require.NoError(t, service.Store(ctx, deviceID, TokenMaterial{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	_, err := service.Refresh(ctx, deviceID)
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.Equal(t, 2, refresher.calls)

	// The stored material is untouched by a failed refresh.
	stored, err := service.Get(ctx, deviceID)
	require.NoError(t, err)
	assert.Equal(t, "access-1", stored.AccessToken)
}

func TestRefreshKeepsOldRefreshToken(t *testing.T) {
	ctx := context.Background()
	refresher := &stubRefresher{material: TokenMaterial{AccessToken: "access-2"}}
	service := NewVaultService(NewInMemVaultRepository(), refresher)
	deviceID := uuid.New()

	require.NoError(t, service.Store(ctx, deviceID, TokenMaterial{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	fresh, err := service.Refresh(ctx, deviceID)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", fresh.RefreshToken)
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	ctx := context.Background()
	service := NewVaultService(NewInMemVaultRepository(), &stubRefresher{})
	deviceID := uuid.New()

	require.NoError(t, service.Store(ctx, deviceID, TokenMaterial{AccessToken: "access-1"}))

	_, err := service.Refresh(ctx, deviceID)
	assert.ErrorIs(t, err, ErrRefreshFailed)
}
