package tokenvault

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Refresher exchanges a refresh token for fresh token material with the
// OAuth provider.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenMaterial, error)
}

// VaultService mediates all access to stored token material. The vault never
// auto-refreshes; Refresh is a distinct operation invoked by the caller.
type VaultService struct {
	repository VaultRepository
	refresher  Refresher
}

// NewVaultService creates a new token vault service. The refresher may be nil,
// in which case Refresh always fails.
func NewVaultService(repository VaultRepository, refresher Refresher) *VaultService {
	return &VaultService{
		repository: repository,
		refresher:  refresher,
	}
}

// Store upserts the token material for the device.
func (s *VaultService) Store(ctx context.Context, deviceID uuid.UUID, material TokenMaterial) error {
	if err := s.repository.StoreToken(ctx, deviceID, material); err != nil {
		return fmt.Errorf("failed to store token material: %w", err)
	}
	return nil
}

// Get returns the stored token material for the device.
func (s *VaultService) Get(ctx context.Context, deviceID uuid.UUID) (TokenMaterial, error) {
	return s.repository.GetToken(ctx, deviceID)
}

// Refresh exchanges the stored refresh token for fresh material and stores
// the result. The provider exchange is retried at most once on failure before
// surfacing ErrRefreshFailed. A refresh response without a new refresh token
// keeps the old one.
func (s *VaultService) Refresh(ctx context.Context, deviceID uuid.UUID) (TokenMaterial, error) {
	current, err := s.repository.GetToken(ctx, deviceID)
	if err != nil {
		return TokenMaterial{}, err
	}
	if s.refresher == nil || current.RefreshToken == "" {
		slog.Warn("No refresh path for device token", "device_id", deviceID)
		return TokenMaterial{}, ErrRefreshFailed
	}

	fresh, err := s.refresher.Refresh(ctx, current.RefreshToken)
	if err != nil {
		slog.Warn("Token refresh failed, retrying once", "device_id", deviceID, "err", err)
		fresh, err = s.refresher.Refresh(ctx, current.RefreshToken)
	}
	if err != nil {
		slog.Error("Token refresh failed", "device_id", deviceID, "err", err)
		return TokenMaterial{}, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = current.RefreshToken
	}
	if err := s.repository.StoreToken(ctx, deviceID, fresh); err != nil {
		return TokenMaterial{}, fmt.Errorf("failed to store refreshed token: %w", err)
	}
	slog.Info("Token material refreshed", "device_id", deviceID, "expires_at", fresh.ExpiresAt.Format(time.RFC3339))
	return fresh, nil
}
