package tokenvault

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// InMemVaultRepository implements VaultRepository using an in-memory map
type InMemVaultRepository struct {
	tokens map[uuid.UUID]TokenMaterial
	mu     sync.Mutex
}

// NewInMemVaultRepository creates a new in-memory vault repository
func NewInMemVaultRepository() *InMemVaultRepository {
	return &InMemVaultRepository{
		tokens: make(map[uuid.UUID]TokenMaterial),
	}
}

func (r *InMemVaultRepository) StoreToken(ctx context.Context, deviceID uuid.UUID, material TokenMaterial) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[deviceID] = material
	slog.Debug("Token material stored", "device_id", deviceID)
	return nil
}

func (r *InMemVaultRepository) GetToken(ctx context.Context, deviceID uuid.UUID) (TokenMaterial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	material, exists := r.tokens[deviceID]
	if !exists {
		return TokenMaterial{}, ErrTokenNotFound
	}
	return material, nil
}
