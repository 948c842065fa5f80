package tokenvault

import (
	"context"

	"github.com/google/uuid"
)

// VaultRepository defines the interface for token material storage operations
type VaultRepository interface {
	// StoreToken upserts the token material for the device, overwriting any
	// prior token.
	StoreToken(ctx context.Context, deviceID uuid.UUID, material TokenMaterial) error

	// GetToken returns the stored token material or ErrTokenNotFound.
	GetToken(ctx context.Context, deviceID uuid.UUID) (TokenMaterial, error)
}
