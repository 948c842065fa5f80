// Package tokenvault owns the OAuth token material stored per device
// identity. Tokens are opaque blobs to every other component except the
// delegation service and the downstream mailbox relay.
package tokenvault

import (
	"errors"
	"time"
)

// ErrTokenNotFound is returned when the vault holds no token for the device.
var ErrTokenNotFound = errors.New("token material not found")

// ErrRefreshFailed is returned when the provider refresh exchange could not
// produce fresh token material.
var ErrRefreshFailed = errors.New("token refresh failed")

// TokenMaterial is the opaque credential set obtained from the OAuth provider.
type TokenMaterial struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsExpired reports whether the access token has passed its own expiry.
// A zero expiry means the provider did not bound the token's lifetime.
func (m TokenMaterial) IsExpired(now time.Time) bool {
	if m.ExpiresAt.IsZero() {
		return false
	}
	return now.After(m.ExpiresAt)
}

// IsEmpty reports whether the material carries no usable access token.
func (m TokenMaterial) IsEmpty() bool {
	return m.AccessToken == ""
}
