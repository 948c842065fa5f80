package googleauth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidState is returned when a callback presents a state parameter that
// is unknown, already used, or past its expiry.
var ErrInvalidState = errors.New("invalid or expired oauth state")

// OAuthState carries the admin binding context of an in-flight OAuth2 flow
// from the authorization redirect to the provider callback.
type OAuthState struct {
	State     string
	AdminID   uuid.UUID
	DeviceKey string
	ExpiresAt time.Time
}

// StateStore holds pending OAuth2 states. States are single use.
type StateStore struct {
	states     map[string]OAuthState
	expiration time.Duration
	mu         sync.Mutex
}

// NewStateStore creates a state store with the given expiration window.
func NewStateStore(expiration time.Duration) *StateStore {
	if expiration <= 0 {
		expiration = 10 * time.Minute
	}
	return &StateStore{
		states:     make(map[string]OAuthState),
		expiration: expiration,
	}
}

// Issue generates a cryptographically random state bound to the admin context
// and stores it for later consumption.
func (s *StateStore) Issue(adminID uuid.UUID, deviceKey string) (OAuthState, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return OAuthState{}, err
	}

	st := OAuthState{
		State:     hex.EncodeToString(raw),
		AdminID:   adminID,
		DeviceKey: deviceKey,
		ExpiresAt: time.Now().Add(s.expiration),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.State] = st
	return st, nil
}

// Consume validates and removes the state, returning its binding context.
func (s *StateStore) Consume(state string) (OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.states[state]
	if !exists {
		return OAuthState{}, ErrInvalidState
	}
	delete(s.states, state)
	if time.Now().After(st.ExpiresAt) {
		return OAuthState{}, ErrInvalidState
	}
	return st, nil
}
