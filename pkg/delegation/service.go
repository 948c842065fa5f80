package delegation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/devicelink/delegate-idm/pkg/device"
	"github.com/devicelink/delegate-idm/pkg/session"
	"github.com/devicelink/delegate-idm/pkg/tokengenerator"
	"github.com/devicelink/delegate-idm/pkg/tokenvault"
)

// DefaultGrantTTL is deliberately shorter than the admin session TTL: a grant
// authorizes one delegation episode, not a browsing session.
const DefaultGrantTTL = 2 * time.Minute

var nowFunc = time.Now

// DelegateResult is the outcome of a successful delegation: the grant token
// and a redirect target that hands the caller off to act as the device.
type DelegateResult struct {
	Grant       Grant  `json:"grant"`
	GrantToken  string `json:"grant_token"`
	RedirectURL string `json:"redirect_url"`
}

// Service implements the admin-to-device impersonation protocol.
type Service struct {
	grants   GrantRepository
	sessions *session.SessionService
	devices  *device.DeviceService
	vault    *tokenvault.VaultService
	tokens   tokengenerator.TokenGenerator
	ttl      time.Duration
	baseURL  string
}

// ServiceOption is a function that configures a delegation Service
type ServiceOption func(*Service)

// WithGrantTTL overrides the default grant lifetime.
func WithGrantTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithBaseURL sets the base URL used to build redirect targets.
func WithBaseURL(baseURL string) ServiceOption {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

// NewService creates a new delegation service
func NewService(
	grants GrantRepository,
	sessions *session.SessionService,
	devices *device.DeviceService,
	vault *tokenvault.VaultService,
	tokens tokengenerator.TokenGenerator,
	opts ...ServiceOption,
) *Service {
	service := &Service{
		grants:   grants,
		sessions: sessions,
		devices:  devices,
		vault:    vault,
		tokens:   tokens,
		ttl:      DefaultGrantTTL,
		baseURL:  "http://localhost:4000",
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Delegate mints a grant letting the admin behind the session act as the
// device. Any prior live grant for the same (admin, device) pair is
// superseded in the same atomic step, so at most one grant is live per pair.
func (s *Service) Delegate(ctx context.Context, sessionToken string, deviceID uuid.UUID) (DelegateResult, error) {
	sess, err := s.sessions.Validate(ctx, sessionToken)
	if err != nil {
		return DelegateResult{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	owned, err := s.devices.IsOwned(ctx, sess.AdminID, deviceID)
	if err != nil {
		return DelegateResult{}, fmt.Errorf("failed to check device ownership: %w", err)
	}
	if !owned {
		slog.Warn("Delegation refused for unowned device", "admin_id", sess.AdminID, "device_id", deviceID)
		return DelegateResult{}, ErrNotOwned
	}

	material, err := s.vault.Get(ctx, deviceID)
	if err != nil {
		if errors.Is(err, tokenvault.ErrTokenNotFound) {
			return DelegateResult{}, ErrDeviceTokenMissing
		}
		return DelegateResult{}, fmt.Errorf("failed to read device token: %w", err)
	}
	if material.IsEmpty() {
		return DelegateResult{}, ErrDeviceTokenMissing
	}

	target, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return DelegateResult{}, fmt.Errorf("failed to load device: %w", err)
	}

	grantToken, jti, expiresAt, err := s.tokens.GenerateToken(deviceID.String(), s.ttl, map[string]interface{}{
		"admin_id":     sess.AdminID.String(),
		"session_id":   sess.ID.String(),
		"device_email": target.Email,
		"token_type":   "delegation_grant",
	})
	if err != nil {
		return DelegateResult{}, fmt.Errorf("failed to generate grant token: %w", err)
	}

	grant, err := s.grants.SupersedeAndCreate(ctx, Grant{
		JTI:         jti,
		SessionID:   sess.ID,
		AdminID:     sess.AdminID,
		DeviceID:    deviceID,
		DeviceEmail: target.Email,
		IssuedAt:    nowFunc().UTC(),
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return DelegateResult{}, fmt.Errorf("failed to record grant: %w", err)
	}

	slog.Info("Delegation grant minted",
		"admin_id", sess.AdminID,
		"device_id", deviceID,
		"grant_id", grant.ID,
		"expires_at", grant.ExpiresAt.Format(time.RFC3339))

	return DelegateResult{
		Grant:       grant,
		GrantToken:  grantToken,
		RedirectURL: s.redirectURL(target, grantToken),
	}, nil
}

// redirectURL embeds the grant token and the device's external identity so
// the browser can be handed off to act as that device.
func (s *Service) redirectURL(target device.DeviceIdentity, grantToken string) string {
	params := url.Values{}
	params.Set("email", target.Email)
	params.Set("deviceId", target.DeviceKey)
	params.Set("grant", grantToken)
	return s.baseURL + "/auth/login?" + params.Encode()
}

// ResolveGrant resolves a grant token to its record and lazily computed
// status. Revocation cascades from the parent session here: an invalidated
// session makes every grant issued under it report StatusRevoked.
func (s *Service) ResolveGrant(ctx context.Context, grantToken string) (Grant, GrantStatus, error) {
	claims, err := s.tokens.ParseToken(grantToken)
	if err != nil && !tokengenerator.IsTokenExpired(err) {
		return Grant{}, "", ErrGrantUnknown
	}

	var jti string
	if claims != nil {
		jti = claims.ID
	}
	grant, err := s.grants.GetByJTI(ctx, jti)
	if err != nil {
		return Grant{}, "", err
	}

	status := grant.Status(nowFunc(), s.sessions.IsLive(ctx, grant.SessionID))
	return grant, status, nil
}

// TokenForGrant returns the device token material behind a live grant. Only
// the downstream relay consumes this; a grant that is not live never exposes
// token material. Ownership is re-checked at release time: a device rebound
// to another admin since the mint makes the grant report revoked.
func (s *Service) TokenForGrant(ctx context.Context, grantToken string) (tokenvault.TokenMaterial, Grant, error) {
	grant, status, err := s.ResolveGrant(ctx, grantToken)
	if err != nil {
		return tokenvault.TokenMaterial{}, Grant{}, err
	}
	if status != StatusGranted {
		return tokenvault.TokenMaterial{}, grant, fmt.Errorf("%w: %s", ErrGrantNotLive, status)
	}

	owned, err := s.devices.IsOwned(ctx, grant.AdminID, grant.DeviceID)
	if err != nil {
		return tokenvault.TokenMaterial{}, grant, fmt.Errorf("failed to check device ownership: %w", err)
	}
	if !owned {
		return tokenvault.TokenMaterial{}, grant, fmt.Errorf("%w: %s", ErrGrantNotLive, StatusRevoked)
	}

	material, err := s.vault.Get(ctx, grant.DeviceID)
	if err != nil {
		if errors.Is(err, tokenvault.ErrTokenNotFound) {
			return tokenvault.TokenMaterial{}, grant, ErrDeviceTokenMissing
		}
		return tokenvault.TokenMaterial{}, grant, fmt.Errorf("failed to read device token: %w", err)
	}
	if material.IsEmpty() {
		return tokenvault.TokenMaterial{}, grant, ErrDeviceTokenMissing
	}
	return material, grant, nil
}

// Sweep removes long-expired grant records. Correctness never depends on it.
func (s *Service) Sweep(ctx context.Context) error {
	return s.grants.DeleteExpiredBefore(ctx, nowFunc().UTC())
}
