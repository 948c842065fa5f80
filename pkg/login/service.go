package login

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/devicelink/delegate-idm/pkg/admin"
	"github.com/devicelink/delegate-idm/pkg/device"
	"github.com/devicelink/delegate-idm/pkg/googleauth"
	"github.com/devicelink/delegate-idm/pkg/notification"
	"github.com/devicelink/delegate-idm/pkg/session"
	"github.com/devicelink/delegate-idm/pkg/tokenvault"
)

// AuthService owns admin registration and login plus the device OAuth
// enrollment flow that binds external accounts to admins.
type AuthService struct {
	admins   admin.AdminRepository
	sessions *session.SessionService
	devices  *device.DeviceService
	vault    *tokenvault.VaultService
	states   *googleauth.StateStore
	oauth    *googleauth.Client
	notifier notification.Notifier

	// bindMu serializes device binding per external email so the token store
	// and the identity upsert land as a unit. One mutex per distinct email is
	// retained for the process lifetime; the set is bounded by the enrolled
	// device population, same growth bound as the device table itself.
	bindMu sync.Map
}

// AuthServiceOption is a function that configures an AuthService
type AuthServiceOption func(*AuthService)

// WithNotifier sets the notifier used for binding notices.
func WithNotifier(notifier notification.Notifier) AuthServiceOption {
	return func(s *AuthService) {
		s.notifier = notifier
	}
}

// NewAuthService creates a new auth service
func NewAuthService(
	admins admin.AdminRepository,
	sessions *session.SessionService,
	devices *device.DeviceService,
	vault *tokenvault.VaultService,
	states *googleauth.StateStore,
	oauth *googleauth.Client,
	opts ...AuthServiceOption,
) *AuthService {
	service := &AuthService{
		admins:   admins,
		sessions: sessions,
		devices:  devices,
		vault:    vault,
		states:   states,
		oauth:    oauth,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// RegisterRequest carries the fields of an admin registration.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	email := strings.TrimSpace(r.Email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !strings.Contains(email, "@") {
		return ValidationError{Field: "email", Message: "email is not valid"}
	}
	if strings.TrimSpace(r.Password) == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	return nil
}

// RegisterAdmin creates an admin account. Email uniqueness is case
// insensitive; a duplicate surfaces admin.ErrAccountExists.
func (s *AuthService) RegisterAdmin(ctx context.Context, req RegisterRequest) (admin.AdminAccount, error) {
	if err := req.validate(); err != nil {
		return admin.AdminAccount{}, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return admin.AdminAccount{}, err
	}

	// Normalize before mapping; Password has no counterpart on the model and
	// only the bcrypt hash is stored.
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var newAccount admin.AdminAccount
	if err := copier.Copy(&newAccount, &req); err != nil {
		return admin.AdminAccount{}, fmt.Errorf("failed to map registration request: %w", err)
	}
	newAccount.PasswordHash = hash

	account, err := s.admins.CreateAdmin(ctx, newAccount)
	if err != nil {
		return admin.AdminAccount{}, err
	}

	slog.Info("Admin registered", "admin_id", account.ID, "email", account.Email)
	return account, nil
}

// LoginAdmin verifies credentials and starts an admin session. Both unknown
// email and wrong password return ErrInvalidCredentials so the responses are
// indistinguishable.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (string, session.AdminSession, error) {
	account, err := s.admins.GetAdminByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		slog.Warn("Login failed", "email", email)
		return "", session.AdminSession{}, ErrInvalidCredentials
	}
	if !CheckPasswordHash(password, account.PasswordHash) {
		slog.Warn("Login failed", "email", email)
		return "", session.AdminSession{}, ErrInvalidCredentials
	}

	return s.sessions.StartSession(ctx, account.ID, account.Email)
}

// Logout invalidates the session behind the token. Logging out an already
// expired session succeeds as a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Invalidate(ctx, token)
}

// BeginDeviceOAuth starts the provider authorization flow for enrolling a
// device under the admin behind the session token. deviceKey is the caller's
// stable local identifier for the device being enrolled.
func (s *AuthService) BeginDeviceOAuth(ctx context.Context, sessionToken, deviceKey string) (string, error) {
	sess, err := s.sessions.Validate(ctx, sessionToken)
	if err != nil {
		return "", err
	}

	st, err := s.states.Issue(sess.AdminID, deviceKey)
	if err != nil {
		return "", fmt.Errorf("failed to issue oauth state: %w", err)
	}

	authURL, err := s.oauth.AuthURL(st.State)
	if err != nil {
		return "", err
	}
	slog.Info("Device OAuth started", "admin_id", sess.AdminID, "device_key", deviceKey)
	return authURL, nil
}

// CompleteDeviceOAuth consumes the callback: it validates the state, exchanges
// the code, resolves the external identity, stores the token material and
// binds the device to the admin the state was issued for. The token store
// happens before the identity upsert, so a visible device always has token
// material behind it.
func (s *AuthService) CompleteDeviceOAuth(ctx context.Context, state, code string) (device.DeviceIdentity, error) {
	st, err := s.states.Consume(state)
	if err != nil {
		return device.DeviceIdentity{}, err
	}

	tokenResponse, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return device.DeviceIdentity{}, err
	}

	userInfo, err := s.oauth.FetchUserInfo(ctx, tokenResponse.AccessToken)
	if err != nil {
		return device.DeviceIdentity{}, err
	}

	email := strings.ToLower(userInfo.Email)
	mu, _ := s.bindMu.LoadOrStore(email, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	// Reuse the identity already recorded for this external account so
	// rebinding keeps the device ID stable.
	deviceID := uuid.New()
	if existing, err := s.devices.GetDeviceByEmail(ctx, email); err == nil {
		deviceID = existing.ID
	}

	if err := s.vault.Store(ctx, deviceID, tokenResponse.Material()); err != nil {
		return device.DeviceIdentity{}, err
	}

	bound, err := s.devices.UpsertBinding(ctx, device.DeviceIdentity{
		ID:          deviceID,
		DeviceKey:   st.DeviceKey,
		Email:       email,
		AdminID:     st.AdminID,
		DisplayName: userInfo.Name,
		Picture:     userInfo.Picture,
	})
	if err != nil {
		return device.DeviceIdentity{}, err
	}

	s.notifyBound(bound)
	return bound, nil
}

// notifyBound sends a best-effort notice to the admin. Delivery failure never
// fails the binding.
func (s *AuthService) notifyBound(bound device.DeviceIdentity) {
	if s.notifier == nil {
		return
	}

	account, err := s.admins.GetAdminByID(context.Background(), bound.AdminID)
	if err != nil {
		slog.Warn("Skipping binding notice, admin lookup failed", "admin_id", bound.AdminID, "err", err)
		return
	}

	err = s.notifier.Send(notification.Notification{
		To:      account.Email,
		Subject: "Device linked to your account",
		Body:    fmt.Sprintf("The device account %s is now linked to your account %s.", bound.Email, account.Email),
	})
	if err != nil {
		slog.Warn("Failed to send binding notice", "admin_id", bound.AdminID, "err", err)
	}
}
