package login

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelink/delegate-idm/pkg/admin"
	"github.com/devicelink/delegate-idm/pkg/device"
	"github.com/devicelink/delegate-idm/pkg/googleauth"
	"github.com/devicelink/delegate-idm/pkg/notification"
	"github.com/devicelink/delegate-idm/pkg/session"
	"github.com/devicelink/delegate-idm/pkg/tokengenerator"
	"github.com/devicelink/delegate-idm/pkg/tokenvault"
)

type testEnv struct {
	service  *AuthService
	admins   *admin.InMemAdminRepository
	devices  *device.DeviceService
	vault    *tokenvault.VaultService
	sessions *session.SessionService
	states   *googleauth.StateStore
	notifier *notification.MockNotifier
}

func newTestEnv(t *testing.T, oauthServer *httptest.Server) *testEnv {
	t.Helper()

	tokens := tokengenerator.NewJwtTokenGenerator("test-secret", "test-issuer", "test-audience")
	admins := admin.NewInMemAdminRepository()
	sessions := session.NewSessionService(session.NewInMemSessionRepository(), tokens)
	devices := device.NewDeviceService(device.NewInMemDeviceRepository())

	provider := googleauth.Provider{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}
	if oauthServer != nil {
		provider.AuthURL = oauthServer.URL + "/auth"
		provider.TokenURL = oauthServer.URL + "/token"
		provider.UserInfoURL = oauthServer.URL + "/userinfo"
	}
	oauthClient := googleauth.NewClient(provider, "http://localhost/callback")

	vault := tokenvault.NewVaultService(tokenvault.NewInMemVaultRepository(), oauthClient)
	states := googleauth.NewStateStore(10 * time.Minute)
	notifier := notification.NewMockNotifier()

	service := NewAuthService(admins, sessions, devices, vault, states, oauthClient, WithNotifier(notifier))
	return &testEnv{
		service:  service,
		admins:   admins,
		devices:  devices,
		vault:    vault,
		sessions: sessions,
		states:   states,
		notifier: notifier,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	account, err := env.service.RegisterAdmin(ctx, RegisterRequest{
		Name:     "Admin One",
		Email:    "Admin@Example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", account.Email)
	assert.NotEqual(t, "password123", account.PasswordHash)

	token, sess, err := env.service.LoginAdmin(ctx, "admin@example.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, account.ID, sess.AdminID)

	validated, err := env.sessions.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, validated.ID)
}

func TestRegisterMapsAndNormalizesRequest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	account, err := env.service.RegisterAdmin(ctx, RegisterRequest{
		Name:     "  Admin One  ",
		Email:    "  Admin@Example.COM ",
		Password: "password123",
	})
	require.NoError(t, err)

	// The stored account carries the normalized request fields, never the
	// plaintext password.
	assert.Equal(t, "Admin One", account.Name)
	assert.Equal(t, "admin@example.com", account.Email)
	assert.NotContains(t, account.PasswordHash, "password123")

	stored, err := env.admins.GetAdminByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Admin One", stored.Name)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	req := RegisterRequest{Name: "Admin", Email: "admin@example.com", Password: "password123"}
	_, err := env.service.RegisterAdmin(ctx, req)
	require.NoError(t, err)

	_, err = env.service.RegisterAdmin(ctx, req)
	var exists admin.ErrAccountExists
	assert.ErrorAs(t, err, &exists)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	cases := []RegisterRequest{
		{Name: "", Email: "admin@example.com", Password: "password123"},
		{Name: "Admin", Email: "", Password: "password123"},
		{Name: "Admin", Email: "not-an-email", Password: "password123"},
		{Name: "Admin", Email: "admin@example.com", Password: "   "},
	}
	for _, req := range cases {
		_, err := env.service.RegisterAdmin(ctx, req)
		assert.True(t, IsValidationError(err), "expected validation error for %+v", req)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	_, err := env.service.RegisterAdmin(ctx, RegisterRequest{
		Name:     "Admin",
		Email:    "admin@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	_, _, unknownErr := env.service.LoginAdmin(ctx, "nobody@example.com", "password123")
	_, _, wrongPwErr := env.service.LoginAdmin(ctx, "admin@example.com", "wrong-password")

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongPwErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongPwErr.Error())
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	_, err := env.service.RegisterAdmin(ctx, RegisterRequest{
		Name:     "Admin",
		Email:    "admin@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	token, _, err := env.service.LoginAdmin(ctx, "admin@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, env.service.Logout(ctx, token))
	_, err = env.sessions.Validate(ctx, token)
	assert.ErrorIs(t, err, session.ErrSessionUnknown)
}

func newOAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			json.NewEncoder(w).Encode(googleauth.TokenResponse{
				AccessToken:  "provider-access",
				RefreshToken: "provider-refresh",
				TokenType:    "Bearer",
				ExpiresIn:    3600,
			})
		case "/userinfo":
			json.NewEncoder(w).Encode(googleauth.UserInfo{
				Email:         "Device@Example.com",
				EmailVerified: true,
				Name:          "Device One",
				Picture:       "https://example.com/p.png",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestDeviceOAuthEnrollment(t *testing.T) {
	ctx := context.Background()
	server := newOAuthServer(t)
	defer server.Close()
	env := newTestEnv(t, server)

	account, err := env.service.RegisterAdmin(ctx, RegisterRequest{
		Name:     "Admin",
		Email:    "admin@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	sessionToken, _, err := env.service.LoginAdmin(ctx, "admin@example.com", "password123")
	require.NoError(t, err)

	authURL, err := env.service.BeginDeviceOAuth(ctx, sessionToken, "device-key-1")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	bound, err := env.service.CompleteDeviceOAuth(ctx, state, "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "device@example.com", bound.Email)
	assert.Equal(t, account.ID, bound.AdminID)
	assert.Equal(t, "device-key-1", bound.DeviceKey)
	assert.Equal(t, "Device One", bound.DisplayName)

	// Token material landed in the vault under the device's identity.
	material, err := env.vault.Get(ctx, bound.ID)
	require.NoError(t, err)
	assert.Equal(t, "provider-access", material.AccessToken)
	assert.Equal(t, "provider-refresh", material.RefreshToken)

	// The admin got a binding notice.
	require.Len(t, env.notifier.SentTo("admin@example.com"), 1)

	// States are single use.
	_, err = env.service.CompleteDeviceOAuth(ctx, state, "auth-code")
	assert.ErrorIs(t, err, googleauth.ErrInvalidState)
}

func TestDeviceOAuthRebindKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	server := newOAuthServer(t)
	defer server.Close()
	env := newTestEnv(t, server)

	enroll := func(adminEmail string) device.DeviceIdentity {
		_, err := env.service.RegisterAdmin(ctx, RegisterRequest{
			Name:     "Admin",
			Email:    adminEmail,
			Password: "password123",
		})
		require.NoError(t, err)
		sessionToken, _, err := env.service.LoginAdmin(ctx, adminEmail, "password123")
		require.NoError(t, err)
		authURL, err := env.service.BeginDeviceOAuth(ctx, sessionToken, "device-key-1")
		require.NoError(t, err)
		parsed, err := url.Parse(authURL)
		require.NoError(t, err)
		bound, err := env.service.CompleteDeviceOAuth(ctx, parsed.Query().Get("state"), "auth-code")
		require.NoError(t, err)
		return bound
	}

	first := enroll("first@example.com")
	second := enroll("second@example.com")

	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.AdminID, second.AdminID)
}

func TestBeginDeviceOAuthRequiresSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	_, err := env.service.BeginDeviceOAuth(ctx, "garbage", "device-key-1")
	assert.ErrorIs(t, err, session.ErrSessionUnknown)
}
