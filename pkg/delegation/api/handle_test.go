package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelink/delegate-idm/pkg/client"
	"github.com/devicelink/delegate-idm/pkg/delegation"
	"github.com/devicelink/delegate-idm/pkg/device"
	"github.com/devicelink/delegate-idm/pkg/session"
	"github.com/devicelink/delegate-idm/pkg/tokengenerator"
	"github.com/devicelink/delegate-idm/pkg/tokenvault"
)

const testSecret = "test-secret"

type apiEnv struct {
	router   chi.Router
	sessions *session.SessionService
	devices  *device.DeviceService
	vault    *tokenvault.VaultService
	adminID  uuid.UUID
	token    string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	ctx := context.Background()

	tokens := tokengenerator.NewJwtTokenGenerator(testSecret, "test-issuer", "test-audience")
	sessions := session.NewSessionService(session.NewInMemSessionRepository(), tokens)
	devices := device.NewDeviceService(device.NewInMemDeviceRepository())
	vault := tokenvault.NewVaultService(tokenvault.NewInMemVaultRepository(), nil)
	service := delegation.NewService(delegation.NewInMemGrantRepository(), sessions, devices, vault, tokens)

	adminID := uuid.New()
	bound, err := devices.UpsertBinding(ctx, device.DeviceIdentity{
		DeviceKey: "device-key-1",
		Email:     "device@example.com",
		AdminID:   adminID,
	})
	require.NoError(t, err)
	require.NoError(t, vault.Store(ctx, bound.ID, tokenvault.TokenMaterial{
		AccessToken: "device-access",
		ExpiresAt:   time.Now().UTC().Add(time.Hour),
	}))

	token, _, err := sessions.StartSession(ctx, adminID, "admin@example.com")
	require.NoError(t, err)

	tokenAuth := jwtauth.New("HS256", []byte(testSecret), nil)
	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Use(client.AdminSessionMiddleware(sessions))
		NewHandler(service, devices).RegisterRoutes(r)
	})

	return &apiEnv{
		router:   router,
		sessions: sessions,
		devices:  devices,
		vault:    vault,
		adminID:  adminID,
		token:    token,
	}
}

func (e *apiEnv) loginToDevice(t *testing.T, bearer, deviceEmail string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(LoginToDeviceRequest{DeviceBEmail: deviceEmail, DeviceID: "device-key-1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/device-a/login-to-device", bytes.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestLoginToDevice(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.loginToDevice(t, env.token, "device@example.com")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginToDeviceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.GrantToken)
	assert.Contains(t, resp.RedirectURL, "/auth/login?")
	assert.Contains(t, resp.RedirectURL, "deviceId=device-key-1")
}

func TestLoginToDeviceWithoutToken(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.loginToDevice(t, "", "device@example.com")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginToDeviceAfterLogout(t *testing.T) {
	env := newAPIEnv(t)

	require.NoError(t, env.sessions.Invalidate(context.Background(), env.token))
	rec := env.loginToDevice(t, env.token, "device@example.com")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginToDeviceUnownedDevice(t *testing.T) {
	env := newAPIEnv(t)

	_, err := env.devices.UpsertBinding(context.Background(), device.DeviceIdentity{
		DeviceKey: "device-key-2",
		Email:     "other@example.com",
		AdminID:   uuid.New(),
	})
	require.NoError(t, err)

	rec := env.loginToDevice(t, env.token, "other@example.com")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginToDeviceUnknownEmail(t *testing.T) {
	env := newAPIEnv(t)

	// Unknown and unowned devices are indistinguishable to the caller.
	rec := env.loginToDevice(t, env.token, "nobody@example.com")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginToDeviceWithoutDeviceToken(t *testing.T) {
	env := newAPIEnv(t)

	_, err := env.devices.UpsertBinding(context.Background(), device.DeviceIdentity{
		DeviceKey: "device-key-3",
		Email:     "tokenless@example.com",
		AdminID:   env.adminID,
	})
	require.NoError(t, err)

	rec := env.loginToDevice(t, env.token, "tokenless@example.com")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginToDeviceMissingEmail(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.loginToDevice(t, env.token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
