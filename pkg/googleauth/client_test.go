package googleauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(server *httptest.Server) Provider {
	return Provider{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      server.URL + "/auth",
		TokenURL:     server.URL + "/token",
		UserInfoURL:  server.URL + "/userinfo",
		Scopes:       []string{"openid", "email"},
	}
}

func TestExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "code-1", r.PostForm.Get("code"))
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			TokenType:    "Bearer",
			ExpiresIn:    3600,
		})
	}))
	defer server.Close()

	client := NewClient(newTestProvider(server), "http://localhost/callback")
	resp, err := client.ExchangeCode(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", resp.AccessToken)

	material := resp.Material()
	assert.Equal(t, "refresh-1", material.RefreshToken)
	assert.False(t, material.ExpiresAt.IsZero())
}

func TestExchangeCodeRetriesOnce(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(TokenResponse{AccessToken: "access-1", TokenType: "Bearer"})
	}))
	defer server.Close()

	client := NewClient(newTestProvider(server), "http://localhost/callback")
	resp, err := client.ExchangeCode(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", resp.AccessToken)
	assert.Equal(t, 2, calls)
}

func TestRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		json.NewEncoder(w).Encode(TokenResponse{AccessToken: "access-2", TokenType: "Bearer", ExpiresIn: 3600})
	}))
	defer server.Close()

	client := NewClient(newTestProvider(server), "http://localhost/callback")
	material, err := client.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", material.AccessToken)
}

func TestFetchUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(UserInfo{
			Email:         "device@example.com",
			EmailVerified: true,
			Name:          "Device One",
		})
	}))
	defer server.Close()

	client := NewClient(newTestProvider(server), "http://localhost/callback")
	info, err := client.FetchUserInfo(context.Background(), "access-1")
	require.NoError(t, err)
	assert.Equal(t, "device@example.com", info.Email)
	assert.Equal(t, "Device One", info.Name)
}

func TestFetchUserInfoMissingEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"name": "No Email"})
	}))
	defer server.Close()

	client := NewClient(newTestProvider(server), "http://localhost/callback")
	_, err := client.FetchUserInfo(context.Background(), "access-1")
	assert.Error(t, err)
}

func TestAuthURLCarriesState(t *testing.T) {
	provider := NewGoogleProvider("client-id", "client-secret")
	client := NewClient(provider, "http://localhost/callback")

	authURL, err := client.AuthURL("state-1")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "state-1", parsed.Query().Get("state"))
	assert.Equal(t, "offline", parsed.Query().Get("access_type"))
	assert.Equal(t, "consent", parsed.Query().Get("prompt"))
	assert.True(t, strings.Contains(parsed.Query().Get("scope"), "https://mail.google.com/"))
}

func TestStateStoreSingleUse(t *testing.T) {
	store := NewStateStore(10 * time.Minute)
	adminID := uuid.New()

	issued, err := store.Issue(adminID, "device-1")
	require.NoError(t, err)
	require.NotEmpty(t, issued.State)

	consumed, err := store.Consume(issued.State)
	require.NoError(t, err)
	assert.Equal(t, adminID, consumed.AdminID)
	assert.Equal(t, "device-1", consumed.DeviceKey)

	_, err = store.Consume(issued.State)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateStoreExpiry(t *testing.T) {
	store := NewStateStore(10 * time.Minute)
	store.expiration = -1 * time.Second

	issued, err := store.Issue(uuid.New(), "device-1")
	require.NoError(t, err)

	_, err = store.Consume(issued.State)
	assert.ErrorIs(t, err, ErrInvalidState)
}
