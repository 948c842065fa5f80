package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/devicelink/delegate-idm/pkg/tokenvault"
)

// TokenResponse represents the OAuth2 token endpoint response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// Material converts the provider response into vault token material.
func (t TokenResponse) Material() tokenvault.TokenMaterial {
	material := tokenvault.TokenMaterial{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	if t.ExpiresIn > 0 {
		material.ExpiresAt = time.Now().UTC().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return material
}

// UserInfo represents normalized user information from the provider
type UserInfo struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture,omitempty"`
}

// Client performs OAuth2 exchanges against the configured provider.
type Client struct {
	provider    Provider
	redirectURL string
	httpClient  *http.Client
}

// Option is a function that configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client for provider API calls
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new OAuth2 client for the provider. redirectURL is the
// callback receiver registered with the provider.
func NewClient(provider Provider, redirectURL string, opts ...Option) *Client {
	client := &Client{
		provider:    provider,
		redirectURL: redirectURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// AuthURL builds the provider authorization URL for the given state.
func (c *Client) AuthURL(state string) (string, error) {
	return c.provider.BuildAuthURL(state, c.redirectURL)
}

// ExchangeCode exchanges an authorization code for token material. Transport
// failures are retried at most once before surfacing the error.
func (c *Client) ExchangeCode(ctx context.Context, code string) (TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", c.provider.ClientID)
	data.Set("client_secret", c.provider.ClientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", c.redirectURL)

	var tokenResponse TokenResponse
	if err := c.postForm(ctx, c.provider.TokenURL, data, &tokenResponse); err != nil {
		return TokenResponse{}, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	slog.Info("Token exchange successful", "token_type", tokenResponse.TokenType)
	return tokenResponse, nil
}

// Refresh exchanges a refresh token for fresh token material. It implements
// tokenvault.Refresher.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (tokenvault.TokenMaterial, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", c.provider.ClientID)
	data.Set("client_secret", c.provider.ClientSecret)
	data.Set("refresh_token", refreshToken)

	var tokenResponse TokenResponse
	if err := c.postForm(ctx, c.provider.TokenURL, data, &tokenResponse); err != nil {
		return tokenvault.TokenMaterial{}, fmt.Errorf("failed to refresh token: %w", err)
	}
	return tokenResponse.Material(), nil
}

// FetchUserInfo retrieves the external account identity from the provider.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.provider.UserInfoURL, nil)
	if err != nil {
		return UserInfo{}, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UserInfo{}, fmt.Errorf("failed to make user info request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return UserInfo{}, fmt.Errorf("failed to read user info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return UserInfo{}, fmt.Errorf("user info request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo UserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return UserInfo{}, fmt.Errorf("failed to parse user info: %w", err)
	}
	if userInfo.Email == "" {
		return UserInfo{}, fmt.Errorf("provider user info is missing an email")
	}

	slog.Info("User info retrieved", "email", userInfo.Email)
	return userInfo, nil
}

// postForm posts url-encoded form data and decodes the JSON response.
// The request is retried once on transport error.
func (c *Client) postForm(ctx context.Context, endpoint string, data url.Values, out interface{}) error {
	body, err := c.doPostForm(ctx, endpoint, data)
	if err != nil {
		slog.Warn("Provider request failed, retrying once", "endpoint", endpoint, "err", err)
		body, err = c.doPostForm(ctx, endpoint, data)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse provider response: %w", err)
	}
	return nil
}

func (c *Client) doPostForm(ctx context.Context, endpoint string, data url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
