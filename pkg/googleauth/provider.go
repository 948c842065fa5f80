// Package googleauth implements the client side of the OAuth2 authorization
// code exchange with the external mailbox provider. It does not implement the
// provider's own protocol, only code exchange, refresh and user info retrieval.
package googleauth

import (
	"fmt"
	"net/url"
	"strings"
)

// Provider holds the OAuth2 configuration for the external identity provider.
type Provider struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURL      string   `json:"auth_url"`
	TokenURL     string   `json:"token_url"`
	UserInfoURL  string   `json:"user_info_url"`
	Scopes       []string `json:"scopes"`
}

// NewGoogleProvider returns a provider configured with Google's endpoints and
// the scopes needed for mailbox delegation.
func NewGoogleProvider(clientID, clientSecret string) Provider {
	return Provider{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:     "https://oauth2.googleapis.com/token",
		UserInfoURL:  "https://openidconnect.googleapis.com/v1/userinfo",
		Scopes:       []string{"openid", "email", "profile", "https://mail.google.com/"},
	}
}

// ValidateConfig validates the provider configuration
func (p Provider) ValidateConfig() error {
	if p.ClientID == "" {
		return fmt.Errorf("client ID is required")
	}
	if p.ClientSecret == "" {
		return fmt.Errorf("client secret is required")
	}
	if _, err := url.Parse(p.AuthURL); err != nil {
		return fmt.Errorf("invalid authorization URL: %w", err)
	}
	if _, err := url.Parse(p.TokenURL); err != nil {
		return fmt.Errorf("invalid token URL: %w", err)
	}
	if _, err := url.Parse(p.UserInfoURL); err != nil {
		return fmt.Errorf("invalid user info URL: %w", err)
	}
	return nil
}

// BuildAuthURL builds the OAuth2 authorization URL with the given state and
// redirect URI.
func (p Provider) BuildAuthURL(state, redirectURI string) (string, error) {
	authURL, err := url.Parse(p.AuthURL)
	if err != nil {
		return "", fmt.Errorf("invalid auth URL: %w", err)
	}

	params := url.Values{}
	params.Set("client_id", p.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")
	if len(p.Scopes) > 0 {
		params.Set("scope", strings.Join(p.Scopes, " "))
	}

	authURL.RawQuery = params.Encode()
	return authURL.String(), nil
}
