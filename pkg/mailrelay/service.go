package mailrelay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/devicelink/delegate-idm/pkg/delegation"
	"github.com/devicelink/delegate-idm/pkg/tokenvault"
)

var nowFunc = time.Now

// Service relays mailbox operations performed under a delegation grant. Every
// call resolves the grant first; a grant that is not live performs nothing.
type Service struct {
	delegations *delegation.Service
	vault       *tokenvault.VaultService
	baseURL     string
	httpClient  *http.Client
}

// Option is a function that configures a relay Service
type Option func(*Service)

// WithHTTPClient sets the HTTP client used for mailbox API calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Service) {
		s.httpClient = httpClient
	}
}

// NewService creates a relay against the mailbox API at baseURL.
func NewService(delegations *delegation.Service, vault *tokenvault.VaultService, baseURL string, opts ...Option) *Service {
	service := &Service{
		delegations: delegations,
		vault:       vault,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// ListMessages lists the device mailbox's messages in the given folder.
func (s *Service) ListMessages(ctx context.Context, grantToken, folder string) ([]Message, error) {
	params := url.Values{}
	if folder != "" {
		params.Set("folder", folder)
	}
	return s.fetchMessages(ctx, grantToken, params)
}

// SearchMessages searches the device mailbox for messages matching the query.
func (s *Service) SearchMessages(ctx context.Context, grantToken, query string) ([]Message, error) {
	params := url.Values{}
	params.Set("q", query)
	return s.fetchMessages(ctx, grantToken, params)
}

func (s *Service) fetchMessages(ctx context.Context, grantToken string, params url.Values) ([]Message, error) {
	endpoint := s.baseURL + "/messages"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	body, err := s.authorized(ctx, grantToken, func(accessToken string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Messages []Message `json:"messages"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse mailbox response: %w", err)
	}
	if payload.Messages == nil {
		payload.Messages = make([]Message, 0)
	}
	return payload.Messages, nil
}

// SendMessage sends a message from the device's account.
func (s *Service) SendMessage(ctx context.Context, grantToken string, send SendRequest) (Message, error) {
	if send.To == "" {
		return Message{}, fmt.Errorf("send request is missing a recipient")
	}

	payload, err := json.Marshal(send)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode send request: %w", err)
	}

	body, err := s.authorized(ctx, grantToken, func(accessToken string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages/send", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return Message{}, err
	}

	var sent Message
	if err := json.Unmarshal(body, &sent); err != nil {
		return Message{}, fmt.Errorf("failed to parse send response: %w", err)
	}
	return sent, nil
}

// authorized resolves the grant to token material and performs the request.
// Expired material is refreshed before the call; a 401 from the mailbox API
// triggers one refresh-and-retry.
func (s *Service) authorized(ctx context.Context, grantToken string, build func(accessToken string) (*http.Request, error)) ([]byte, error) {
	material, grant, err := s.delegations.TokenForGrant(ctx, grantToken)
	if err != nil {
		return nil, err
	}

	if material.IsExpired(nowFunc()) {
		material, err = s.vault.Refresh(ctx, grant.DeviceID)
		if err != nil {
			return nil, err
		}
	}

	body, status, err := s.do(build, material.AccessToken)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		slog.Info("Mailbox rejected access token, refreshing", "device_id", grant.DeviceID)
		material, err = s.vault.Refresh(ctx, grant.DeviceID)
		if err != nil {
			return nil, err
		}
		body, status, err = s.do(build, material.AccessToken)
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("mailbox request failed with status %d: %s", status, string(body))
	}
	return body, nil
}

func (s *Service) do(build func(accessToken string) (*http.Request, error), accessToken string) ([]byte, int, error) {
	req, err := build(accessToken)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create mailbox request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make mailbox request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read mailbox response: %w", err)
	}
	return body, resp.StatusCode, nil
}
