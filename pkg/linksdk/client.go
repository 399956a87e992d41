package linksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TokenSource returns the bearer token for a request.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken always returns token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// Client calls the league API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      TokenSource
}

// NewClient returns a client with a 10 second timeout. token may be nil for
// health checks only.
func NewClient(baseURL string, token TokenSource) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Token:      token,
	}
}

// IssueLink asks the server to sign an action link.
func (c *Client) IssueLink(ctx context.Context, req IssueLinkRequest) (*IssueLinkResponse, error) {
	var out IssueLinkResponse
	if err := c.postJSON(ctx, "/v1/links", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// MintRSVPToken asks the server for an opaque /rsvp/<token> link.
func (c *Client) MintRSVPToken(ctx context.Context, req RSVPTokenRequest) (*RSVPTokenResponse, error) {
	var out RSVPTokenResponse
	if err := c.postJSON(ctx, "/v1/rsvp-tokens", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateEvent creates an event or clinic.
func (c *Client) CreateEvent(ctx context.Context, req CreateEventRequest) (*CreateEventResponse, error) {
	var out CreateEventResponse
	if err := c.postJSON(ctx, "/v1/events", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLiveness checks if the service is alive.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the service is ready.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}
	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any, expected int) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body), true)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, expected)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, auth bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		if c.Token == nil {
			return nil, fmt.Errorf("linksdk: no token source configured")
		}
		token, err := c.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// decodeJSON reads resp into target, or returns an *APIError when the status
// differs from expected.
func decodeJSON(resp *http.Response, target any, expected int) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expected {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || apiErr.Code == "" {
			apiErr.Code = ErrorCodeServerError
			apiErr.Description = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
