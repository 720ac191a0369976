package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/ratelimit"
	"golang.org/x/sync/singleflight"
)

// TokenStore supplies and persists the session's bearer tokens.
type TokenStore interface {
	// Tokens returns the current access and refresh tokens. Either may be
	// empty.
	Tokens() (access string, refresh string, err error)

	// SaveAccessToken persists a freshly refreshed access token.
	SaveAccessToken(token string) error
}

// StaticTokens is a TokenStore backed by memory. It is used by tests and
// by commands that receive a token on the command line.
type StaticTokens struct {
	Access  string
	Refresh string
}

// Tokens implements TokenStore.
func (s *StaticTokens) Tokens() (string, string, error) {
	return s.Access, s.Refresh, nil
}

// SaveAccessToken implements TokenStore.
func (s *StaticTokens) SaveAccessToken(token string) error {
	s.Access = token
	return nil
}

// Client is a thin HTTP client for the marketplace REST API. It handles
// Bearer authentication with a single refresh-and-retry on 401, JSON
// (de)serialization, client-side rate limiting, and retry with
// exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	tokens     TokenStore
	httpClient *http.Client
	limiter    ratelimit.Limiter
	refreshes  singleflight.Group
	maxRetries int
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit caps outbound requests per second. Zero or negative
// disables limiting.
func WithRateLimit(perSecond int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = ratelimit.NewUnlimited()
			return
		}
		c.limiter = ratelimit.New(perSecond)
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a new API client for the given base URL
// (e.g., https://api.bidrr.ca).
func NewClient(baseURL string, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:    ratelimit.NewUnlimited(),
		maxRetries: 3,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = &StaticTokens{}
	}
	return c
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs an authenticated GET and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result, true)
}

// Post performs an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result, true)
}

// Put performs an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, result, true)
}

// Delete performs an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, result, true)
}

// response is a fully read HTTP response.
type response struct {
	status int
	header http.Header
	body   []byte
}

// do sends the request, recovers from one 401 by refreshing the access
// token, and decodes the result.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
	authed bool,
) error {
	token := ""
	if authed {
		access, _, err := c.tokens.Tokens()
		if err != nil {
			return fmt.Errorf("loading access token: %w", err)
		}
		if access == "" {
			c.log.Debug("No token available for authenticated request", slog.String("path", path))
		}
		token = access
	}

	resp, err := c.roundTrip(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized && authed {
		c.log.Info("Access token rejected, attempting refresh", slog.String("path", path))

		newToken, refreshErr := c.refreshAccessToken(ctx)
		if refreshErr != nil {
			return &AuthError{Path: path, Message: refreshErr.Error()}
		}

		resp, err = c.roundTrip(ctx, method, path, body, newToken)
		if err != nil {
			return err
		}
		if resp.status == http.StatusUnauthorized {
			return &AuthError{Path: path, Message: "rejected after token refresh"}
		}
	}

	return decodeResponse(method, path, resp, result)
}

// roundTrip performs one logical request, retrying on 429 with backoff.
func (c *Client) roundTrip(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	token string,
) (*response, error) {
	url := c.baseURL + path

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		c.limiter.Take()

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		started := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		c.log.Debug("API request",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Duration("took", time.Since(started)))

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		return &response{
			status: resp.StatusCode,
			header: resp.Header,
			body:   respBody,
		}, nil
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// RefreshToken exchanges the stored refresh token for a new access token
// and persists it through the TokenStore.
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	return c.refreshAccessToken(ctx)
}

// refreshAccessToken exchanges the stored refresh token for a new access
// token. Concurrent callers share a single refresh request.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	token, err, _ := c.refreshes.Do("refresh", func() (interface{}, error) {
		_, refresh, err := c.tokens.Tokens()
		if err != nil {
			return "", fmt.Errorf("loading refresh token: %w", err)
		}
		if refresh == "" {
			return "", errors.New("no refresh token available")
		}

		var out refreshResponse
		err = c.do(ctx, http.MethodPost, "/api/users/refresh-token",
			refreshRequest{RefreshToken: refresh}, &out, false)
		if err != nil {
			return "", fmt.Errorf("refreshing token: %w", err)
		}
		if out.Token == "" {
			return "", errors.New("refresh response missing token")
		}

		if err := c.tokens.SaveAccessToken(out.Token); err != nil {
			c.log.Warn("Failed to persist refreshed token", slog.String("error", err.Error()))
		}
		return out.Token, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// decodeResponse maps non-2xx statuses to APIError and unmarshals JSON
// bodies into result.
func decodeResponse(method, path string, resp *response, result interface{}) error {
	if resp.status < 200 || resp.status >= 300 {
		var envelope errorResponse
		msg := ""
		if json.Unmarshal(resp.body, &envelope) == nil {
			msg = envelope.text()
		}
		if msg == "" {
			msg = fmt.Sprintf("HTTP error! status: %d", resp.status)
		}
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.status,
			Message:    msg,
		}
	}

	// No content to parse (e.g. 204).
	if result == nil || resp.status == http.StatusNoContent {
		return nil
	}

	if !strings.Contains(resp.header.Get("Content-Type"), "application/json") {
		return fmt.Errorf("%s %s (status %d): %w", method, path, resp.status, ErrNonJSONResponse)
	}

	if err := json.Unmarshal(resp.body, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}

	return nil
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
