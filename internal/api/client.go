// Package api is the single request pipeline to the recommendation service.
// It attaches the current access token to every outbound call, classifies
// responses, and reacts uniformly to authorization failures.
package api

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

	"golang.org/x/time/rate"

	"github.com/kshimizu/anitrack/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "anitrack/1.0"

	// Client-side pacing so bursts of cache refetches stay polite.
	requestsPerSecond = 8
	requestBurst      = 16
)

// TokenSource returns the current access token, or "" when anonymous.
// The gateway reads the token through the session manager rather than the
// credential store to avoid racing an in-flight login.
type TokenSource func() string

// AuthFailureHandler is invoked when a protected call is rejected with 401.
type AuthFailureHandler func()

// Client is the shared HTTP gateway. All network I/O goes through it;
// callers never build requests themselves.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokenSource   TokenSource
	onAuthFailure AuthFailureHandler
	limiter       *rate.Limiter
	logger        *slog.Logger
}

// NewClient creates a gateway for the service at baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		logger:  logger,
	}
}

// SetTokenSource wires the session manager's token accessor. Set once
// during startup, before any request is issued.
func (c *Client) SetTokenSource(src TokenSource) {
	c.tokenSource = src
}

// SetAuthFailureHandler wires the forced sign-out reaction. Set once
// during startup, before any request is issued.
func (c *Client) SetAuthFailureHandler(h AuthFailureHandler) {
	c.onAuthFailure = h
}

// doRequest performs one authenticated request and returns the raw body.
// It never retries: none of the service's mutations are safe to replay
// blindly, so retry policy stays with the caller.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any, rt Route) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug("api request", "route", rt, "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed", "route", rt, "error", err)
		return nil, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if rt.IsProtected() && c.onAuthFailure != nil {
			c.logger.Warn("authorization failure on protected route", "route", rt)
			c.onAuthFailure()
		}
		return nil, domain.ErrAuthFailed

	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrItemNotFound

	case resp.StatusCode >= 400:
		c.logger.Error("api request error", "route", rt, "status", resp.StatusCode, "body", string(respBody))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return respBody, nil
}

// get performs a GET request and decodes the JSON response into dest.
func (c *Client) get(ctx context.Context, path string, query url.Values, rt Route, dest any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil, rt)
	if err != nil {
		return err
	}
	return c.decode(body, dest, rt)
}

// post performs a POST request. dest may be nil when the response body is
// irrelevant.
func (c *Client) post(ctx context.Context, path string, payload any, rt Route, dest any) error {
	body, err := c.doRequest(ctx, http.MethodPost, path, nil, payload, rt)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	return c.decode(body, dest, rt)
}

// patch performs a PATCH request. dest may be nil.
func (c *Client) patch(ctx context.Context, path string, payload any, rt Route, dest any) error {
	body, err := c.doRequest(ctx, http.MethodPatch, path, nil, payload, rt)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	return c.decode(body, dest, rt)
}

// put performs a PUT request. dest may be nil.
func (c *Client) put(ctx context.Context, path string, payload any, rt Route, dest any) error {
	body, err := c.doRequest(ctx, http.MethodPut, path, nil, payload, rt)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	return c.decode(body, dest, rt)
}

// del performs a DELETE request, discarding the response body.
func (c *Client) del(ctx context.Context, path string, rt Route) error {
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil, nil, rt)
	return err
}

func (c *Client) decode(body []byte, dest any, rt Route) error {
	if err := json.Unmarshal(body, dest); err != nil {
		c.logger.Error("JSON parse error", "route", rt, "error", err, "bodyLen", len(body))
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
