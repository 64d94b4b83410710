package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"kompanion-sync/internal/metrics"
	"kompanion-sync/internal/notify"
)

const refreshPath = "/auth/refresh"

// TokenStore is the durable storage for the session's bearer tokens.
// It is read on every request and written only by the refresh path and
// the login/logout paths.
type TokenStore interface {
	Tokens() (accessToken, refreshToken string, err error)
	SaveTokens(accessToken, refreshToken string) error
	ClearTokens() error
}

// Client is an authenticated Kompanion API client. It transparently
// recovers from an expired access token exactly once per logical
// request, with concurrent 401s converging on a single refresh.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenStore
	notifier   notify.Notifier
	logger     *slog.Logger

	refreshGroup singleflight.Group

	// onSessionExpired is the forced-navigation hook, invoked after a
	// failed refresh has cleared the stored tokens
	onSessionExpired func()
}

// NewClient creates a new Kompanion API client
func NewClient(baseURL string, tokens TokenStore, notifier notify.Notifier, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
		notifier:   notifier,
		logger:     slog.Default(),
	}
}

// SetSessionExpiredHook registers the callback invoked when the session
// cannot be recovered. The daemon uses it to shut down; a UI would
// navigate to the login entry point.
func (c *Client) SetSessionExpiredHook(fn func()) {
	c.onSessionExpired = fn
}

// envelope is the Kompanion API response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// do performs an authenticated request and returns the envelope's data
// payload. On a 401 for any non-auth path it refreshes the access token
// once (single-flight across concurrent callers) and retries once.
func (c *Client) do(ctx context.Context, operation, method, path string, body any) (json.RawMessage, error) {
	data, status, err := c.request(ctx, operation, method, path, body)

	if status == http.StatusUnauthorized && !isAuthPath(path) {
		if refreshErr := c.refreshTokens(ctx); refreshErr != nil {
			return nil, refreshErr
		}
		data, status, err = c.request(ctx, operation, method, path, body)
	}

	if err != nil {
		return nil, err
	}

	return data, nil
}

// request performs a single HTTP round trip. The returned status is the
// HTTP status code when a response was received, 0 otherwise.
func (c *Client) request(ctx context.Context, operation, method, path string, body any) (json.RawMessage, int, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	accessToken, _, err := c.tokens.Tokens()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read tokens: %w", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("request failed", "method", method, "path", path, "error", err)
		metrics.APIRequestsTotal.WithLabelValues(operation, "0").Inc()
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	statusStr := strconv.Itoa(resp.StatusCode)
	metrics.APIRequestsTotal.WithLabelValues(operation, statusStr).Inc()
	metrics.APIRequestDuration.WithLabelValues(operation, statusStr).Observe(duration.Seconds())

	c.logger.Debug("kompanion_api_request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, c.classifyFailure(resp.StatusCode, respBody)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}

	if !env.Success {
		// The server reported failure inside a 2xx envelope; surface its
		// message verbatim and leave notification policy to the caller
		return nil, resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}

	return env.Data, resp.StatusCode, nil
}

// classifyFailure parses an error body into an APIError and, for status
// codes other than 400/401/403, emits a user-facing notification with a
// friendly message. 400/401/403 are surfaced as errors only, so invalid
// form input does not produce a double notification.
func (c *Client) classifyFailure(statusCode int, body []byte) error {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &parsed)

	message := parsed.Error
	if message == "" {
		message = parsed.Message
	}

	switch statusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		// Caller decides whether to notify
	default:
		if c.notifier != nil {
			c.notifier.Notify(notify.LevelError, friendlyMessage(statusCode, message))
		}
	}

	return &APIError{StatusCode: statusCode, Message: message}
}

// tokenPair is the /auth/refresh response payload
type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refreshTokens refreshes the access token. Concurrent callers share a
// single in-flight refresh and all retry (or all fail) on its outcome.
func (c *Client) refreshTokens(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return nil, c.doRefresh(ctx)
	})
	return err
}

// doRefresh exchanges the stored refresh token for a new token pair.
// On failure it clears the stored tokens and invokes the
// session-expired hook; this is the only place allowed to do either.
func (c *Client) doRefresh(ctx context.Context) error {
	_, refreshToken, err := c.tokens.Tokens()
	if err != nil {
		return fmt.Errorf("failed to read tokens: %w", err)
	}
	if refreshToken == "" {
		return c.expireSession(fmt.Errorf("no refresh token"))
	}

	body := map[string]string{"refreshToken": refreshToken}
	data, status, err := c.request(ctx, metrics.OpRefreshToken, http.MethodPost, refreshPath, body)
	if err != nil {
		c.logger.Warn("token refresh failed", "status", status, "error", err)
		metrics.TokenRefreshesTotal.WithLabelValues(metrics.RefreshResultFailure).Inc()
		return c.expireSession(err)
	}

	var pair tokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues(metrics.RefreshResultFailure).Inc()
		return c.expireSession(fmt.Errorf("failed to decode token pair: %w", err))
	}

	if err := c.tokens.SaveTokens(pair.AccessToken, pair.RefreshToken); err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues(metrics.RefreshResultFailure).Inc()
		return fmt.Errorf("failed to save tokens: %w", err)
	}

	metrics.TokenRefreshesTotal.WithLabelValues(metrics.RefreshResultSuccess).Inc()
	c.logger.Info("token refreshed")

	return nil
}

// expireSession ends the session after an unrecoverable auth failure
func (c *Client) expireSession(cause error) error {
	if err := c.tokens.ClearTokens(); err != nil {
		c.logger.Error("failed to clear tokens", "error", err)
	}
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
	return fmt.Errorf("%w: %v", ErrSessionExpired, cause)
}

// isAuthPath reports whether a path belongs to the authentication
// surface, which never triggers a refresh of its own
func isAuthPath(path string) bool {
	return strings.HasPrefix(path, "/auth/")
}
