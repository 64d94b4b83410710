package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"kompanion-sync/internal/metrics"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token pair and persists it. Auth
// paths never trigger a refresh, so a bad password fails immediately.
func (c *Client) Login(ctx context.Context, email, password string) error {
	data, err := c.do(ctx, metrics.OpLogin, http.MethodPost, "/auth/login", loginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	var pair tokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("failed to decode token pair: %w", err)
	}

	if err := c.tokens.SaveTokens(pair.AccessToken, pair.RefreshToken); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}

	c.logger.Info("logged in")
	return nil
}

// Logout revokes the refresh token server-side and clears the stored
// pair. The local tokens are cleared even when revocation fails; a
// dangling server-side token expires on its own.
func (c *Client) Logout(ctx context.Context) error {
	_, refreshToken, err := c.tokens.Tokens()
	if err != nil {
		return fmt.Errorf("failed to read tokens: %w", err)
	}

	if refreshToken != "" {
		body := map[string]string{"refreshToken": refreshToken}
		if _, err := c.do(ctx, metrics.OpLogout, http.MethodPost, "/auth/logout", body); err != nil {
			c.logger.Warn("logout revocation failed", "error", err)
		}
	}

	if err := c.tokens.ClearTokens(); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}

	c.logger.Info("logged out")
	return nil
}
