package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"

	"github.com/safefall/safefall-go/tokenstore"
)

const maxRefreshResponseBytes = 1 << 20

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AccessToken returns the stored access token or "".
func (c *RESTClient) AccessToken() string {
	return tokenstore.Lookup(c.tokens, tokenstore.AccessTokenKey)
}

// SetTokens stores the token pair in one write. An empty refresh token keeps the stored one.
func (c *RESTClient) SetTokens(access, refresh string) error {
	values := map[string]string{tokenstore.AccessTokenKey: access}
	if refresh != "" {
		values[tokenstore.RefreshTokenKey] = refresh
	}
	return c.tokens.SetMany(values)
}

// ClearTokens removes both tokens.
func (c *RESTClient) ClearTokens() error {
	return c.tokens.Delete(tokenstore.AccessTokenKey, tokenstore.RefreshTokenKey)
}

// refreshAccessToken exchanges the refresh token for a new pair. staleToken is the
// access token the 401 was received with; if another call has already replaced it
// the refresh is skipped. Refreshes are serialized.
func (c *RESTClient) refreshAccessToken(ctx context.Context, staleToken string) bool {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.AccessToken(); current != "" && current != staleToken {
		return true
	}

	refresh := tokenstore.Lookup(c.tokens, tokenstore.RefreshTokenKey)
	if refresh == "" {
		c.log.Debug().Msg("No refresh token available")
		return false
	}

	ok := c.exchangeRefreshToken(ctx, refresh)
	c.metrics.recordRefresh(ctx, ok)
	return ok
}

func (c *RESTClient) exchangeRefreshToken(ctx context.Context, refresh string) bool {
	refreshURL, err := c.resolveURL(c.cfg.RefreshPath)
	if err != nil {
		c.log.Warn().Err(err).Msg("Token refresh failed")
		return false
	}
	payload, err := json.Marshal(refreshRequest{RefreshToken: refresh})
	if err != nil {
		c.log.Warn().Err(err).Msg("Token refresh failed")
		return false
	}

	refreshCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := nethttp.NewRequestWithContext(refreshCtx, nethttp.MethodPost, refreshURL, bytes.NewReader(payload))
	if err != nil {
		c.log.Warn().Err(err).Msg("Token refresh failed")
		return false
	}
	req.Header.Set(headerContentType, mimeJSON)
	req.Header.Set(headerAccept, mimeJSON)
	req.Header.Set(c.traceHeader, c.traceID(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("url", refreshURL).Msg("Token refresh failed")
		return false
	}
	defer resp.Body.Close()

	if !IsSuccessStatus(resp.StatusCode) {
		c.log.Warn().Int("status", resp.StatusCode).Str("url", refreshURL).Msg("Token refresh rejected")
		return false
	}

	var tokens refreshResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRefreshResponseBytes)).Decode(&tokens); err != nil || tokens.AccessToken == "" {
		c.log.Warn().Err(err).Msg("Token refresh returned no access token")
		return false
	}

	if err := c.SetTokens(tokens.AccessToken, tokens.RefreshToken); err != nil {
		c.log.Warn().Err(err).Msg("Failed to store refreshed tokens")
		return false
	}

	c.log.Debug().Msg("Access token refreshed")
	return true
}

// expireSession forgets the tokens and tells the application a new login is needed.
func (c *RESTClient) expireSession(ctx context.Context) {
	if err := c.ClearTokens(); err != nil {
		c.log.Warn().Err(err).Msg("Failed to clear tokens")
	}
	c.log.Warn().Msg("Session expired, authentication required")
	if c.cfg.OnAuthRequired != nil {
		c.cfg.OnAuthRequired(ctx)
	}
}
