package merlot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"crewsync-service/internal/domain/entity"
	"crewsync-service/internal/infrastructure/config"
	"crewsync-service/pkg/logger"
)

// refreshMargin is how close to expiry a token may get before it is refreshed
// ahead of an authenticated call.
const refreshMargin = 2 * time.Minute

// Client talks to the Merlot scheduling API. It owns the token lifecycle and
// retries transient upstream failures (429/5xx and the API's flaky 404s) with
// exponential backoff before surfacing an error for the affected request.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	username        string
	password        string
	subscriptionKey string
	env             string
	chunkDays       int
	logger          logger.Logger

	mu    sync.Mutex
	token *entity.MerlotToken
}

// NewClient creates a new Merlot client
func NewClient(cfg *config.Config, logger logger.Logger) *Client {
	return &Client{
		httpClient:      &http.Client{Timeout: cfg.MerlotTimeout},
		baseURL:         strings.TrimRight(cfg.MerlotBaseURL, "/"),
		username:        cfg.MerlotUsername,
		password:        cfg.MerlotPassword,
		subscriptionKey: cfg.MerlotSubscriptionKey,
		env:             cfg.MerlotEnv,
		chunkDays:       cfg.FetchChunkDays,
		logger:          logger,
	}
}

// CreateToken requests a fresh token pair using the password grant.
func (c *Client) CreateToken(ctx context.Context, role string) (*entity.MerlotToken, error) {
	if role == "" {
		role = "User"
	}
	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.username},
		"password":   {c.password},
		"role":       {role},
	}
	return c.requestToken(ctx, form)
}

// RefreshToken exchanges the refresh token for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, token *entity.MerlotToken, role string) (*entity.MerlotToken, error) {
	if role == "" {
		role = "User"
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {token.Refresh},
		"role":          {role},
	}
	return c.requestToken(ctx, form)
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (*entity.MerlotToken, error) {
	resp, err := c.apiCall(ctx, http.MethodPost, "/auth/token", nil, form, "")
	if err != nil {
		return nil, fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	var token entity.MerlotToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}

// currentToken returns a valid access token, creating or refreshing the token
// pair as needed. Refresh happens under a lock so overlapping sync cycles
// never race on the shared token.
func (c *Client) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Expired() {
		token, err := c.CreateToken(ctx, "")
		if err != nil {
			return "", err
		}
		c.token = token
		return c.token.Access, nil
	}

	if timeLeft := time.Until(c.token.ExpiresOn); timeLeft < refreshMargin {
		c.logger.Info("Merlot token close to expiry, refreshing", "timeLeft", timeLeft.String())
		token, err := c.RefreshToken(ctx, c.token, "")
		if err != nil {
			// fall back to a fresh login
			c.logger.Warn("Token refresh failed, requesting new token", "error", err)
			if token, err = c.CreateToken(ctx, ""); err != nil {
				return "", err
			}
		}
		c.token = token
	}

	return c.token.Access, nil
}

// authenticatedCall performs an API call with a bearer token attached.
func (c *Client) authenticatedCall(ctx context.Context, method, endpoint string, query url.Values) (*http.Response, error) {
	access, err := c.currentToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with Merlot: %w", err)
	}
	return c.apiCall(ctx, method, endpoint, query, nil, access)
}

// apiCall issues one HTTP request with retry. Responses outside 2xx that are
// not retryable are drained into an error.
func (c *Client) apiCall(ctx context.Context, method, endpoint string, query url.Values, form url.Values, bearer string) (*http.Response, error) {
	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var resp *http.Response
	operation := func() error {
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
		req.Header.Set("Env", c.env)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		r, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}

		if retryable(r.StatusCode) {
			r.Body.Close()
			return fmt.Errorf("merlot returned status %d", r.StatusCode)
		}
		resp = r
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	c.logger.Debug("Merlot call", "method", method, "endpoint", endpoint)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		message, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s %s: merlot returned status %d: %s", method, endpoint, resp.StatusCode, string(message))
	}

	return resp, nil
}

// retryable reports whether a status is worth retrying. Merlot intermittently
// serves 404 for records that exist, so it is treated as transient here.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusNotFound ||
		status >= 500
}

func decodeJSON(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}
