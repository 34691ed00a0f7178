package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"crewsync-service/internal/infrastructure/config"
	"crewsync-service/pkg/logger"
)

// userBatchSize and eventBatchSize bound the number of sub-requests packed
// into one $batch call. The events batch is kept small because the directory
// API throttles calendar writes much harder than directory reads.
const (
	userBatchSize  = 20
	eventBatchSize = 4
)

// batchRequest is one sub-request within a directory $batch call.
type batchRequest struct {
	ID      string            `json:"id"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Body    interface{}       `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// batchResponse is one sub-response within a directory $batch reply. Body is
// held raw so each caller can decode its own payload shape.
type batchResponse struct {
	ID     string          `json:"id"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// apiError is the directory API's error envelope.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the directory/calendar/teams API. Authentication rides on
// the injected oauth transport, so every request carries a fresh app token.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	serviceUser string
	logger      logger.Logger
}

// NewClient creates a new Graph client. The http client is expected to carry
// the oauth transport so every request is authenticated.
func NewClient(cfg *config.Config, httpClient *http.Client, logger logger.Logger) *Client {
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(cfg.GraphBaseURL, "/"),
		serviceUser: cfg.GraphServiceUser,
		logger:      logger,
	}
}

// call issues one request against the API and retries throttled or transient
// failures. The caller owns the response body.
func (c *Client) call(ctx context.Context, method, endpoint string, payload interface{}) (*http.Response, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var resp *http.Response
	operation := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		r, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}

		if r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500 {
			r.Body.Close()
			return fmt.Errorf("graph returned status %d", r.StatusCode)
		}
		resp = r
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, decodeError(resp))
	}

	return resp, nil
}

// batch posts a set of sub-requests as one $batch call and returns the
// sub-responses keyed by their request id.
func (c *Client) batch(ctx context.Context, requests []batchRequest) (map[string]batchResponse, error) {
	payload := map[string]interface{}{"requests": requests}

	resp, err := c.call(ctx, http.MethodPost, "/$batch", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed struct {
		Responses []batchResponse `json:"responses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}

	responses := make(map[string]batchResponse, len(parsed.Responses))
	for _, r := range parsed.Responses {
		responses[r.ID] = r
	}
	return responses, nil
}

// decodeError pulls the error code and message out of a failed response body.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	var parsed apiError
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Code != "" {
		return fmt.Errorf("graph returned status %d (%s): %s", resp.StatusCode, parsed.Error.Code, parsed.Error.Message)
	}
	return fmt.Errorf("graph returned status %d: %s", resp.StatusCode, string(raw))
}

// subError pulls the error code out of a failed batch sub-response.
func subError(body json.RawMessage) (code, message string) {
	var parsed apiError
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Error.Code, parsed.Error.Message
	}
	return "", string(body)
}
