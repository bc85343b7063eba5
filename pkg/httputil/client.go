package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

// httpTimeout bounds every registry request.
const httpTimeout = 10 * time.Second

// Client performs JSON GET requests against a registry, applying
// optional basic-auth credentials to every request.
type Client struct {
	http     *http.Client
	username string
	password string
}

// NewClient creates a Client. Empty credentials disable basic auth.
func NewClient(username, password string) *Client {
	return &Client{
		http:     &http.Client{Timeout: httpTimeout},
		username: username,
		password: password,
	}
}

// GetJSON performs an HTTP GET and decodes the JSON response into v.
// Transport failures and 5xx responses come back wrapped as
// [RetryableError] so callers can retry them.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid request url %s", url)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Retryable(apperrors.Wrap(apperrors.ErrCodeNetwork, err, "request %s failed", url))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode, url); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "cannot decode response from %s", url)
	}
	return nil
}

func checkStatus(code int, url string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return apperrors.New(apperrors.ErrCodeNotFound, "resource not found: %s", url)
	case code == http.StatusTooManyRequests:
		return Retryable(apperrors.New(apperrors.ErrCodeRateLimited, "rate limited by %s", url))
	case code >= 500:
		return Retryable(apperrors.New(apperrors.ErrCodeNetwork, "status %d from %s", code, url))
	default:
		return apperrors.New(apperrors.ErrCodeNetwork, "status %d from %s", code, url)
	}
}
