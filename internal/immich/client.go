// Package immich implements the subset of the Immich server API the
// migration needs: asset upload, album management, and asset search.
package immich

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// HTTPDoer abstracts the HTTP client for testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to an Immich server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
	// uploadClient carries a longer timeout for multipart uploads.
	uploadClient HTTPDoer
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the client used for API calls.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = doer
		c.uploadClient = doer
	}
}

// NewClient creates an Immich API client. requestTimeout bounds normal
// API calls; uploadTimeout bounds asset uploads, which can carry
// multi-gigabyte video payloads.
func NewClient(baseURL, apiKey string, requestTimeout, uploadTimeout time.Duration, opts ...Option) *Client {
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	if uploadTimeout <= 0 {
		uploadTimeout = 600 * time.Second
	}
	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: requestTimeout},
		uploadClient: &http.Client{Timeout: uploadTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Checksum returns the base64-encoded SHA-1 digest Immich uses to
// identify asset contents.
func Checksum(data []byte) string {
	sum := sha1.Sum(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// retryRead retries idempotent read calls with exponential backoff.
// Mutating calls never go through here: a retried upload or album write
// could double-apply.
func (c *Client) retryRead(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(op, policy)
}

func drainBody(resp *http.Response) string {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func queryEscapePath(id string) string {
	return url.PathEscape(id)
}
