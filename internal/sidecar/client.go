// Package sidecar talks to recognizers that run out of process behind a
// small HTTP endpoint: the image is POSTed as PNG and the backend's native
// JSON payload comes back.
package sidecar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/MeKo-Tech/bubbleocr/internal/engine/lens"
	"github.com/MeKo-Tech/bubbleocr/internal/engine/oneocr"
	"github.com/MeKo-Tech/bubbleocr/internal/utils"
)

// Defaults for Client.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
)

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sidecar returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("sidecar returned %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// Temporary reports whether retrying may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Client posts images to one endpoint.
type Client struct {
	endpoint   string
	http       *http.Client
	maxRetries uint64
	interval   time.Duration
	query      url.Values
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-attempt timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithMaxRetries sets how often a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = uint64(n)
		}
	}
}

// WithInitialInterval sets the first backoff delay.
func WithInitialInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithQuery adds a query parameter to every request.
func WithQuery(key, value string) Option {
	return func(c *Client) {
		if value != "" {
			c.query.Set(key, value)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Client for endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid sidecar endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid sidecar endpoint %q: scheme must be http or https", endpoint)
	}
	c := &Client{
		endpoint:   endpoint,
		http:       &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		interval:   backoff.DefaultInitialInterval,
		query:      url.Values{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.query) > 0 {
		q := u.Query()
		for k, v := range c.query {
			q[k] = v
		}
		u.RawQuery = q.Encode()
		c.endpoint = u.String()
	}
	return c, nil
}

// Endpoint returns the request URL including query parameters.
func (c *Client) Endpoint() string { return c.endpoint }

// Post encodes img as PNG, sends it and decodes the JSON response into out.
// Network errors, 5xx and 429 are retried with exponential backoff; other
// statuses fail immediately.
func (c *Client) Post(ctx context.Context, img image.Image, out any) error {
	body, err := utils.EncodePNG(img)
	if err != nil {
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.interval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)

	attempt := 0
	payload, err := backoff.RetryWithData(func() ([]byte, error) {
		attempt++
		data, err := c.do(ctx, body)
		if err == nil {
			return data, nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return nil, backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		c.logger.Warn("sidecar request failed", "endpoint", c.endpoint, "attempt", attempt, "error", err)
		return nil, err
	}, policy)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode sidecar response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(truncate(data, 512)))}
	}
	return data, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// LensClient implements lens.Client over a sidecar.
type LensClient struct{ *Client }

// Process implements lens.Client.
func (c LensClient) Process(ctx context.Context, img image.Image) (*lens.Response, error) {
	var resp lens.Response
	if err := c.Post(ctx, img, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LineRecognizer implements oneocr.LineRecognizer over a sidecar.
type LineRecognizer struct{ *Client }

// RecognizeChunk implements oneocr.LineRecognizer.
func (c LineRecognizer) RecognizeChunk(ctx context.Context, chunk image.Image) (*oneocr.Result, error) {
	var res oneocr.Result
	if err := c.Post(ctx, chunk, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
