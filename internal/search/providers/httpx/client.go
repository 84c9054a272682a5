// Package httpx is the outbound HTTP client shared by the external catalog
// providers: request timeout, User-Agent, rate limiting and bounded retries.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrRateLimited      = errors.New("rate limited by upstream")
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 1
	defaultBackoff    = 200 * time.Millisecond
	// Upstream error bodies are read only for logging.
	maxErrorBody = 512
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond limits outbound requests. Zero disables limiting.
	RequestsPerSecond float64
	MaxRetries        int
	Backoff           time.Duration
	HTTPClient        *http.Client
}

// Client performs GET requests against one upstream host.
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     zerolog.Logger
}

// New creates a client.
func New(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	} else if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		httpClient: httpClient,
		userAgent:  opts.UserAgent,
		limiter:    limiter,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
	}
}

// GetJSON fetches endpoint with params and decodes a JSON body into v.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, v interface{}) error {
	resp, err := c.Get(ctx, endpoint, params, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Get fetches endpoint with params. Non-2xx responses are returned as errors
// wrapping ErrUnexpectedStatus or ErrRateLimited; the caller closes the body
// of a successful response.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, accept string) (*http.Response, error) {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, c.backoff*time.Duration(1<<(attempt-1))); err != nil {
				return nil, err
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.do(ctx, reqURL, accept)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !shouldRetry(ctx, err) {
			break
		}
		c.logger.Debug().Err(err).Str("url", endpoint).Int("attempt", attempt+1).Msg("Retrying request")
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context, reqURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Str("body", string(body)).
		Msg("Upstream returned error status")

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	return nil, &StatusError{Code: resp.StatusCode}
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %d", ErrUnexpectedStatus, e.Code)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Only transport errors and 5xx responses are retried, and never after the
// caller's context is done.
func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError
	}
	return !errors.Is(err, ErrRateLimited)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
