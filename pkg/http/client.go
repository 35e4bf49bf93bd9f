package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	platformerrors "github.com/jmgilman/go/errors"

	"github.com/lepinkainen/tabskin/pkg/errs"
)

// ClientConfig represents HTTP client configuration
type ClientConfig struct {
	// Timeout bounds each individual attempt, not the whole call
	Timeout time.Duration
	// MaxRetries is the total number of attempts made for one call
	MaxRetries int
	// RetryBackoff is the base delay; attempt n waits RetryBackoff*n before the next try
	RetryBackoff time.Duration
	UserAgent    string
	Headers      map[string]string
	// Transport overrides the round tripper, mostly for tests
	Transport http.RoundTripper
}

// DefaultConfig returns default HTTP client configuration
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 1 * time.Second,
		UserAgent:    "tabskin/1.0",
		Headers:      make(map[string]string),
	}
}

// Client is an HTTP client with per-attempt timeouts and linear retry backoff
type Client struct {
	client *http.Client
	config *ClientConfig
}

// NewClient creates a new HTTP client with the given configuration
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	return &Client{
		client: &http.Client{Transport: config.Transport},
		config: config,
	}
}

// GetWithContext performs an HTTP GET request with the configured retry count
func (c *Client) GetWithContext(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	return c.Fetch(req, c.config.MaxRetries)
}

// Fetch performs req up to maxRetries times.
//
// Only thrown failures (connection errors and attempt timeouts) are retried. Any
// response, whatever its status, is returned as-is. When every attempt fails the
// last error is returned.
func (c *Client) Fetch(req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	ctx := req.Context()
	url := req.URL.String()

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		resp, err := c.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !platformerrors.IsRetryable(err) || attempt == maxRetries {
			break
		}

		delay := c.config.RetryBackoff * time.Duration(attempt)
		slog.Debug("Retrying request",
			"url", url,
			"attempt", attempt,
			"maxAttempts", maxRetries,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

// attempt runs one bounded try. The attempt's deadline stays attached to the
// returned body and is released when the body is closed.
func (c *Client) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)

	attemptReq := req.Clone(attemptCtx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		attemptReq.Body = body
	}

	resp, err := c.client.Do(attemptReq)
	if err != nil {
		cancel()
		url := req.URL.String()
		switch {
		case ctx.Err() != nil:
			// Caller gave up; not something a retry can fix
			return nil, ctx.Err()
		case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
			return nil, errs.Timeout(err, url)
		default:
			return nil, errs.Network(err, url)
		}
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases an attempt context once the body is done with
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// IsSuccess reports whether status is a 2xx code
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
