package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	httputil "github.com/lepinkainen/tabskin/pkg/http"

	"github.com/lepinkainen/tabskin/pkg/errs"
)

// EnhancedClientConfig configures the enhanced HTTP client
type EnhancedClientConfig struct {
	BaseClient     *http.Client
	RateLimiter    RateLimiter
	RetryPolicy    *RetryPolicy
	UserAgent      string
	DefaultHeaders map[string]string
}

// EnhancedClient provides HTTP client functionality with rate limiting, retries, and standard headers
type EnhancedClient struct {
	client         *http.Client
	rateLimiter    RateLimiter
	retryPolicy    *RetryPolicy
	userAgent      string
	defaultHeaders map[string]string
}

// NewEnhancedClient creates a new enhanced HTTP client with the provided configuration
func NewEnhancedClient(config *EnhancedClientConfig) *EnhancedClient {
	if config.BaseClient == nil {
		config.BaseClient = &http.Client{Timeout: 30 * time.Second}
	}
	if config.RateLimiter == nil {
		config.RateLimiter = NewNoOpRateLimiter()
	}
	if config.RetryPolicy == nil {
		config.RetryPolicy = DefaultRetryPolicy()
	}
	if config.UserAgent == "" {
		config.UserAgent = "tabskin-proxy/1.0"
	}
	if config.DefaultHeaders == nil {
		config.DefaultHeaders = make(map[string]string)
	}

	return &EnhancedClient{
		client:         config.BaseClient,
		rateLimiter:    config.RateLimiter,
		retryPolicy:    config.RetryPolicy,
		userAgent:      config.UserAgent,
		defaultHeaders: config.DefaultHeaders,
	}
}

// GetBytes performs a GET with rate limiting and retries and returns the 2xx body
func (ec *EnhancedClient) GetBytes(ctx context.Context, url string, additionalHeaders map[string]string) ([]byte, error) {
	var body []byte

	operation := func(ctx context.Context) error {
		res, err := ec.do(ctx, url, additionalHeaders)
		if err != nil {
			return err
		}
		defer func() { _ = res.Body.Close() }()

		data, err := io.ReadAll(res.Body)
		if err != nil {
			return errs.Network(err, url)
		}

		body = data
		return nil
	}

	if err := ExecuteWithRetry(ctx, operation, ec.retryPolicy, "GET "+url); err != nil {
		return nil, err
	}
	return body, nil
}

// GetAndDecode performs a GET with rate limiting and retries and decodes the JSON body
func (ec *EnhancedClient) GetAndDecode(ctx context.Context, url string, target any, additionalHeaders map[string]string) error {
	body, err := ec.GetBytes(ctx, url, additionalHeaders)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errs.MalformedBody(err)
	}
	return nil
}

// do performs one rate-limited request and converts non-2xx statuses into HTTPError
func (ec *EnhancedClient) do(ctx context.Context, url string, additionalHeaders map[string]string) (*http.Response, error) {
	if err := ec.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", ec.userAgent)
	for key, value := range ec.defaultHeaders {
		req.Header.Set(key, value)
	}
	// Additional headers override defaults
	for key, value := range additionalHeaders {
		req.Header.Set(key, value)
	}

	start := time.Now()
	res, err := ec.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		ec.logAPICall(url, duration, false, err)
		return nil, errs.Network(err, url)
	}

	if !httputil.IsSuccess(res.StatusCode) {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		_ = res.Body.Close()
		httpErr := &HTTPError{StatusCode: res.StatusCode, Message: string(message)}
		ec.logAPICall(url, duration, false, httpErr)
		return nil, httpErr
	}

	ec.logAPICall(url, duration, true, nil)
	return res, nil
}

// CanProceed returns true if a request can be made without rate limiting delay
func (ec *EnhancedClient) CanProceed() bool {
	return ec.rateLimiter.CanProceed()
}

// logAPICall logs API call statistics
func (ec *EnhancedClient) logAPICall(url string, duration time.Duration, success bool, err error) {
	status := "success"
	if !success {
		status = "failure"
	}

	fields := []any{
		"url", url,
		"duration", duration,
		"status", status,
	}

	if err != nil {
		fields = append(fields, "error", err)
	}

	if success {
		slog.Debug("API call completed", fields...)
	} else {
		slog.Warn("API call failed", fields...)
	}
}

// NewUnsplashClient creates an enhanced client for the Unsplash API authenticated with an access key
func NewUnsplashClient(baseClient *http.Client, accessKey string, limiter RateLimiter) *EnhancedClient {
	return NewEnhancedClient(&EnhancedClientConfig{
		BaseClient:  baseClient,
		RateLimiter: limiter,
		RetryPolicy: ConservativeRetryPolicy(),
		DefaultHeaders: map[string]string{
			"Accept":         "application/json",
			"Accept-Version": "v1",
			"Authorization":  "Client-ID " + accessKey,
		},
	})
}
