package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/lepinkainen/tabskin/pkg/errs"
)

func TestRetryPolicy_CalculateBackoff(t *testing.T) {
	policy := &RetryPolicy{
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{attempt: 0, expected: 0},
		{attempt: 1, expected: 100 * time.Millisecond},
		{attempt: 2, expected: 200 * time.Millisecond},
		{attempt: 3, expected: 400 * time.Millisecond},
		{attempt: 5, expected: 1 * time.Second}, // capped
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := policy.CalculateBackoff(tt.attempt); got != tt.expected {
				t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestRetryPolicy_IsRetryableError(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error is not retryable", err: nil, expected: false},
		{
			name:     "HTTP 500 error is retryable",
			err:      &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Server Error"},
			expected: true,
		},
		{
			name:     "HTTP 429 error is retryable",
			err:      &HTTPError{StatusCode: http.StatusTooManyRequests, Message: "Rate Limited"},
			expected: true,
		},
		{
			name:     "HTTP 404 error is not retryable",
			err:      &HTTPError{StatusCode: http.StatusNotFound, Message: "Not Found"},
			expected: false,
		},
		{
			name:     "wrapped HTTP 503 error is retryable",
			err:      fmt.Errorf("upstream: %w", &HTTPError{StatusCode: http.StatusServiceUnavailable}),
			expected: true,
		},
		{
			name:     "network error is retryable",
			err:      errs.Network(errors.New("connection refused"), "http://upstream"),
			expected: true,
		},
		{
			name:     "malformed response is not retryable",
			err:      errs.Malformed("urls.full"),
			expected: false,
		},
		{name: "generic error is not retryable", err: errors.New("generic error"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.IsRetryableError(tt.err); got != tt.expected {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRetryPolicy_IsRateLimitError(t *testing.T) {
	policy := DefaultRetryPolicy()

	if !policy.IsRateLimitError(&HTTPError{StatusCode: http.StatusTooManyRequests}) {
		t.Error("429 should be a rate limit error")
	}
	if policy.IsRateLimitError(&HTTPError{StatusCode: http.StatusInternalServerError}) {
		t.Error("500 should not be a rate limit error")
	}
	if policy.IsRateLimitError(nil) {
		t.Error("nil should not be a rate limit error")
	}
}

func TestHTTPError_Error(t *testing.T) {
	err := &HTTPError{StatusCode: 404, Message: "Not Found"}
	if got := err.Error(); got != "HTTP 404: Not Found" {
		t.Errorf("Error() = %q", got)
	}
}

func TestExecuteWithRetry(t *testing.T) {
	fast := func(codes ...int) *RetryPolicy {
		return &RetryPolicy{
			MaxAttempts:       3,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        5 * time.Millisecond,
			BackoffMultiplier: 2.0,
			RetryableErrors:   codes,
		}
	}

	tests := []struct {
		name             string
		failures         int
		failWith         error
		policy           *RetryPolicy
		wantErr          bool
		expectedAttempts int
	}{
		{
			name:             "successful operation on first attempt",
			policy:           fast(),
			expectedAttempts: 1,
		},
		{
			name:             "operation fails with non-retryable error",
			failures:         10,
			failWith:         &HTTPError{StatusCode: http.StatusNotFound, Message: "Not Found"},
			policy:           fast(http.StatusInternalServerError),
			wantErr:          true,
			expectedAttempts: 1,
		},
		{
			name:             "operation succeeds after retries",
			failures:         2,
			failWith:         &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Server Error"},
			policy:           fast(http.StatusInternalServerError),
			expectedAttempts: 3,
		},
		{
			name:             "operation exhausts all retries",
			failures:         10,
			failWith:         &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Server Error"},
			policy:           fast(http.StatusInternalServerError),
			wantErr:          true,
			expectedAttempts: 3,
		},
		{
			name:             "rate limit error gets retried",
			failures:         1,
			failWith:         &HTTPError{StatusCode: http.StatusTooManyRequests, Message: "Rate Limited"},
			policy:           fast(http.StatusTooManyRequests),
			expectedAttempts: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			operation := func(context.Context) error {
				attempts++
				if attempts <= tt.failures {
					return tt.failWith
				}
				return nil
			}

			err := ExecuteWithRetry(context.Background(), operation, tt.policy, "test-operation")

			if (err != nil) != tt.wantErr {
				t.Errorf("ExecuteWithRetry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if attempts != tt.expectedAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.expectedAttempts)
			}
		})
	}
}

func TestExecuteWithRetry_OperationName(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts:     2,
		InitialBackoff:  1 * time.Millisecond,
		RetryableErrors: []int{http.StatusInternalServerError},
	}

	operation := func(context.Context) error {
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Server Error"}
	}

	err := ExecuteWithRetry(context.Background(), operation, policy, "test-operation")
	if err == nil {
		t.Fatal("ExecuteWithRetry() should have failed")
	}
	if !strings.Contains(err.Error(), "test-operation") {
		t.Errorf("Error message should contain operation name: %v", err.Error())
	}
}

func TestExecuteWithRetry_StopsOnCancel(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    time.Hour,
		MaxBackoff:        time.Hour,
		BackoffMultiplier: 1,
		RetryableErrors:   []int{http.StatusInternalServerError},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := ExecuteWithRetry(ctx, func(context.Context) error {
		return &HTTPError{StatusCode: http.StatusInternalServerError}
	}, policy, "slow")

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}
