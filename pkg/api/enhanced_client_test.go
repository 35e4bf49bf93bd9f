package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lepinkainen/tabskin/pkg/errs"
)

func testPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       2,
		InitialBackoff:    5 * time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
		RetryableErrors:   []int{http.StatusInternalServerError},
	}
}

func TestNewEnhancedClient(t *testing.T) {
	tests := []struct {
		name   string
		config *EnhancedClientConfig
		want   func(*EnhancedClient) bool
	}{
		{
			name:   "empty config gets defaults",
			config: &EnhancedClientConfig{},
			want: func(ec *EnhancedClient) bool {
				return ec.client.Timeout == 30*time.Second &&
					ec.userAgent == "tabskin-proxy/1.0" &&
					ec.rateLimiter != nil &&
					ec.retryPolicy != nil &&
					ec.defaultHeaders != nil
			},
		},
		{
			name: "custom config preserved",
			config: &EnhancedClientConfig{
				BaseClient:  &http.Client{Timeout: 5 * time.Second},
				RateLimiter: NewTokenBucketRateLimiter(1, 2*time.Second),
				UserAgent:   "CustomAgent/1.0",
				DefaultHeaders: map[string]string{
					"Accept": "application/json",
				},
			},
			want: func(ec *EnhancedClient) bool {
				return ec.client.Timeout == 5*time.Second &&
					ec.userAgent == "CustomAgent/1.0" &&
					ec.defaultHeaders["Accept"] == "application/json"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewEnhancedClient(tt.config)
			if !tt.want(got) {
				t.Errorf("NewEnhancedClient() validation failed")
			}
		})
	}
}

func TestEnhancedClient_GetAndDecode(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		headers        map[string]string
		wantErr        bool
		errCheck       func(error) bool
		wantMessage    string
	}{
		{
			name: "successful JSON decode",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "success"})
			},
			wantMessage: "success",
		},
		{
			name: "server error is retried then reported",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("Server Error"))
			},
			wantErr: true,
			errCheck: func(err error) bool {
				var httpErr *HTTPError
				return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusInternalServerError
			},
		},
		{
			name: "invalid JSON is a malformed response",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("invalid json"))
			},
			wantErr:  true,
			errCheck: errs.IsMalformed,
		},
		{
			name: "custom headers are set",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("X-Custom-Header") != "test-value" {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "received"})
			},
			headers:     map[string]string{"X-Custom-Header": "test-value"},
			wantMessage: "received",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			client := NewEnhancedClient(&EnhancedClientConfig{
				RetryPolicy: testPolicy(),
				RateLimiter: NewNoOpRateLimiter(),
			})

			var target map[string]string
			err := client.GetAndDecode(context.Background(), server.URL, &target, tt.headers)

			if (err != nil) != tt.wantErr {
				t.Fatalf("GetAndDecode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.errCheck != nil && !tt.errCheck(err) {
				t.Errorf("GetAndDecode() error = %v has the wrong kind", err)
			}
			if !tt.wantErr && target["message"] != tt.wantMessage {
				t.Errorf("message = %q, want %q", target["message"], tt.wantMessage)
			}
		})
	}
}

func TestEnhancedClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":"yes"}`))
	}))
	defer server.Close()

	client := NewEnhancedClient(&EnhancedClientConfig{RetryPolicy: testPolicy()})

	body, err := client.GetBytes(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("GetBytes() error = %v", err)
	}
	if string(body) != `{"ok":"yes"}` {
		t.Errorf("body = %q", body)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestEnhancedClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewEnhancedClient(&EnhancedClientConfig{RetryPolicy: testPolicy()})

	if _, err := client.GetBytes(context.Background(), server.URL, nil); err == nil {
		t.Fatal("GetBytes() expected error for 401")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestNewUnsplashClient(t *testing.T) {
	var gotAuth, gotVersion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Accept-Version")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewUnsplashClient(nil, "secret", NewNoOpRateLimiter())

	if _, err := client.GetBytes(context.Background(), server.URL, nil); err != nil {
		t.Fatalf("GetBytes() error = %v", err)
	}
	if gotAuth != "Client-ID secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotVersion != "v1" {
		t.Errorf("Accept-Version = %q", gotVersion)
	}
}

func TestEnhancedClient_CanProceed(t *testing.T) {
	client := NewEnhancedClient(&EnhancedClientConfig{
		RateLimiter: NewHourlyRateLimiter(1),
	})

	if !client.CanProceed() {
		t.Fatal("fresh limiter should allow a call")
	}
	if err := client.rateLimiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if client.CanProceed() {
		t.Error("limiter should be exhausted after one call")
	}
}
