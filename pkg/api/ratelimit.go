package api

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter defines the interface for rate limiting implementations
type RateLimiter interface {
	// Wait blocks until it's safe to make another API call or ctx is done
	Wait(ctx context.Context) error
	// CanProceed returns true if a request can be made without waiting
	CanProceed() bool
}

// TokenBucketRateLimiter is a token bucket backed by golang.org/x/time/rate
type TokenBucketRateLimiter struct {
	limiter *rate.Limiter
}

// NewTokenBucketRateLimiter allows bursts of maxTokens with one token refilled every refillRate
func NewTokenBucketRateLimiter(maxTokens int, refillRate time.Duration) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		limiter: rate.NewLimiter(rate.Every(refillRate), maxTokens),
	}
}

// NewHourlyRateLimiter allows perHour calls per hour, all of which may be spent at once
func NewHourlyRateLimiter(perHour int) *TokenBucketRateLimiter {
	if perHour < 1 {
		perHour = 1
	}
	return NewTokenBucketRateLimiter(perHour, time.Hour/time.Duration(perHour))
}

// Wait blocks until a token is available
func (rl *TokenBucketRateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// CanProceed returns true if a token is available right now
func (rl *TokenBucketRateLimiter) CanProceed() bool {
	return rl.limiter.Tokens() >= 1
}

// NoOpRateLimiter implements the RateLimiter interface but performs no rate limiting
type NoOpRateLimiter struct{}

// NewNoOpRateLimiter creates a rate limiter that performs no limiting
func NewNoOpRateLimiter() *NoOpRateLimiter {
	return &NoOpRateLimiter{}
}

// Wait does nothing (no rate limiting)
func (rl *NoOpRateLimiter) Wait(context.Context) error {
	return nil
}

// CanProceed always returns true (no rate limiting)
func (rl *NoOpRateLimiter) CanProceed() bool {
	return true
}
