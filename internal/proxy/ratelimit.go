package proxy

import (
	"net"
	"net/http"
	"strings"
	"time"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// clientLimiter applies a per-client hourly request budget. Idle clients are
// forgotten after an hour, when their bucket would be full again anyway.
type clientLimiter struct {
	clients *cache.Cache
	limit   rate.Limit
	burst   int
}

func newClientLimiter(perHour int) *clientLimiter {
	return &clientLimiter{
		clients: cache.New(time.Hour, 10*time.Minute),
		limit:   rate.Every(time.Hour / time.Duration(perHour)),
		burst:   perHour,
	}
}

func (l *clientLimiter) allow(ip string) bool {
	if v, ok := l.clients.Get(ip); ok {
		limiter := v.(*rate.Limiter)
		l.clients.SetDefault(ip, limiter)
		return limiter.Allow()
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	if err := l.clients.Add(ip, limiter, cache.DefaultExpiration); err != nil {
		// Lost a race with another request from the same client
		if v, ok := l.clients.Get(ip); ok {
			limiter = v.(*rate.Limiter)
		}
	}
	return limiter.Allow()
}

// Middleware rejects clients over budget with 429
func (l *clientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			rateLimitedTotal.Inc()
			writeError(w, http.StatusTooManyRequests,
				platformerrors.New(platformerrors.CodeRateLimit, "too many requests, try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if forwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
