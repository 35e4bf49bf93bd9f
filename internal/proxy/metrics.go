package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tabskin_proxy_cache_hits_total",
		Help: "Photo requests answered from the query cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tabskin_proxy_cache_misses_total",
		Help: "Photo requests that missed the query cache.",
	})
	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tabskin_proxy_rate_limited_total",
		Help: "Requests rejected by the per-client limit.",
	})
	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabskin_proxy_upstream_errors_total",
		Help: "Failed calls to the photo service.",
	}, []string{"operation"})
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabskin_proxy_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "status"})
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tabskin_proxy_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)
