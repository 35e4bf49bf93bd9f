package proxy

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultQuery is used when a request names no query
const DefaultQuery = "wallpapers"

// CacheKey normalizes a query into its cache key
func CacheKey(query string) string {
	return strings.ToLower(NormalizeQuery(query))
}

// NormalizeQuery trims query and substitutes the default when it is blank
func NormalizeQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return DefaultQuery
	}
	return query
}

// photoCache keeps one upstream payload per normalized query for a fixed TTL
type photoCache struct {
	lru *expirable.LRU[string, []byte]
}

func newPhotoCache(size int, ttl time.Duration) *photoCache {
	return &photoCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *photoCache) Get(key string) ([]byte, bool) {
	body, ok := c.lru.Get(key)
	if ok {
		cacheHitsTotal.Inc()
		return body, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

func (c *photoCache) Set(key string, body []byte) {
	c.lru.Add(key, body)
}

func (c *photoCache) Len() int {
	return c.lru.Len()
}
