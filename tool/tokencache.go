package tool

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// TokenCache stores short-lived API tokens keyed by API name. It is injected
// into the OpenAPI auth resolver as an explicit dependency so tests can
// control expiry deterministically instead of relying on a process-global
// cache.
type TokenCache interface {
	// Get returns the cached token for the API, if present and unexpired.
	Get(apiName string) (string, bool)
	// Set stores a token with the given time to live.
	Set(apiName, token string, ttl time.Duration)
}

// RistrettoTokenCache implements TokenCache on a ristretto in-process cache.
type RistrettoTokenCache struct {
	cache *ristretto.Cache[string, string]
}

// NewRistrettoTokenCache creates a token cache sized for a modest number of
// APIs.
func NewRistrettoTokenCache() (*RistrettoTokenCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 1 << 10,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoTokenCache{cache: cache}, nil
}

// Get retrieves a token from the cache.
func (c *RistrettoTokenCache) Get(apiName string) (string, bool) {
	return c.cache.Get(apiName)
}

// Set stores a token with the given TTL. Writes are waited on so a token is
// visible to the request that refreshed it.
func (c *RistrettoTokenCache) Set(apiName, token string, ttl time.Duration) {
	c.cache.SetWithTTL(apiName, token, int64(len(token)), ttl)
	c.cache.Wait()
}

// Close shuts down the cache and releases resources.
func (c *RistrettoTokenCache) Close() { c.cache.Close() }
