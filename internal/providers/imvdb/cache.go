package imvdb

import (
	"sync"
	"time"
)

// responseCache is a TTL cache of raw response bodies keyed by request
// URL. A hit is served without touching the network, and therefore
// without charging the service's rate budget.
type responseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	body    []byte
	expires time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *responseCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	body := make([]byte, len(e.body))
	copy(body, e.body)
	return body, true
}

func (c *responseCache) set(key string, body []byte) {
	stored := make([]byte, len(body))
	copy(stored, body)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{body: stored, expires: c.now().Add(c.ttl)}
}
