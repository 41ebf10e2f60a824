// Package cache is a TTL-keyed in-memory store for normalized extraction
// results. It is safe for concurrent use.
package cache

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/prodex/models"
)

// entry holds a cached product with its expiry deadline.
type entry struct {
	product   *models.NormalizedProduct
	expiresAt time.Time
}

// Cache stores normalized products keyed by canonical URL. Expired
// entries are evicted lazily on read and by a periodic background sweep.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	defaultTTL time.Duration
	now        func() time.Time
	done       chan struct{}
}

// New creates a Cache with the given default TTL and starts the
// background sweep goroutine.
func New(defaultTTL time.Duration) *Cache {
	c := NewWithClock(defaultTTL, time.Now)
	go c.sweepLoop(time.Minute)
	return c
}

// NewWithClock creates a Cache with an injected clock and no background
// sweep. Tests drive expiry deterministically through the clock and may
// call Sweep directly.
func NewWithClock(defaultTTL time.Duration, now func() time.Time) *Cache {
	return &Cache{
		store:      make(map[string]*entry),
		defaultTTL: defaultTTL,
		now:        now,
		done:       make(chan struct{}),
	}
}

// Key canonicalizes a URL into a cache key: lowercased, scheme and host
// case-normalized, one trailing slash stripped. Falls back to the raw
// string when the URL does not parse.
func Key(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	s := strings.TrimSuffix(u.String(), "/")
	return strings.ToLower(s)
}

// Get returns the cached product for key, or nil on a miss. A stale
// entry is evicted and reported as a miss; stale data is never served.
func (c *Cache) Get(key string) *models.NormalizedProduct {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, ok := c.store[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.store, key)
		}
		c.mu.Unlock()
		return nil
	}
	return e.product
}

// Set stores a product under key. A non-positive ttl uses the default.
func (c *Cache) Set(key string, p *models.NormalizedProduct, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.store[key] = &entry{product: p, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Sweep removes every expired entry. Called periodically by the
// background loop and directly by tests.
func (c *Cache) Sweep() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}

// Len reports the number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop terminates the background sweep goroutine.
func (c *Cache) Stop() {
	close(c.done)
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
