package secretcache

import (
	"context"
	"sync"
	"time"
)

// FetchFunc retrieves the current secret from its source of truth.
type FetchFunc func(ctx context.Context) (string, error)

// Cache holds a single secret in process memory with a TTL so rotation at the
// source is picked up without a restart. The clock is injectable for tests.
type Cache struct {
	mu        sync.Mutex
	value     string
	fetchedAt time.Time

	ttl   time.Duration
	fetch FetchFunc
	now   func() time.Time
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func New(ttl time.Duration, fetch FetchFunc, opts ...Option) *Cache {
	c := &Cache{
		ttl:   ttl,
		fetch: fetch,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached secret, refetching when the cached value has
// expired or was never loaded.
func (c *Cache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.value != "" && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.value, nil
	}

	value, err := c.fetch(ctx)
	if err != nil {
		// Serve the stale value if we have one; a control-API blip must not
		// reject otherwise-valid webhooks.
		if c.value != "" {
			return c.value, nil
		}
		return "", err
	}

	c.value = value
	c.fetchedAt = c.now()
	return c.value, nil
}

// Invalidate drops the cached value so the next Get refetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = ""
	c.fetchedAt = time.Time{}
}
