package cache

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time.Now so cache expiry is testable without sleeping.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock returns a Clock backed by the wall clock.
func RealClock() Clock { return realClock{} }

// TTL is a single-value get-or-refresh cache. A stale value is refreshed via
// the loader passed to Get; on loader failure the previous value is served if
// one exists.
type TTL[V any] struct {
	mu        sync.Mutex
	value     V
	loaded    bool
	fetchedAt time.Time
	ttl       time.Duration
	clock     Clock
}

func NewTTL[V any](ttl time.Duration, clock Clock) *TTL[V] {
	if clock == nil {
		clock = RealClock()
	}
	return &TTL[V]{ttl: ttl, clock: clock}
}

func (c *TTL[V]) Get(ctx context.Context, load func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.loaded && now.Sub(c.fetchedAt) < c.ttl {
		return c.value, nil
	}

	fresh, err := load(ctx)
	if err != nil {
		if c.loaded {
			return c.value, nil
		}
		var zero V
		return zero, err
	}

	c.value = fresh
	c.loaded = true
	c.fetchedAt = now
	return c.value, nil
}

func (c *TTL[V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
}
