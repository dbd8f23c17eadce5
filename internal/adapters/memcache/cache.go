// Package memcache is the process-wide in-memory cache backend: one slot per
// key, last write wins, expired entries are dropped lazily on read.
package memcache

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"estate_assistant/internal/adapters/observability"
	"estate_assistant/internal/domain"
)

type item struct {
	payload  []byte
	storedAt time.Time
	ttl      time.Duration // <= 0 never expires
}

func (it item) expired(now time.Time) bool {
	return it.ttl > 0 && now.Sub(it.storedAt) >= it.ttl
}

type Cache struct {
	mu    sync.Mutex
	items map[string]item
	clock domain.Clock
}

func New(clock domain.Clock) *Cache {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Cache{items: make(map[string]item), clock: clock}
}

func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	it, ok := c.items[key]
	if ok && it.expired(c.clock.Now()) {
		delete(c.items, key)
		c.mu.Unlock()
		observability.ObserveCache("memory", "expired")
		return false, nil
	}
	c.mu.Unlock()

	if !ok {
		observability.ObserveCache("memory", "miss")
		return false, nil
	}
	observability.ObserveCache("memory", "hit")
	// values are stored encoded so callers never share backing arrays
	return true, json.Unmarshal(it.payload, dst)
}

func (c *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[key] = item{payload: b, storedAt: c.clock.Now(), ttl: ttl}
	c.mu.Unlock()
	observability.ObserveCache("memory", "set")
	return nil
}

func (c *Cache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	observability.ObserveCache("memory", "del")
	return nil
}

// Keys lists live keys with the given prefix in sorted order.
func (c *Cache) Keys(ctx context.Context, prefix string) ([]string, error) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
			continue
		}
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
