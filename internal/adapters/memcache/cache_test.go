package memcache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"estate_assistant/internal/adapters/memcache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type payload struct {
	Items []string `json:"items"`
}

func TestCache_TTLWindow(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := memcache.New(clk)
	ctx := context.Background()

	if err := c.Set(ctx, "k", payload{Items: []string{"a"}}, 10*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	// hit at T
	var got payload
	if ok, err := c.Get(ctx, "k", &got); !ok || err != nil {
		t.Fatalf("expected hit at T, ok=%v err=%v", ok, err)
	}

	// hit just before T+D
	clk.Advance(10*time.Minute - time.Nanosecond)
	if ok, _ := c.Get(ctx, "k", &got); !ok {
		t.Fatalf("expected hit just before expiry")
	}

	// miss at exactly T+D
	clk.Advance(time.Nanosecond)
	if ok, _ := c.Get(ctx, "k", &got); ok {
		t.Fatalf("expected miss at T+D")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should have been dropped on read")
	}
}

func TestCache_LastWriteWins(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := memcache.New(clk)
	ctx := context.Background()

	_ = c.Set(ctx, "k", payload{Items: []string{"old"}}, time.Minute)
	clk.Advance(50 * time.Second)
	_ = c.Set(ctx, "k", payload{Items: []string{"new"}}, time.Minute)
	clk.Advance(50 * time.Second) // old entry would have expired by now

	var got payload
	if ok, _ := c.Get(ctx, "k", &got); !ok || got.Items[0] != "new" {
		t.Fatalf("expected overwritten entry, got ok=%v %+v", ok, got)
	}
	if c.Len() != 1 {
		t.Fatalf("expected a single slot per key, got %d", c.Len())
	}
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := memcache.New(nil)
	ctx := context.Background()

	in := payload{Items: []string{"a"}}
	_ = c.Set(ctx, "k", in, time.Minute)
	in.Items[0] = "mutated"

	var got payload
	_, _ = c.Get(ctx, "k", &got)
	if got.Items[0] != "a" {
		t.Fatalf("cached value aliased caller memory: %+v", got)
	}
}

func TestCache_KeysAndDel(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := memcache.New(clk)
	ctx := context.Background()

	_ = c.Set(ctx, "properties_all_Pune_2,3_x", 1, time.Minute)
	_ = c.Set(ctx, "properties_all_Mumbai_2,3_x", 1, time.Minute)
	_ = c.Set(ctx, "properties_housing_Pune_2_x", 1, time.Second)
	_ = c.Set(ctx, "other", 1, time.Minute)

	clk.Advance(2 * time.Second)
	keys, _ := c.Keys(ctx, "properties_")
	if len(keys) != 2 || keys[0] != "properties_all_Mumbai_2,3_x" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	_ = c.Del(ctx, keys[0])
	keys, _ = c.Keys(ctx, "properties_")
	if len(keys) != 1 {
		t.Fatalf("expected one key after delete, got %v", keys)
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := memcache.New(nil)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Set(ctx, "shared", i, time.Minute)
			var v int
			_, _ = c.Get(ctx, "shared", &v)
		}(i)
	}
	wg.Wait()
	if c.Len() != 1 {
		t.Fatalf("expected one entry, got %d", c.Len())
	}
}
