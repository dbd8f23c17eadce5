package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	redisad "estate_assistant/internal/adapters/redis"
)

type envelope struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_SetGetExpire(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "properties_all_Pune_2,3_x", envelope{City: "Pune", Count: 4}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got envelope
	ok, err := c.Get(ctx, "properties_all_Pune_2,3_x", &got)
	if err != nil || !ok || got.City != "Pune" || got.Count != 4 {
		t.Fatalf("expected hit, ok=%v err=%v got=%+v", ok, err, got)
	}

	mr.FastForward(time.Minute)
	ok, err = c.Get(ctx, "properties_all_Pune_2,3_x", &got)
	if err != nil || ok {
		t.Fatalf("expected miss after ttl, ok=%v err=%v", ok, err)
	}
}

func TestRedisCache_KeysAndDel(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	for _, k := range []string{"properties_all_Pune_2_x", "properties_housing_Mumbai_3_x", "news_5"} {
		if err := c.Set(ctx, k, envelope{}, time.Minute); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	keys, err := c.Keys(ctx, "properties_")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "properties_all_Pune_2_x" {
		t.Fatalf("unexpected keys %v", keys)
	}

	if err := c.Del(ctx, keys[1]); err != nil {
		t.Fatalf("del: %v", err)
	}
	keys, _ = c.Keys(ctx, "properties_")
	if len(keys) != 1 {
		t.Fatalf("expected 1 key after del, got %v", keys)
	}
}

func TestRedisCache_Ping(t *testing.T) {
	c, _ := newCache(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
