package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/reelhouse/reelhouse/internal/config"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := newRedisCacheWithClient(client, zerolog.Nop())
	t.Cleanup(func() { _ = c.Close() })

	return mr, c
}

func TestRedisCache_SetGet(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "search:heat:1", []byte(`{"total":1}`), time.Hour)

	val, ok := c.Get(ctx, "search:heat:1")
	if !ok {
		t.Fatal("expected value to be found")
	}
	if string(val) != `{"total":1}` {
		t.Errorf("unexpected value %s", val)
	}

	if !mr.Exists("reelhouse:search:heat:1") {
		t.Error("expected key to be stored with prefix")
	}

	stats := c.Stats()
	if stats.Backend != "redis" || stats.Sets != 1 || stats.Hits != 1 || stats.Size != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRedisCache_GetMissing(t *testing.T) {
	_, c := setupMiniRedis(t)

	val, ok := c.Get(context.Background(), "nonexistent")
	if ok {
		t.Error("expected value to not be found")
	}
	if val != nil {
		t.Errorf("expected nil value, got %v", val)
	}
	if c.Stats().Misses != 1 {
		t.Errorf("expected 1 miss, got %d", c.Stats().Misses)
	}
}

func TestRedisCache_Expiration(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "key", []byte("v"), time.Minute)
	mr.FastForward(2 * time.Minute)

	if _, ok := c.Get(ctx, "key"); ok {
		t.Error("expected key to be expired")
	}
}

func TestRedisCache_Delete(t *testing.T) {
	_, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "key", []byte("v"), time.Minute)
	c.Delete(ctx, "key")

	if _, ok := c.Get(ctx, "key"); ok {
		t.Error("expected key to be deleted")
	}
}

func TestRedisCache_ServerDown(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	mr.Close()

	c.Set(ctx, "key", []byte("v"), time.Minute)
	if _, ok := c.Get(ctx, "key"); ok {
		t.Error("expected miss while Redis is down")
	}
	if err := c.HealthCheck(ctx); err == nil {
		t.Error("expected health check to fail")
	}
}

func TestNew_UsesRedisWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)

	c := New(config.CacheConfig{Redis: config.RedisConfig{Addr: mr.Addr()}}, zerolog.Nop())
	defer c.Close()

	if _, ok := c.(*RedisCache); !ok {
		t.Errorf("expected *RedisCache, got %T", c)
	}
}

func TestNew_FallsBackToMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	c := New(config.CacheConfig{TTL: time.Minute, Redis: config.RedisConfig{Addr: addr}}, zerolog.Nop())
	defer c.Close()

	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("expected *MemoryCache, got %T", c)
	}
}

func TestNew_MemoryWithoutRedis(t *testing.T) {
	c := New(config.CacheConfig{}, zerolog.Nop())
	defer c.Close()

	if c.Stats().Backend != "memory" {
		t.Errorf("expected memory backend, got %s", c.Stats().Backend)
	}
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	mem := NewMemoryCache(MemoryConfig{})
	defer mem.Close()
	if err := Check(ctx, mem); err != nil {
		t.Errorf("Check(memory) = %v, want nil", err)
	}

	mr, rc := setupMiniRedis(t)
	if err := Check(ctx, rc); err != nil {
		t.Errorf("Check(redis) = %v, want nil", err)
	}

	mr.Close()
	if err := Check(ctx, rc); err == nil {
		t.Error("Check(redis) = nil after server stopped")
	}
}
