// Package cache holds the search response cache: an in-memory TTL store, a
// Redis store, and a Searcher wrapper that serves repeated queries from them.
package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelhouse/reelhouse/internal/config"
)

// Cache stores encoded values with a TTL. Implementations log their own
// backend failures and report them as misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Stats() Stats
	Close() error
}

// HealthChecker is implemented by caches that depend on a remote server.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check reports whether c can serve requests. In-process caches are always healthy.
func Check(ctx context.Context, c Cache) error {
	if hc, ok := c.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Stats reports cache activity since creation.
type Stats struct {
	Backend string `json:"backend"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Sets    int64  `json:"sets"`
	Size    int    `json:"size"`
}

// New returns a Redis cache when an address is configured and reachable,
// otherwise an in-memory cache.
func New(cfg config.CacheConfig, logger zerolog.Logger) Cache {
	log := logger.With().Str("component", "cache").Logger()

	if cfg.Redis.Addr != "" {
		rc, err := NewRedisCache(cfg.Redis, log)
		if err == nil {
			return rc
		}
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, falling back to in-memory cache")
	}

	log.Info().Int("maxItems", cfg.MaxItems).Msg("Using in-memory cache")
	return NewMemoryCache(MemoryConfig{TTL: cfg.TTL, MaxItems: cfg.MaxItems})
}
