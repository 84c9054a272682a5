package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/reelhouse/reelhouse/internal/metrics"
	"github.com/reelhouse/reelhouse/internal/search"
)

// CachedSearcher serves aggregated pages from a Cache and collapses
// concurrent identical misses into one upstream search.
type CachedSearcher struct {
	next   search.Searcher
	cache  Cache
	ttl    time.Duration
	group  singleflight.Group
	logger zerolog.Logger
}

// NewCachedSearcher wraps next. A non-positive ttl uses the cache default.
func NewCachedSearcher(next search.Searcher, c Cache, ttl time.Duration, logger zerolog.Logger) *CachedSearcher {
	return &CachedSearcher{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger.With().Str("component", "search-cache").Logger(),
	}
}

// Key returns the cache key for a search.
func Key(query string, page int) string {
	return fmt.Sprintf("search:%s:%d", strings.TrimSpace(query), page)
}

// Search returns a cached page when one exists, otherwise delegates and caches
// the result. Errors are never cached.
func (s *CachedSearcher) Search(ctx context.Context, query string, page int) (*search.AggregatedPage, error) {
	if strings.TrimSpace(query) == "" || page < 1 || page > search.MaxPage {
		return s.next.Search(ctx, query, page)
	}

	key := Key(query, page)

	if cached, ok := s.lookup(ctx, key); ok {
		return cached, nil
	}

	// The shared search must not fail for every waiter when the first caller goes away.
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		result, err := s.next.Search(context.WithoutCancel(ctx), query, page)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(result)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to encode search result")
			return result, nil
		}
		s.cache.Set(context.WithoutCancel(ctx), key, data, s.ttl)
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		s.logger.Debug().Str("key", key).Msg("Search shared with concurrent caller")
	}
	return v.(*search.AggregatedPage), nil
}

func (s *CachedSearcher) lookup(ctx context.Context, key string) (*search.AggregatedPage, bool) {
	data, ok := s.cache.Get(ctx, key)
	if !ok {
		metrics.RecordCache("miss")
		return nil, false
	}

	var cached search.AggregatedPage
	if err := json.Unmarshal(data, &cached); err != nil {
		metrics.RecordCache("error")
		s.logger.Warn().Err(err).Str("key", key).Msg("Dropping undecodable cache entry")
		s.cache.Delete(ctx, key)
		return nil, false
	}

	metrics.RecordCache("hit")
	return &cached, true
}
