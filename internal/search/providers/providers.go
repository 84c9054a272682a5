// Package providers assembles the ordered list of catalog sources used by the
// aggregator.
package providers

import (
	"github.com/rs/zerolog"

	"github.com/reelhouse/reelhouse/internal/config"
	"github.com/reelhouse/reelhouse/internal/search"
	"github.com/reelhouse/reelhouse/internal/search/providers/douban"
	"github.com/reelhouse/reelhouse/internal/search/providers/httpx"
	"github.com/reelhouse/reelhouse/internal/search/providers/local"
	"github.com/reelhouse/reelhouse/internal/search/providers/omdb"
	"github.com/reelhouse/reelhouse/internal/search/providers/tmdb"
	"github.com/reelhouse/reelhouse/internal/search/providers/youtube"
)

// Build returns the registered providers in priority order: the local library
// first, then every configured external source behind its own circuit breaker.
// Unconfigured sources are skipped.
func Build(cfg *config.Config, store local.Store, logger zerolog.Logger) []search.Provider {
	log := logger.With().Str("component", "providers").Logger()

	var list []search.Provider
	if store != nil {
		list = append(list, local.New(store, cfg.Search.LocalLimit, logger))
	}

	external := []search.Provider{
		douban.New(cfg.Providers.Douban, newClient(cfg, douban.Name, logger), logger),
		tmdb.New(cfg.Providers.TMDB, newClient(cfg, tmdb.Name, logger), logger),
		omdb.New(cfg.Providers.OMDB, newClient(cfg, omdb.Name, logger), logger),
		youtube.New(cfg.Providers.YouTube, newClient(cfg, youtube.Name, logger), logger),
	}

	breaker := search.DefaultBreakerSettings()
	for _, p := range external {
		if c, ok := p.(search.Configurable); ok && !c.IsConfigured() {
			log.Info().Str("provider", p.Name()).Msg("Provider not configured, skipping")
			continue
		}
		list = append(list, search.WithBreaker(p, breaker, logger))
	}

	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name()
	}
	log.Info().Strs("providers", names).Msg("Search providers registered")

	return list
}

// Each source gets its own client so rate limits apply per upstream host.
func newClient(cfg *config.Config, name string, logger zerolog.Logger) *httpx.Client {
	return httpx.New(httpx.Options{
		UserAgent:         cfg.Providers.UserAgent,
		Timeout:           cfg.Providers.Timeout,
		RequestsPerSecond: cfg.Providers.RequestsPerSecond,
	}, logger.With().Str("component", "httpx").Str("provider", name).Logger())
}
