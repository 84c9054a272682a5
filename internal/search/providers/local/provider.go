// Package local exposes the movie datastore as a search provider.
package local

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/reelhouse/reelhouse/internal/library/movies"
	"github.com/reelhouse/reelhouse/internal/search"
)

// Name is the source tag of local results.
const Name = "local"

const defaultLimit = 500

// Store is the datastore query the provider depends on.
type Store interface {
	Search(ctx context.Context, query string, limit int) ([]*movies.Movie, error)
}

// Provider searches the local movie library.
type Provider struct {
	store  Store
	limit  int
	logger zerolog.Logger
}

// New creates a local provider. limit caps the rows read per search.
func New(store Store, limit int, logger zerolog.Logger) *Provider {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Provider{
		store:  store,
		limit:  limit,
		logger: logger.With().Str("component", "provider.local").Logger(),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return Name
}

// Search returns library movies whose title, description or genre contain query.
func (p *Provider) Search(ctx context.Context, query string, _ int) ([]search.SearchResult, error) {
	rows, err := p.store.Search(ctx, query, p.limit)
	if err != nil {
		return nil, fmt.Errorf("local search: %w", err)
	}

	results := make([]search.SearchResult, 0, len(rows))
	for _, m := range rows {
		results = append(results, toResult(m))
	}

	p.logger.Debug().Str("query", query).Int("results", len(results)).Msg("Local search completed")
	return results, nil
}

func toResult(m *movies.Movie) search.SearchResult {
	r := search.SearchResult{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		PosterURL:   m.PosterURL,
		Genre:       m.Genre,
		FilePath:    m.FilePath,
		StreamURL:   m.StreamURL,
		IsLocal:     m.IsLocal,
		Source:      Name,
	}
	if m.Rating != nil {
		r.Rating = search.RatingFromFloat(*m.Rating)
	}
	if m.Year != nil && *m.Year >= 1900 && *m.Year <= 2099 {
		year := *m.Year
		r.Year = &year
	}
	if m.Duration != nil && *m.Duration >= 0 {
		d := *m.Duration
		r.DurationMinutes = &d
	}
	return r
}
