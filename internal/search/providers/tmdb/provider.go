// Package tmdb searches The Movie Database.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reelhouse/reelhouse/internal/config"
	"github.com/reelhouse/reelhouse/internal/search"
	"github.com/reelhouse/reelhouse/internal/search/providers/httpx"
)

// Name is the source tag of TMDB results.
const Name = "tmdb"

var ErrAPIKeyMissing = errors.New("TMDB API key is not configured")

const posterSize = "w500"

// SearchMoviesResponse is the /search/movie response.
type SearchMoviesResponse struct {
	Page         int           `json:"page"`
	Results      []MovieResult `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// MovieResult is a single movie in a search response.
type MovieResult struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	PosterPath    string  `json:"poster_path"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
}

// Provider queries TMDB's movie search.
type Provider struct {
	client *httpx.Client
	config config.TMDBConfig
	logger zerolog.Logger
}

// New creates a TMDB provider.
func New(cfg config.TMDBConfig, client *httpx.Client, logger zerolog.Logger) *Provider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.ImageBaseURL = strings.TrimRight(cfg.ImageBaseURL, "/")
	return &Provider{
		client: client,
		config: cfg,
		logger: logger.With().Str("component", "provider.tmdb").Logger(),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return Name
}

// IsConfigured returns true if the API key is set.
func (p *Provider) IsConfigured() bool {
	return p.config.APIKey != ""
}

// Search returns the first page of TMDB movie matches for query.
func (p *Provider) Search(ctx context.Context, query string, _ int) ([]search.SearchResult, error) {
	if !p.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("api_key", p.config.APIKey)
	params.Set("query", query)
	params.Set("include_adult", "false")

	var response SearchMoviesResponse
	if err := p.client.GetJSON(ctx, p.config.BaseURL+"/search/movie", params, &response); err != nil {
		return nil, fmt.Errorf("tmdb search: %w", err)
	}

	results := make([]search.SearchResult, 0, len(response.Results))
	for _, m := range response.Results {
		if strings.TrimSpace(m.Title) == "" {
			continue
		}
		results = append(results, p.toResult(m))
	}

	p.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Int("totalResults", response.TotalResults).
		Msg("TMDB search completed")

	return results, nil
}

func (p *Provider) toResult(m MovieResult) search.SearchResult {
	r := search.SearchResult{
		Title:       m.Title,
		Description: m.Overview,
		Year:        search.ExtractYear(m.ReleaseDate),
		Source:      Name,
	}
	// TMDB reports 0 for titles nobody has voted on.
	if m.VoteCount > 0 {
		r.Rating = search.RatingFromFloat(m.VoteAverage)
	}
	if m.PosterPath != "" && p.config.ImageBaseURL != "" {
		r.PosterURL = fmt.Sprintf("%s/%s%s", p.config.ImageBaseURL, posterSize, m.PosterPath)
	}
	return r
}
