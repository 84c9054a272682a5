// Package omdb searches the Open Movie Database.
package omdb

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

// Name is the source tag of OMDb results.
const Name = "omdb"

var (
	ErrAPIKeyMissing = errors.New("OMDb API key is not configured")
	ErrAPIError      = errors.New("OMDb API error")
)

// SearchResponse is the ?s= response. OMDb signals failure in-band with
// Response "False" and an Error message.
type SearchResponse struct {
	Search       []SearchItem `json:"Search"`
	TotalResults string       `json:"totalResults"`
	Response     string       `json:"Response"`
	Error        string       `json:"Error"`
}

// SearchItem is one hit of a search.
type SearchItem struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// Provider queries OMDb's title search.
type Provider struct {
	client *httpx.Client
	config config.OMDBConfig
	logger zerolog.Logger
}

// New creates an OMDb provider.
func New(cfg config.OMDBConfig, client *httpx.Client, logger zerolog.Logger) *Provider {
	return &Provider{
		client: client,
		config: cfg,
		logger: logger.With().Str("component", "provider.omdb").Logger(),
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

// Search returns OMDb movies matching query.
func (p *Provider) Search(ctx context.Context, query string, _ int) ([]search.SearchResult, error) {
	if !p.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("apikey", p.config.APIKey)
	params.Set("s", query)
	params.Set("type", "movie")

	var response SearchResponse
	if err := p.client.GetJSON(ctx, p.config.BaseURL, params, &response); err != nil {
		return nil, fmt.Errorf("omdb search: %w", err)
	}

	if !strings.EqualFold(response.Response, "True") {
		// "Movie not found!" is an empty result, anything else is a failure.
		if strings.Contains(strings.ToLower(response.Error), "not found") {
			return []search.SearchResult{}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrAPIError, response.Error)
	}

	results := make([]search.SearchResult, 0, len(response.Search))
	for _, item := range response.Search {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		r := search.SearchResult{
			Title:  item.Title,
			Year:   search.ExtractYear(item.Year),
			Source: Name,
		}
		if item.Poster != "" && item.Poster != "N/A" {
			r.PosterURL = item.Poster
		}
		results = append(results, r)
	}

	p.logger.Debug().Str("query", query).Int("results", len(results)).Msg("OMDb search completed")
	return results, nil
}
