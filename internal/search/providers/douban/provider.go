// Package douban searches the Douban movie suggest endpoint.
package douban

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reelhouse/reelhouse/internal/config"
	"github.com/reelhouse/reelhouse/internal/search"
	"github.com/reelhouse/reelhouse/internal/search/providers/httpx"
)

// Name is the source tag of Douban results.
const Name = "douban"

// suggestItem is one entry of the subject_suggest response.
type suggestItem struct {
	ID       search.LooseString `json:"id"`
	Title    string             `json:"title"`
	SubTitle string             `json:"sub_title"`
	Img      string             `json:"img"`
	Year     search.LooseString `json:"year"`
	Type     string             `json:"type"`
	// Rate is missing from some responses, quoted in most, bare in a few.
	Rate search.LooseString `json:"rate"`
}

// Provider queries Douban's public suggest API.
type Provider struct {
	client  *httpx.Client
	baseURL string
	enabled bool
	logger  zerolog.Logger
}

// New creates a Douban provider.
func New(cfg config.DoubanConfig, client *httpx.Client, logger zerolog.Logger) *Provider {
	return &Provider{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		enabled: cfg.Enabled,
		logger:  logger.With().Str("component", "provider.douban").Logger(),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return Name
}

// IsConfigured reports whether the provider is enabled.
func (p *Provider) IsConfigured() bool {
	return p.enabled && p.baseURL != ""
}

// Search returns Douban suggestions for query.
func (p *Provider) Search(ctx context.Context, query string, _ int) ([]search.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)

	var items []suggestItem
	if err := p.client.GetJSON(ctx, p.baseURL+"/j/subject_suggest", params, &items); err != nil {
		return nil, fmt.Errorf("douban suggest: %w", err)
	}

	results := make([]search.SearchResult, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		results = append(results, search.SearchResult{
			Title:       item.Title,
			PosterURL:   item.Img,
			Rating:      search.ParseRating(item.Rate.String()),
			Year:        search.ExtractYear(item.Year.String()),
			Description: item.SubTitle,
			Source:      Name,
		})
	}

	p.logger.Debug().Str("query", query).Int("results", len(results)).Msg("Douban search completed")
	return results, nil
}
