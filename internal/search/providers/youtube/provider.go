// Package youtube scrapes trailer results from the YouTube search page.
package youtube

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/reelhouse/reelhouse/internal/config"
	"github.com/reelhouse/reelhouse/internal/search"
	"github.com/reelhouse/reelhouse/internal/search/providers/httpx"
)

// Name is the source tag of YouTube results.
const Name = "youtube"

const (
	defaultMaxResults = 5
	trailerDesc       = "YouTube trailer"
)

// Provider parses the static HTML of a YouTube results page.
type Provider struct {
	client     *httpx.Client
	baseURL    string
	enabled    bool
	maxResults int
	logger     zerolog.Logger
}

// New creates a YouTube trailer provider.
func New(cfg config.YouTubeConfig, client *httpx.Client, logger zerolog.Logger) *Provider {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Provider{
		client:     client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		enabled:    cfg.Enabled,
		maxResults: maxResults,
		logger:     logger.With().Str("component", "provider.youtube").Logger(),
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

// Search returns trailer videos for query. Only the first anchors of the page
// are considered, and of those only titles mentioning "trailer" or the query.
func (p *Provider) Search(ctx context.Context, query string, _ int) ([]search.SearchResult, error) {
	params := url.Values{}
	params.Set("search_query", query+" trailer")

	resp, err := p.client.Get(ctx, p.baseURL+"/results", params, "text/html")
	if err != nil {
		return nil, fmt.Errorf("youtube results: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse youtube HTML: %w", err)
	}

	lowerQuery := strings.ToLower(query)
	results := make([]search.SearchResult, 0, p.maxResults)

	doc.Find("a#video-title").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= p.maxResults {
			return false
		}

		title := strings.TrimSpace(s.AttrOr("title", ""))
		if title == "" {
			title = strings.TrimSpace(s.Text())
		}
		lowerTitle := strings.ToLower(title)
		if title == "" || !(strings.Contains(lowerTitle, "trailer") || strings.Contains(lowerTitle, lowerQuery)) {
			return true
		}

		r := search.SearchResult{
			Title:       title,
			Description: trailerDesc,
			Source:      Name,
		}
		if href := s.AttrOr("href", ""); href != "" {
			r.StreamURL = p.baseURL + href
		}
		results = append(results, r)
		return true
	})

	p.logger.Debug().Str("query", query).Int("results", len(results)).Msg("YouTube search completed")
	return results, nil
}
