// Package search aggregates movie results from several catalog sources into
// one deduplicated, paginated listing.
package search

import (
	"context"
	"errors"
	"fmt"
)

// PageSize is the fixed number of results per aggregated page.
const PageSize = 20

// MaxPage bounds the page number so page offsets never overflow.
const MaxPage = 10000

var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidQuery = fmt.Errorf("%w: query must not be empty", ErrValidation)
	ErrInvalidPage  = fmt.Errorf("%w: page must be between 1 and 10000", ErrValidation)

	ErrProviderTimeout = errors.New("provider timed out")
	ErrProviderPanic   = errors.New("provider panicked")
)

// SearchResult is one normalized catalog entry from any source.
type SearchResult struct {
	ID              int64    `json:"id,omitempty"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	PosterURL       string   `json:"posterUrl,omitempty"`
	Rating          *float64 `json:"rating,omitempty"`
	Year            *int     `json:"year,omitempty"`
	Genre           string   `json:"genre,omitempty"`
	DurationMinutes *int     `json:"duration,omitempty"`
	FilePath        string   `json:"filePath,omitempty"`
	StreamURL       string   `json:"streamUrl,omitempty"`
	IsLocal         bool     `json:"isLocal"`
	Source          string   `json:"source"`
}

// SourceReport describes how one provider behaved during a search.
type SourceReport struct {
	Source    string `json:"source"`
	Results   int    `json:"results"`
	ElapsedMs int64  `json:"elapsedMs"`
	Error     string `json:"error,omitempty"`
}

// AggregatedPage is one page of merged results.
type AggregatedPage struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	Query   string         `json:"query"`
	HasNext bool           `json:"hasNext"`
	HasPrev bool           `json:"hasPrev"`
	Sources []SourceReport `json:"sources,omitempty"`
}

// Provider is a single catalog source.
//
// Search receives the aggregator's (query, page) but returns the source's
// first result page for the query; pagination happens over the merged set.
// Errors are source-local and never abort an aggregated search.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, page int) ([]SearchResult, error)
}

// Configurable is implemented by providers that need credentials or can be disabled.
type Configurable interface {
	IsConfigured() bool
}

// Searcher produces aggregated pages. Implemented by Service and by caching wrappers.
type Searcher interface {
	Search(ctx context.Context, query string, page int) (*AggregatedPage, error)
}

// Broadcaster interface for sending events to clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}
