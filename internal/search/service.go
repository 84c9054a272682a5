package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/reelhouse/reelhouse/internal/metrics"
)

// DefaultProviderTimeout bounds each provider call when no timeout is configured.
const DefaultProviderTimeout = 5 * time.Second

// Config configures the aggregator.
type Config struct {
	ProviderTimeout time.Duration
}

// Service fans a query out to every registered provider and merges the results.
type Service struct {
	providers   []Provider
	timeout     time.Duration
	broadcaster Broadcaster
	logger      zerolog.Logger
}

// providerOutcome is what a single provider contributed to one search.
type providerOutcome struct {
	results []SearchResult
	err     error
	elapsed time.Duration
}

// NewService creates a search service. Providers are consulted in the given
// order; earlier providers win when titles collide.
func NewService(providers []Provider, cfg Config, logger zerolog.Logger) *Service {
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Service{
		providers: providers,
		timeout:   timeout,
		logger:    logger.With().Str("component", "search").Logger(),
	}
}

// SetBroadcaster sets the WebSocket broadcaster for real-time events.
func (s *Service) SetBroadcaster(broadcaster Broadcaster) {
	s.broadcaster = broadcaster
}

// Sources returns the registered provider names in registration order.
func (s *Service) Sources() []string {
	return lo.Map(s.providers, func(p Provider, _ int) string { return p.Name() })
}

// Search runs query against every provider and returns the requested page of
// the merged, deduplicated results. Provider failures only shrink the result set.
func (s *Service) Search(ctx context.Context, query string, page int) (*AggregatedPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		metrics.SearchRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidQuery
	}
	if page < 1 || page > MaxPage {
		metrics.SearchRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidPage
	}

	startTime := time.Now()
	searchID := uuid.NewString()

	s.broadcast(EventSearchStarted, SearchStartedPayload{
		ID:      searchID,
		Query:   query,
		Page:    page,
		Sources: s.Sources(),
	})

	outcomes := s.dispatch(ctx, query, page)

	merged := make([]SearchResult, 0)
	reports := make([]SourceReport, len(s.providers))
	var failures []string
	for i, p := range s.providers {
		out := outcomes[i]
		reports[i] = SourceReport{
			Source:    p.Name(),
			Results:   len(out.results),
			ElapsedMs: out.elapsed.Milliseconds(),
		}
		if out.err != nil {
			reports[i].Error = out.err.Error()
			failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), out.err))
			continue
		}
		merged = append(merged, out.results...)
	}

	result := paginate(dedup(merged), query, page)
	result.Sources = reports

	elapsed := time.Since(startTime)
	metrics.SearchRequestsTotal.WithLabelValues("success").Inc()
	metrics.SearchDuration.Observe(elapsed.Seconds())

	s.broadcast(EventSearchCompleted, SearchCompletedPayload{
		ID:        searchID,
		Query:     query,
		Page:      page,
		Total:     result.Total,
		Returned:  len(result.Results),
		Errors:    failures,
		ElapsedMs: elapsed.Milliseconds(),
	})

	s.logger.Info().
		Str("query", query).
		Int("page", page).
		Int("total", result.Total).
		Int("errors", len(failures)).
		Dur("elapsed", elapsed).
		Msg("Search completed")

	return result, nil
}

// dispatch runs all providers in parallel. Outcomes are indexed by
// registration order so merging does not depend on completion order.
func (s *Service) dispatch(ctx context.Context, query string, page int) []providerOutcome {
	outcomes := make([]providerOutcome, len(s.providers))

	var wg sync.WaitGroup
	for i, p := range s.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			outcomes[i] = s.searchProvider(ctx, p, query, page)
		}(i, p)
	}
	wg.Wait()

	return outcomes
}

// searchProvider calls one provider under its own timeout. A provider that
// ignores its context is abandoned once the timeout fires.
func (s *Service) searchProvider(ctx context.Context, p Provider, query string, page int) providerOutcome {
	name := p.Name()
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type callResult struct {
		results []SearchResult
		err     error
	}
	done := make(chan callResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: fmt.Errorf("%w: %v", ErrProviderPanic, r)}
			}
		}()
		results, err := p.Search(callCtx, query, page)
		done <- callResult{results: results, err: err}
	}()

	var res callResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			res.err = fmt.Errorf("%w after %s", ErrProviderTimeout, s.timeout)
		} else {
			res.err = callCtx.Err()
		}
	}

	elapsed := time.Since(start)
	outcome := providerOutcome{elapsed: elapsed}

	if res.err != nil {
		outcome.err = res.err
		metrics.RecordProvider(name, outcomeLabel(res.err), elapsed.Seconds())
		s.logger.Warn().
			Err(res.err).
			Str("provider", name).
			Str("query", query).
			Dur("elapsed", elapsed).
			Msg("Provider failed")
		return outcome
	}

	outcome.results = lo.Map(res.results, func(r SearchResult, _ int) SearchResult {
		if r.Source == "" {
			r.Source = name
		}
		return r
	})
	metrics.RecordProvider(name, "success", elapsed.Seconds())
	s.logger.Debug().
		Str("provider", name).
		Int("results", len(outcome.results)).
		Dur("elapsed", elapsed).
		Msg("Provider returned results")

	return outcome
}

func (s *Service) broadcast(msgType string, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(msgType, payload); err != nil {
		s.logger.Debug().Err(err).Str("type", msgType).Msg("Failed to broadcast event")
	}
}

// dedup drops untitled results and keeps the first result for each normalized title.
func dedup(results []SearchResult) []SearchResult {
	titled := lo.Filter(results, func(r SearchResult, _ int) bool {
		return NormalizeTitle(r.Title) != ""
	})
	return lo.UniqBy(titled, func(r SearchResult) string {
		return NormalizeTitle(r.Title)
	})
}

// paginate slices the deduplicated universe to one page.
func paginate(unique []SearchResult, query string, page int) *AggregatedPage {
	total := len(unique)
	result := &AggregatedPage{
		Results: []SearchResult{},
		Total:   total,
		Page:    page,
		Query:   query,
		HasPrev: page > 1,
	}

	// Pages past the end are decided before any offset is computed.
	pages := (total + PageSize - 1) / PageSize
	if page > pages {
		return result
	}

	start := (page - 1) * PageSize
	end := min(start+PageSize, total)
	result.Results = lo.Slice(unique, start, end)
	result.HasNext = end < total
	return result
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrProviderTimeout):
		return "timeout"
	case errors.Is(err, ErrProviderPanic):
		return "panic"
	case isRejected(err):
		return "rejected"
	default:
		return "error"
	}
}
