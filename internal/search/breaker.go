package search

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/reelhouse/reelhouse/internal/metrics"
)

// BreakerSettings configures the circuit breaker placed in front of an external provider.
type BreakerSettings struct {
	// Requests allowed through while half-open.
	MaxRequests uint32
	// Window after which closed-state counts reset.
	Interval time.Duration
	// Time spent open before probing again.
	Timeout time.Duration
	// Consecutive failures that open the circuit.
	ConsecutiveFailures uint32
}

// DefaultBreakerSettings returns the settings used for external providers.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// breakerProvider guards a Provider with a circuit breaker. While open, calls
// fail immediately with gobreaker.ErrOpenState.
type breakerProvider struct {
	Provider
	cb *gobreaker.CircuitBreaker[[]SearchResult]
}

// WithBreaker wraps p in a circuit breaker.
func WithBreaker(p Provider, settings BreakerSettings, logger zerolog.Logger) Provider {
	name := p.Name()
	log := logger.With().Str("component", "breaker").Str("provider", name).Logger()

	metrics.ProviderCircuitState.WithLabelValues(name).Set(stateValue(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[[]SearchResult](gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Circuit state changed")
			metrics.ProviderCircuitState.WithLabelValues(name).Set(stateValue(to))
		},
		// A caller going away says nothing about the source's health.
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	})

	return &breakerProvider{Provider: p, cb: cb}
}

func (b *breakerProvider) Search(ctx context.Context, query string, page int) ([]SearchResult, error) {
	return b.cb.Execute(func() ([]SearchResult, error) {
		return b.Provider.Search(ctx, query, page)
	})
}

// State returns the current circuit state.
func (b *breakerProvider) State() gobreaker.State {
	return b.cb.State()
}

// IsConfigured forwards to the wrapped provider.
func (b *breakerProvider) IsConfigured() bool {
	if c, ok := b.Provider.(Configurable); ok {
		return c.IsConfigured()
	}
	return true
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// isRejected reports whether err came from an open or saturated breaker.
func isRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
