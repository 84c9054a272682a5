package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             time.Minute,
		ConsecutiveFailures: 2,
	}
}

func TestWithBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &fakeProvider{name: "douban", err: errors.New("connection refused")}
	p := WithBreaker(inner, testBreakerSettings(), zerolog.Nop())

	assert.Equal(t, "douban", p.Name())

	for i := 0; i < 2; i++ {
		_, err := p.Search(context.Background(), "q", 1)
		require.Error(t, err)
		assert.False(t, isRejected(err))
	}

	_, err := p.Search(context.Background(), "q", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, isRejected(err))
	assert.Equal(t, int32(2), inner.calls.Load())

	bp, ok := p.(*breakerProvider)
	require.True(t, ok)
	assert.Equal(t, gobreaker.StateOpen, bp.State())
}

func TestWithBreaker_SuccessResetsFailures(t *testing.T) {
	inner := &fakeProvider{name: "tmdb", results: titled("tmdb", "Dune")}
	p := WithBreaker(inner, testBreakerSettings(), zerolog.Nop())

	results, err := p.Search(context.Background(), "dune", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	bp := p.(*breakerProvider)
	assert.Equal(t, gobreaker.StateClosed, bp.State())
}

func TestWithBreaker_CanceledCallsDoNotTrip(t *testing.T) {
	inner := &fakeProvider{name: "omdb", err: context.Canceled}
	p := WithBreaker(inner, testBreakerSettings(), zerolog.Nop())

	for i := 0; i < 5; i++ {
		_, err := p.Search(context.Background(), "q", 1)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, p.(*breakerProvider).State())
	assert.Equal(t, int32(5), inner.calls.Load())
}

func TestWithBreaker_OpenBreakerIsSourceLocalFailure(t *testing.T) {
	local := &fakeProvider{name: "local", results: titled("local", "Amélie")}
	inner := &fakeProvider{name: "douban", err: errors.New("bad gateway")}
	guarded := WithBreaker(inner, testBreakerSettings(), zerolog.Nop())

	svc := newTestService(t, time.Second, local, guarded)

	for i := 0; i < 3; i++ {
		page, err := svc.Search(context.Background(), "amelie", 1)
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.NotEmpty(t, page.Sources[1].Error)
	}
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, "rejected", outcomeLabel(gobreaker.ErrOpenState))
}

type configurableProvider struct {
	fakeProvider
	configured bool
}

func (c *configurableProvider) IsConfigured() bool { return c.configured }

func TestWithBreaker_ForwardsIsConfigured(t *testing.T) {
	p := WithBreaker(&configurableProvider{fakeProvider: fakeProvider{name: "tmdb"}}, DefaultBreakerSettings(), zerolog.Nop())
	c, ok := p.(Configurable)
	require.True(t, ok)
	assert.False(t, c.IsConfigured())

	plain := WithBreaker(&fakeProvider{name: "douban"}, DefaultBreakerSettings(), zerolog.Nop())
	assert.True(t, plain.(Configurable).IsConfigured())
}
