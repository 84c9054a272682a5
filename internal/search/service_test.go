package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhouse/reelhouse/internal/testutil"
)

type fakeProvider struct {
	name    string
	results []SearchResult
	err     error
	delay   time.Duration
	// ignoreCtx makes the provider sleep through cancellation.
	ignoreCtx bool
	panicMsg  string
	calls     atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, query string, page int) ([]SearchResult, error) {
	f.calls.Add(1)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.delay > 0 {
		if f.ignoreCtx {
			time.Sleep(f.delay)
		} else {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]SearchResult, len(f.results))
	copy(out, f.results)
	return out, nil
}

func titled(source string, titles ...string) []SearchResult {
	out := make([]SearchResult, len(titles))
	for i, title := range titles {
		out[i] = SearchResult{Title: title, Source: source}
	}
	return out
}

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %03d", prefix, i+1)
	}
	return out
}

func newTestService(t *testing.T, timeout time.Duration, providers ...Provider) *Service {
	t.Helper()
	return NewService(providers, Config{ProviderTimeout: timeout}, zerolog.New(zerolog.NewTestWriter(t)))
}

func TestSearch_Validation(t *testing.T) {
	svc := newTestService(t, time.Second, &fakeProvider{name: "local"})

	tests := []struct {
		name  string
		query string
		page  int
		want  error
	}{
		{"empty query", "", 1, ErrInvalidQuery},
		{"blank query", "   ", 1, ErrInvalidQuery},
		{"zero page", "matrix", 0, ErrInvalidPage},
		{"negative page", "matrix", -2, ErrInvalidPage},
		{"page over limit", "matrix", MaxPage + 1, ErrInvalidPage},
		{"max int page", "matrix", math.MaxInt, ErrInvalidPage},
		{"page that overflows offset", "matrix", math.MaxInt/PageSize + 2, ErrInvalidPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Search(context.Background(), tt.query, tt.page)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSearch_DedupFirstWins(t *testing.T) {
	local := &fakeProvider{name: "local", results: []SearchResult{
		{ID: 7, Title: "Inception", FilePath: "/movies/inception.mp4", IsLocal: true},
	}}
	douban := &fakeProvider{name: "douban", results: titled("douban", "  INCEPTION ", "The Matrix", "")}
	tmdb := &fakeProvider{name: "tmdb", results: titled("tmdb", "the   matrix", "Interstellar")}

	svc := newTestService(t, time.Second, local, douban, tmdb)

	page, err := svc.Search(context.Background(), "in", 1)
	require.NoError(t, err)

	require.Len(t, page.Results, 3)
	assert.Equal(t, 3, page.Total)

	assert.Equal(t, "Inception", page.Results[0].Title)
	assert.Equal(t, "local", page.Results[0].Source)
	assert.Equal(t, int64(7), page.Results[0].ID)
	assert.True(t, page.Results[0].IsLocal)

	assert.Equal(t, "The Matrix", page.Results[1].Title)
	assert.Equal(t, "douban", page.Results[1].Source)
	assert.Equal(t, "Interstellar", page.Results[2].Title)

	seen := make(map[string]bool)
	for _, r := range page.Results {
		key := NormalizeTitle(r.Title)
		assert.NotEmpty(t, key)
		assert.False(t, seen[key], "duplicate title %q", r.Title)
		seen[key] = true
	}
}

func TestSearch_SourceDefaultsToProviderName(t *testing.T) {
	p := &fakeProvider{name: "omdb", results: []SearchResult{{Title: "Heat"}}}
	svc := newTestService(t, time.Second, p)

	page, err := svc.Search(context.Background(), "heat", 1)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "omdb", page.Results[0].Source)
}

func TestSearch_PaginationFlags(t *testing.T) {
	tests := []struct {
		total       int
		page        int
		wantLen     int
		wantHasNext bool
		wantHasPrev bool
	}{
		{45, 1, 20, true, false},
		{45, 2, 20, true, true},
		{45, 3, 5, false, true},
		{45, 4, 0, false, true},
		{40, 2, 20, false, true},
		{20, 1, 20, false, false},
		{0, 1, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("total=%d/page=%d", tt.total, tt.page), func(t *testing.T) {
			p := &fakeProvider{name: "local", results: titled("local", numbered("Movie", tt.total)...)}
			svc := newTestService(t, time.Second, p)

			page, err := svc.Search(context.Background(), "movie", tt.page)
			require.NoError(t, err)

			assert.Len(t, page.Results, tt.wantLen)
			assert.NotNil(t, page.Results)
			assert.Equal(t, tt.total, page.Total)
			assert.Equal(t, tt.page, page.Page)
			assert.Equal(t, "movie", page.Query)
			assert.Equal(t, tt.wantHasNext, page.HasNext)
			assert.Equal(t, tt.wantHasPrev, page.HasPrev)
		})
	}
}

func TestSearch_LastAllowedPageIsEmpty(t *testing.T) {
	p := &fakeProvider{name: "local", results: titled("local", "A Movie", "Another Movie")}
	svc := newTestService(t, time.Second, p)

	page, err := svc.Search(context.Background(), "movie", MaxPage)
	require.NoError(t, err)
	assert.Empty(t, page.Results)
	assert.NotNil(t, page.Results)
	assert.Equal(t, 2, page.Total)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)
}

func TestPaginate_HugePageNeverOverflows(t *testing.T) {
	unique := titled("local", "One", "Two")

	for _, pageNum := range []int{math.MaxInt, math.MaxInt/PageSize + 2, math.MaxInt / PageSize} {
		page := paginate(unique, "q", pageNum)
		assert.Empty(t, page.Results, "page %d", pageNum)
		assert.False(t, page.HasNext, "page %d", pageNum)
		assert.True(t, page.HasPrev, "page %d", pageNum)
		assert.Equal(t, 2, page.Total)
	}
}

func TestSearch_PagesAreDisjointAndExhaustive(t *testing.T) {
	local := &fakeProvider{name: "local", results: titled("local", numbered("Film", 30)...)}
	// Half of the external titles collide with local ones.
	external := &fakeProvider{name: "douban", results: titled("douban", numbered("film", 45)...)}

	svc := newTestService(t, time.Second, local, external)

	seen := make(map[string]int)
	var collected int
	for pageNum := 1; ; pageNum++ {
		page, err := svc.Search(context.Background(), "film", pageNum)
		require.NoError(t, err)
		assert.Equal(t, 45, page.Total)

		for _, r := range page.Results {
			seen[NormalizeTitle(r.Title)]++
			collected++
		}
		if !page.HasNext {
			break
		}
		require.Less(t, pageNum, 10, "pagination did not terminate")
	}

	assert.Equal(t, 45, collected)
	assert.Len(t, seen, 45)
	for title, n := range seen {
		assert.Equal(t, 1, n, "title %q appeared on more than one page", title)
	}
}

func TestSearch_FailingProviderTolerated(t *testing.T) {
	local := &fakeProvider{name: "local", results: titled("local", "Alien")}
	broken := &fakeProvider{name: "tmdb", err: errors.New("unexpected status 503")}
	panicky := &fakeProvider{name: "youtube", panicMsg: "selector exploded"}
	omdb := &fakeProvider{name: "omdb", results: titled("omdb", "Aliens")}

	svc := newTestService(t, time.Second, local, broken, panicky, omdb)

	page, err := svc.Search(context.Background(), "alien", 1)
	require.NoError(t, err)

	require.Len(t, page.Results, 2)
	assert.Equal(t, "Alien", page.Results[0].Title)
	assert.Equal(t, "Aliens", page.Results[1].Title)

	require.Len(t, page.Sources, 4)
	assert.Equal(t, "local", page.Sources[0].Source)
	assert.Empty(t, page.Sources[0].Error)
	assert.Equal(t, 1, page.Sources[0].Results)
	assert.Contains(t, page.Sources[1].Error, "503")
	assert.Contains(t, page.Sources[2].Error, "provider panicked")
	assert.Contains(t, page.Sources[2].Error, "selector exploded")
	assert.Empty(t, page.Sources[3].Error)
}

func TestSearch_AllProvidersFailing(t *testing.T) {
	svc := newTestService(t, time.Second,
		&fakeProvider{name: "douban", err: errors.New("boom")},
		&fakeProvider{name: "tmdb", err: errors.New("boom")},
	)

	page, err := svc.Search(context.Background(), "anything", 1)
	require.NoError(t, err)
	assert.Empty(t, page.Results)
	assert.NotNil(t, page.Results)
	assert.Equal(t, 0, page.Total)
	assert.False(t, page.HasNext)
}

func TestSearch_TimeoutBoundsLatency(t *testing.T) {
	fast := &fakeProvider{name: "local", results: titled("local", "Up")}
	cooperative := &fakeProvider{name: "tmdb", delay: 5 * time.Second, results: titled("tmdb", "Up (2009)")}
	stubborn := &fakeProvider{name: "youtube", delay: 600 * time.Millisecond, ignoreCtx: true}

	svc := newTestService(t, 100*time.Millisecond, fast, cooperative, stubborn)

	start := time.Now()
	page, err := svc.Search(context.Background(), "up", 1)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 500*time.Millisecond)

	require.Len(t, page.Results, 1)
	assert.Equal(t, "Up", page.Results[0].Title)
	assert.NotEmpty(t, page.Sources[1].Error)
	assert.Contains(t, page.Sources[2].Error, "timed out")
}

func TestSearch_OrderIndependentOfCompletion(t *testing.T) {
	slow := &fakeProvider{name: "local", delay: 80 * time.Millisecond, results: titled("local", "Heat", "Ronin")}
	fast := &fakeProvider{name: "douban", results: titled("douban", "heat", "Collateral")}

	svc := newTestService(t, time.Second, slow, fast)

	for i := 0; i < 3; i++ {
		page, err := svc.Search(context.Background(), "heat", 1)
		require.NoError(t, err)
		require.Len(t, page.Results, 3)
		assert.Equal(t, []string{"Heat", "Ronin", "Collateral"}, []string{
			page.Results[0].Title, page.Results[1].Title, page.Results[2].Title,
		})
		assert.Equal(t, "local", page.Results[0].Source)
	}
}

func TestSearch_ProvidersReceiveTrimmedQuery(t *testing.T) {
	var got atomic.Value
	p := &queryRecorder{got: &got}
	svc := newTestService(t, time.Second, p)

	_, err := svc.Search(context.Background(), "  blade runner  ", 2)
	require.NoError(t, err)
	assert.Equal(t, "blade runner", got.Load())
}

type queryRecorder struct {
	got *atomic.Value
}

func (q *queryRecorder) Name() string { return "recorder" }

func (q *queryRecorder) Search(_ context.Context, query string, _ int) ([]SearchResult, error) {
	q.got.Store(query)
	return nil, nil
}

func TestSearch_BroadcastsEvents(t *testing.T) {
	svc := newTestService(t, time.Second,
		&fakeProvider{name: "local", results: titled("local", "Arrival")},
		&fakeProvider{name: "tmdb", err: errors.New("rate limited")},
	)
	hub := &testutil.RecordingBroadcaster{}
	svc.SetBroadcaster(hub)

	_, err := svc.Search(context.Background(), "arrival", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{EventSearchStarted, EventSearchCompleted}, hub.Types())

	events := hub.Events()
	started, ok := events[0].Payload.(SearchStartedPayload)
	require.True(t, ok)
	assert.Equal(t, []string{"local", "tmdb"}, started.Sources)

	completed, ok := events[1].Payload.(SearchCompletedPayload)
	require.True(t, ok)
	assert.Equal(t, started.ID, completed.ID)
	assert.Equal(t, 1, completed.Total)
	assert.Equal(t, 1, completed.Returned)
	require.Len(t, completed.Errors, 1)
	assert.True(t, strings.HasPrefix(completed.Errors[0], "tmdb: "))
}

func TestSources(t *testing.T) {
	svc := newTestService(t, 0,
		&fakeProvider{name: "local"},
		&fakeProvider{name: "douban"},
	)
	assert.Equal(t, []string{"local", "douban"}, svc.Sources())
	assert.Equal(t, DefaultProviderTimeout, svc.timeout)
}
