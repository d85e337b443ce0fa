package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"PriceRadar/internal/aggregate"
	"PriceRadar/internal/domain"
	"PriceRadar/internal/infrastructure/cache"
)

type stubDiscoverer struct {
	mu     sync.Mutex
	result DiscoveryResult
	err    error
	calls  int
}

func (d *stubDiscoverer) Discover(_ context.Context, query string) (DiscoveryResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	res := d.result
	res.Query = query
	return res, d.err
}

func TestSearchCachesNonEmptyResults(t *testing.T) {
	t.Parallel()

	disc := &stubDiscoverer{result: DiscoveryResult{Listings: []domain.RawListing{
		{SourceID: "a", Title: "Echo Dot 5th Gen", PriceText: "₹4,499", URL: "https://a.example.com/echo"},
	}}}
	p := NewPipeline(PipelineDeps{
		Discoverer: disc,
		Aggregator: aggregate.New(nil, aggregate.Options{}, nil),
		Cache:      cache.New[SearchResult](8, 0),
	})

	first, err := p.Search(context.Background(), "Echo Dot")
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.Len(t, first.Clusters, 1)

	second, err := p.Search(context.Background(), "  echo   dot ")
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, 1, disc.calls)

	_, err = p.Fresh(context.Background(), "echo dot")
	require.NoError(t, err)
	require.Equal(t, 2, disc.calls, "Fresh bypasses the cache")
}

func TestSearchDoesNotCacheEmptyResults(t *testing.T) {
	t.Parallel()

	disc := &stubDiscoverer{}
	p := NewPipeline(PipelineDeps{Discoverer: disc, Cache: cache.New[SearchResult](8, 0)})

	res, err := p.Search(context.Background(), "unobtainium")
	require.NoError(t, err)
	require.True(t, res.NoResults)

	_, err = p.Search(context.Background(), "unobtainium")
	require.NoError(t, err)
	require.Equal(t, 2, disc.calls)
}

func TestFreshPropagatesDiscoveryErrors(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{Discoverer: &stubDiscoverer{err: domain.ErrEmptyQuery}})
	_, err := p.Fresh(context.Background(), "x")
	require.True(t, errors.Is(err, domain.ErrEmptyQuery))

	_, err = p.Fresh(context.Background(), "")
	require.True(t, errors.Is(err, domain.ErrEmptyQuery))
}
