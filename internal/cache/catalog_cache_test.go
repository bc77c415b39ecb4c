package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataspace-gateway/internal/clients/management"
)

// countingFetcher counts remote catalog fetches per key
type countingFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	catalog func(contextID, counterPartyID string) *management.Catalog
	err     error
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{calls: make(map[string]int)}
}

func (f *countingFetcher) GetCatalog(ctx context.Context, contextID, counterPartyID string) (*management.Catalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := contextID + "/" + counterPartyID
	f.calls[key]++
	if f.catalog != nil {
		return f.catalog(contextID, counterPartyID), nil
	}
	return &management.Catalog{ID: fmt.Sprintf("%s#%d", key, f.calls[key])}, nil
}

func (f *countingFetcher) count(contextID, counterPartyID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[contextID+"/"+counterPartyID]
}

func TestGetFetchesOnMiss(t *testing.T) {
	fetcher := newCountingFetcher()
	c := NewCatalogCache(fetcher, 8)

	catalog, err := c.Get(context.Background(), "ctx-1", "did:web:partner", "")
	require.NoError(t, err)
	require.NotNil(t, catalog)
	assert.Equal(t, 1, fetcher.count("ctx-1", "did:web:partner"))
}

func TestEmptyDirectiveServesStaleIndefinitely(t *testing.T) {
	fetcher := newCountingFetcher()
	c := NewCatalogCache(fetcher, 8)

	first, err := c.Get(context.Background(), "ctx-1", "partner", "")
	require.NoError(t, err)

	// Age the entry far beyond any plausible freshness window.
	c.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	second, err := c.Get(context.Background(), "ctx-1", "partner", "")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, fetcher.count("ctx-1", "partner"))
}

func TestNoCacheAlwaysRefetches(t *testing.T) {
	for _, directive := range []string{"no-cache", "no-store", "max-age=600, no-cache"} {
		t.Run(directive, func(t *testing.T) {
			fetcher := newCountingFetcher()
			c := NewCatalogCache(fetcher, 8)

			_, err := c.Get(context.Background(), "ctx-1", "partner", directive)
			require.NoError(t, err)
			_, err = c.Get(context.Background(), "ctx-1", "partner", directive)
			require.NoError(t, err)
			assert.Equal(t, 2, fetcher.count("ctx-1", "partner"))
		})
	}
}

func TestMaxAgeBoundary(t *testing.T) {
	fetcher := newCountingFetcher()
	c := NewCatalogCache(fetcher, 8)

	base := time.Now()
	c.now = func() time.Time { return base }

	_, err := c.Get(context.Background(), "ctx-1", "partner", "max-age=60")
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.count("ctx-1", "partner"))

	// Strictly before fetch-time + 60s: cached value, no new fetch.
	c.now = func() time.Time { return base.Add(59 * time.Second) }
	_, err = c.Get(context.Background(), "ctx-1", "partner", "max-age=60")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.count("ctx-1", "partner"))

	// Exactly at fetch-time + 60s: exactly one new fetch.
	c.now = func() time.Time { return base.Add(60 * time.Second) }
	_, err = c.Get(context.Background(), "ctx-1", "partner", "max-age=60")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.count("ctx-1", "partner"))
}

func TestUnknownDirectiveTreatedAsFresh(t *testing.T) {
	fetcher := newCountingFetcher()
	c := NewCatalogCache(fetcher, 8)

	_, err := c.Get(context.Background(), "ctx-1", "partner", "public, immutable")
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "ctx-1", "partner", "public, immutable")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.count("ctx-1", "partner"))
}

func TestCapacityEvictionIsLRU(t *testing.T) {
	fetcher := newCountingFetcher()
	c := NewCatalogCache(fetcher, 2)

	ctx := context.Background()
	_, err := c.Get(ctx, "ctx-1", "a", "")
	require.NoError(t, err)
	_, err = c.Get(ctx, "ctx-1", "b", "")
	require.NoError(t, err)

	// Touch "a" so "b" becomes the least recently used entry.
	_, err = c.Get(ctx, "ctx-1", "a", "")
	require.NoError(t, err)

	_, err = c.Get(ctx, "ctx-1", "c", "")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	// "a" survived, "b" was evicted and refetches.
	_, err = c.Get(ctx, "ctx-1", "a", "")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.count("ctx-1", "a"))

	_, err = c.Get(ctx, "ctx-1", "b", "")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.count("ctx-1", "b"))
}

func TestConcurrentForcedRefreshSingleFlight(t *testing.T) {
	fetcher := newCountingFetcher()
	release := make(chan struct{})
	started := make(chan struct{}, 16)
	fetcher.catalog = func(contextID, counterPartyID string) *management.Catalog {
		started <- struct{}{}
		<-release
		return &management.Catalog{ID: "shared"}
	}
	c := NewCatalogCache(fetcher, 8)

	var wg sync.WaitGroup
	results := make([]*management.Catalog, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			catalog, err := c.Get(context.Background(), "ctx-1", "partner", "no-cache")
			assert.NoError(t, err)
			results[i] = catalog
		}(i)
	}

	// Exactly one fetch starts; give the remaining callers time to join the
	// flight before letting it complete.
	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, fetcher.count("ctx-1", "partner"))
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestFetchErrorPropagatesAndCachesNothing(t *testing.T) {
	fetcher := newCountingFetcher()
	fetcher.err = fmt.Errorf("upstream down")
	c := NewCatalogCache(fetcher, 8)

	_, err := c.Get(context.Background(), "ctx-1", "partner", "")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}
