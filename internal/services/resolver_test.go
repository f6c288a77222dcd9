package services

import (
	"context"
	"courier-dispatch-service/internal/adapters/geocode"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/ports"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyError struct{ retry bool }

func (e flakyError) Error() string   { return "flaky" }
func (e flakyError) Retryable() bool { return e.retry }

// memoryCache is an in-process GeocodeCache.
type memoryCache struct {
	mu sync.Mutex
	m  map[string]domain.GeoPoint
}

func newMemoryCache() *memoryCache { return &memoryCache{m: map[string]domain.GeoPoint{}} }

func (c *memoryCache) GetMany(ctx context.Context, queries []string) (map[string]domain.GeoPoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]domain.GeoPoint{}
	for _, q := range queries {
		if p, ok := c.m[q]; ok {
			out[q] = p
		}
	}
	return out, nil
}

func (c *memoryCache) PutMany(ctx context.Context, results map[string]domain.GeoPoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range results {
		c.m[k] = v
	}
	return nil
}

func testResolverOptions() ResolverOptions {
	return ResolverOptions{Interval: 50 * time.Millisecond, MaxAttempts: 3, Backoff: time.Millisecond}
}

func cotonouGeocoder() *geocode.MockGeocoder {
	return geocode.NewMockGeocoder(map[string][]ports.GeocodeCandidate{
		"Cadjehoun, Benin": {{Lat: "6.3703", Lng: "2.3912"}},
		"Ganhi, Benin":     {{Lat: "6.3725", Lng: "2.3945"}},
		"Null, Benin":      {{Lat: "0", Lng: "0"}},
		"Broken, Benin":    {{Lat: "north", Lng: "2.1"}},
		"Infinite, Benin":  {{Lat: "Inf", Lng: "2.1"}},
	})
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "Rue 12, Cotonou, Benin", Query("  Rue 12,   Cotonou ", "Benin"))
	assert.Equal(t, "Rue 12", Query("Rue 12", " "))
}

func TestResolverResolve(t *testing.T) {
	g := cotonouGeocoder()
	r, err := NewResolver(g, nil, testResolverOptions())
	require.NoError(t, err)

	p, err := r.Resolve(context.Background(), " Cadjehoun ", "Benin")
	require.NoError(t, err)
	assert.Equal(t, domain.GeoPoint{Lat: 6.3703, Lng: 2.3912}, p)

	calls := g.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Cadjehoun, Benin", calls[0].Query)
}

func TestResolverErrors(t *testing.T) {
	r, err := NewResolver(cotonouGeocoder(), nil, testResolverOptions())
	require.NoError(t, err)

	tests := []struct {
		text string
		want error
	}{
		{"   ", domain.ErrInvalidInput},
		{"Nowhere", domain.ErrAddressNotFound},
		{"Null", domain.ErrMalformedResponse},
		{"Broken", domain.ErrMalformedResponse},
		{"Infinite", domain.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.text, "Benin")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolverSpacesProviderCalls(t *testing.T) {
	g := cotonouGeocoder()
	opts := testResolverOptions()
	r, err := NewResolver(g, nil, opts)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = r.Resolve(ctx, "Cadjehoun", "Benin")
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "Ganhi", "Benin")
	require.NoError(t, err)

	calls := g.Calls()
	require.Len(t, calls, 2)
	// Allow a little scheduler slack below the configured interval.
	assert.GreaterOrEqual(t, calls[1].At.Sub(calls[0].At), opts.Interval-5*time.Millisecond)
}

func TestResolverRetriesRetryableErrors(t *testing.T) {
	g := cotonouGeocoder()
	g.FailNext("Ganhi, Benin", flakyError{retry: true}, flakyError{retry: true})

	r, err := NewResolver(g, nil, testResolverOptions())
	require.NoError(t, err)

	p, err := r.Resolve(context.Background(), "Ganhi", "Benin")
	require.NoError(t, err)
	assert.Equal(t, domain.GeoPoint{Lat: 6.3725, Lng: 2.3945}, p)
	assert.Len(t, g.Calls(), 3)
}

func TestResolverGivesUpAsNetworkError(t *testing.T) {
	g := cotonouGeocoder()
	g.FailNext("Ganhi, Benin", flakyError{retry: true}, flakyError{retry: true}, flakyError{retry: true})

	r, err := NewResolver(g, nil, testResolverOptions())
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "Ganhi", "Benin")
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Len(t, g.Calls(), 3)
}

func TestResolverDoesNotRetryPermanentErrors(t *testing.T) {
	g := cotonouGeocoder()
	g.FailNext("Ganhi, Benin", flakyError{retry: false})

	r, err := NewResolver(g, nil, testResolverOptions())
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "Ganhi", "Benin")
	assert.ErrorIs(t, err, domain.ErrNetwork)
	var fe flakyError
	assert.True(t, errors.As(err, &fe))
	assert.Len(t, g.Calls(), 1)
}

func TestResolverUsesCache(t *testing.T) {
	g := cotonouGeocoder()
	cache := newMemoryCache()
	r, err := NewResolver(g, cache, testResolverOptions())
	require.NoError(t, err)

	ctx := context.Background()
	first, err := r.Resolve(ctx, "Cadjehoun", "Benin")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "Cadjehoun ", "Benin")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, g.Calls(), 1)
	assert.Contains(t, cache.m, "Cadjehoun, Benin")
}

func TestResolverHonoursCancellation(t *testing.T) {
	g := cotonouGeocoder()
	r, err := NewResolver(g, nil, ResolverOptions{Interval: time.Hour, MaxAttempts: 1})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "Cadjehoun", "Benin")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Resolve(ctx, "Ganhi", "Benin")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, g.Calls(), 1)
}

// gatedGeocoder blocks every search until release is closed.
type gatedGeocoder struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	calls   int
}

func newGatedGeocoder() *gatedGeocoder {
	return &gatedGeocoder{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedGeocoder) Search(ctx context.Context, query string, limit int) ([]ports.GeocodeCandidate, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	g.once.Do(func() { close(g.started) })

	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []ports.GeocodeCandidate{{Lat: "6.3703", Lng: "2.3912"}}, nil
}

func (g *gatedGeocoder) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestResolverCancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	g := newGatedGeocoder()
	cache := newMemoryCache()
	r, err := NewResolver(g, cache, ResolverOptions{Interval: time.Millisecond, MaxAttempts: 1})
	require.NoError(t, err)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(firstCtx, "Cadjehoun", "Benin")
		firstErr <- err
	}()
	<-g.started

	type result struct {
		p   domain.GeoPoint
		err error
	}
	second := make(chan result, 1)
	go func() {
		p, err := r.Resolve(context.Background(), "Cadjehoun", "Benin")
		second <- result{p, err}
	}()

	// Give the second caller time to join the in-flight lookup.
	time.Sleep(20 * time.Millisecond)
	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(g.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, domain.GeoPoint{Lat: 6.3703, Lng: 2.3912}, res.p)
	assert.Equal(t, 1, g.Calls())

	// The lookup outlived its first caller and still filled the cache.
	hits, err := cache.GetMany(context.Background(), []string{"Cadjehoun, Benin"})
	require.NoError(t, err)
	assert.Contains(t, hits, "Cadjehoun, Benin")
}

func TestResolverReportsLimiterDeadline(t *testing.T) {
	g := cotonouGeocoder()
	r, err := NewResolver(g, nil, ResolverOptions{Interval: time.Hour, MaxAttempts: 1})
	require.NoError(t, err)
	require.NoError(t, r.limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = r.lookup(ctx, "Ganhi, Benin")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, g.Calls())
}
