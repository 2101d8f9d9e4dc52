package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing-trends/pkg/metrics"
)

func newTestFetcher(t *testing.T, rpm int, opts ...Option) *CachedFetcher {
	t.Helper()
	cache, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	return New(cache, rpm, opts...)
}

func TestCachedFetcher_CacheHitSkipsNetwork(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("<html>briefing</html>"))
	}))
	defer server.Close()

	m := metrics.New()
	f := newTestFetcher(t, 0, WithMetrics(m))
	ctx := context.Background()

	first, err := f.Fetch(ctx, server.URL+"/page")
	require.NoError(t, err)
	second, err := f.Fetch(ctx, server.URL+"/page")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchRequests))
}

func TestCachedFetcher_CacheKeyIsExactURL(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(r.URL.RawQuery))
	}))
	defer server.Close()

	f := newTestFetcher(t, 0)
	ctx := context.Background()

	a, err := f.Fetch(ctx, server.URL+"?page=0")
	require.NoError(t, err)
	b, err := f.Fetch(ctx, server.URL+"?page=1")
	require.NoError(t, err)

	assert.Equal(t, "page=0", string(a))
	assert.Equal(t, "page=1", string(b))
	assert.Equal(t, int32(2), requests.Load())
}

func TestCachedFetcher_NonSuccessIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := newTestFetcher(t, 0)
	_, err := f.Fetch(context.Background(), server.URL+"/missing")
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Contains(t, err.Error(), "/missing")

	// Failures are never cached.
	_, err = f.Fetch(context.Background(), server.URL+"/missing")
	assert.Error(t, err)
}

func TestCachedFetcher_NetworkErrorIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	f := newTestFetcher(t, 0)
	_, err := f.Fetch(context.Background(), url)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Zero(t, fetchErr.StatusCode)
	assert.Equal(t, url, fetchErr.URL)
}

func TestCachedFetcher_RetriesServerErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := newTestFetcher(t, 0, WithRetry(RetryConfig{
		MaxRetries:  3,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2,
	}))

	body, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), requests.Load())
}

func TestCachedFetcher_DoesNotRetryClientErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f := newTestFetcher(t, 0, WithRetry(RetryConfig{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1}))
	_, err := f.Fetch(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Equal(t, int32(1), requests.Load())
}

func TestCachedFetcher_RateLimitPacesMisses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	// 600 per minute = one request every 100ms after the initial burst of 1.
	f := newTestFetcher(t, 600)
	ctx := context.Background()

	start := time.Now()
	for _, p := range []string{"/a", "/b", "/c"} {
		_, err := f.Fetch(ctx, server.URL+p)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)

	// Cached URLs are returned without waiting on the limiter.
	start = time.Now()
	for _, p := range []string{"/a", "/b", "/c"} {
		_, err := f.Fetch(ctx, server.URL+p)
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestCachedFetcher_CancelledContextWhileWaiting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer server.Close()

	f := newTestFetcher(t, 1)
	_, err := f.Fetch(context.Background(), server.URL+"/first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, server.URL+"/second")
	assert.Error(t, err)
}

func TestDiskCache_ConcurrentWriters(t *testing.T) {
	cache, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	body := make([]byte, 64*1024)
	for i := range body {
		body[i] = 'a' + byte(i%26)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cache.Set(ctx, "https://example.com/x", body))
			got, ok, err := cache.Get(ctx, "https://example.com/x")
			assert.NoError(t, err)
			if ok {
				assert.Equal(t, len(body), len(got))
			}
		}()
	}
	wg.Wait()

	got, ok, err := cache.Get(ctx, "https://example.com/x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, body, got)
}

func TestDiskCache_Miss(t *testing.T) {
	cache, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)

	_, ok, err := cache.Get(context.Background(), "https://example.com/none")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("https://a"), CacheKey("https://a"))
	assert.NotEqual(t, CacheKey("https://a"), CacheKey("https://a/"))
	assert.Len(t, CacheKey("https://a"), 64)
}
