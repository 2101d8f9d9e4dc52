// Package fetcher is the single gateway to the network for every pipeline
// stage: a rate-limited HTTP client behind a persistent response cache.
package fetcher

import (
	"context"
	"io"
	"log"
	"net/http"

	"golang.org/x/time/rate"

	"briefing-trends/pkg/httpclient"
	"briefing-trends/pkg/metrics"
)

// Fetcher retrieves the body at url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Func adapts a plain function to Fetcher.
type Func func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f(ctx, url).
func (f Func) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// CachedFetcher consults its cache first and only spends rate budget on
// misses. One CachedFetcher is shared by all stages of a run so the rate
// limit holds across callers.
type CachedFetcher struct {
	client  *httpclient.HTTPClient
	cache   Cache
	limiter *rate.Limiter
	retry   RetryConfig
	metrics *metrics.Registry
}

// Option configures a CachedFetcher.
type Option func(*CachedFetcher)

// WithClient replaces the default HTTP client.
func WithClient(client *httpclient.HTTPClient) Option {
	return func(f *CachedFetcher) { f.client = client }
}

// WithRetry sets the internal retry policy.
func WithRetry(rc RetryConfig) Option {
	return func(f *CachedFetcher) { f.retry = rc }
}

// WithMetrics records request and cache counters on m.
func WithMetrics(m *metrics.Registry) Option {
	return func(f *CachedFetcher) { f.metrics = m }
}

// New returns a fetcher limited to requestsPerMinute network requests.
// A non-positive limit disables rate limiting.
func New(cache Cache, requestsPerMinute int, opts ...Option) *CachedFetcher {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60.0)
	}

	f := &CachedFetcher{
		client:  httpclient.NewClient(httpclient.BrowserClient),
		cache:   cache,
		limiter: rate.NewLimiter(limit, 1),
		retry:   NoRetry,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the body at url from the cache, or from the network on a
// miss. Successful network responses are cached before returning.
func (f *CachedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.cache != nil {
		body, ok, err := f.cache.Get(ctx, url)
		if err != nil {
			log.Printf("Fetcher: cache read failed for %s, going to network: %v", url, err)
		} else if ok {
			f.count(func(m *metrics.Registry) { m.CacheHits.Inc() })
			return body, nil
		}
	}
	f.count(func(m *metrics.Registry) { m.CacheMisses.Inc() })

	body, err := retryDo(ctx, f.retry, func() ([]byte, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: url, Err: err}
		}
		return f.fetchOnce(ctx, url)
	})
	if err != nil {
		f.count(func(m *metrics.Registry) { m.FetchErrors.Inc() })
		if _, ok := err.(*FetchError); !ok {
			err = &FetchError{URL: url, Err: err}
		}
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, url, body); err != nil {
			log.Printf("Fetcher: cache write failed for %s: %v", url, err)
		}
	}
	return body, nil
}

// fetchOnce issues a single GET and reads the full body.
func (f *CachedFetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	f.count(func(m *metrics.Registry) { m.FetchRequests.Inc() })
	log.Printf("Fetcher: GET %s", url)

	resp, err := f.client.Get(ctx, url)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return body, nil
}

func (f *CachedFetcher) count(fn func(*metrics.Registry)) {
	if f.metrics != nil {
		fn(f.metrics)
	}
}
