package listing

import (
	"context"
	"errors"
	"fmt"
	"log"

	"briefing-trends/pkg/fetcher"
	"briefing-trends/pkg/metrics"
	"briefing-trends/pkg/store"
)

// PageError reports a listing page that could not be scraped.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("listing page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Extractor scrapes listing pages into a record store.
type Extractor struct {
	fetcher     fetcher.Fetcher
	store       store.RecordStore
	baseURL     string
	titlePrefix string
	metrics     *metrics.Registry
}

// NewExtractor creates a new listing extractor
func NewExtractor(f fetcher.Fetcher, s store.RecordStore, baseURL, titlePrefix string) *Extractor {
	return &Extractor{
		fetcher:     f,
		store:       s,
		baseURL:     baseURL,
		titlePrefix: titlePrefix,
	}
}

// SetMetrics records per-page outcomes on m.
func (e *Extractor) SetMetrics(m *metrics.Registry) {
	e.metrics = m
}

// ScrapePage fetches one listing page and appends its kept entries to the
// store. It returns the number of records appended.
func (e *Extractor) ScrapePage(ctx context.Context, page int) (int, error) {
	url := PageURL(e.baseURL, page)

	body, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch listing page: %w", err)
	}

	records, err := Parse(body, e.titlePrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", url, err)
	}

	if len(records) == 0 {
		return 0, nil
	}
	if err := e.store.Append(ctx, records...); err != nil {
		return 0, fmt.Errorf("failed to store records from %s: %w", url, err)
	}
	return len(records), nil
}

// ScrapePages scrapes first..last inclusive in order. A failed page is
// logged and the remaining pages still run; the returned error joins one
// *PageError per failed page.
func (e *Extractor) ScrapePages(ctx context.Context, first, last int) (int, error) {
	var total int
	var errs []error

	for page := first; page <= last; page++ {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		n, err := e.ScrapePage(ctx, page)
		if err != nil {
			log.Printf("Listing: ERROR page %d: %v", page, err)
			errs = append(errs, &PageError{Page: page, Err: err})
			if e.metrics != nil {
				e.metrics.Skipped.WithLabelValues("scrape", "page_error").Inc()
			}
			continue
		}

		log.Printf("Listing: page %d yielded %d briefings", page, n)
		total += n
		if e.metrics != nil {
			e.metrics.Documents.WithLabelValues("scrape").Add(float64(n))
		}
	}

	return total, errors.Join(errs...)
}
