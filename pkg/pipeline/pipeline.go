// Package pipeline runs the stages that turn listing pages into per-term
// weekly tables: scrape, extract, analyze, summarize and merge. Each stage
// reads the artifacts of the previous one, so stages can be run on their own.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"briefing-trends/pkg/artifact"
	"briefing-trends/pkg/config"
	"briefing-trends/pkg/domain"
	"briefing-trends/pkg/fetcher"
	"briefing-trends/pkg/filter"
	"briefing-trends/pkg/listing"
	"briefing-trends/pkg/metrics"
	"briefing-trends/pkg/slug"
	"briefing-trends/pkg/store"
	"briefing-trends/pkg/transcript"
	"briefing-trends/pkg/trends"
	"briefing-trends/pkg/weekly"
	"briefing-trends/pkg/wordcount"
	"briefing-trends/pkg/worker"
)

// Stage names used in logs and metrics labels.
const (
	StageScrape    = "scrape"
	StageExtract   = "extract"
	StageAnalyze   = "analyze"
	StageSummarize = "summarize"
	StageMerge     = "merge"
)

// Pipeline holds the collaborators shared by every stage of a run.
type Pipeline struct {
	cfg          *config.Config
	layout       artifact.Layout
	fetcher      fetcher.Fetcher
	store        store.RecordStore
	mirror       transcript.Mirror
	metrics      *metrics.Registry
	skipExisting bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMirror mirrors extracted transcripts.
func WithMirror(m transcript.Mirror) Option {
	return func(p *Pipeline) { p.mirror = m }
}

// WithMetrics records stage counters on m.
func WithMetrics(m *metrics.Registry) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithSkipExisting makes Extract skip records that already have a text
// artifact.
func WithSkipExisting(skip bool) Option {
	return func(p *Pipeline) { p.skipExisting = skip }
}

// New creates a pipeline. cfg must already be validated.
func New(cfg *config.Config, f fetcher.Fetcher, s store.RecordStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		layout:  cfg.Layout(),
		fetcher: f,
		store:   s,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scrape crawls the configured listing pages, and the feed when one is
// configured, into the record store. A failed page does not stop the crawl;
// the error lists every failed page.
func (p *Pipeline) Scrape(ctx context.Context) (int, error) {
	log.Printf("Pipeline: scraping pages %d..%d of %s", p.cfg.Scrape.FirstPage, p.cfg.Scrape.LastPage, p.cfg.Scrape.BaseURL)

	extractor := listing.NewExtractor(p.fetcher, p.store, p.cfg.Scrape.BaseURL, p.cfg.Scrape.TitlePrefix)
	extractor.SetMetrics(p.metrics)

	total, err := extractor.ScrapePages(ctx, p.cfg.Scrape.FirstPage, p.cfg.Scrape.LastPage)
	errs := []error{err}

	if p.cfg.Scrape.FeedURL != "" {
		n, feedErr := p.scrapeFeed(ctx)
		total += n
		errs = append(errs, feedErr)
	}

	log.Printf("Pipeline: scrape stored %d records", total)
	return total, errors.Join(errs...)
}

func (p *Pipeline) scrapeFeed(ctx context.Context) (int, error) {
	records, err := listing.NewFeedSource(p.fetcher, p.cfg.Scrape.TitlePrefix).Records(ctx, p.cfg.Scrape.FeedURL)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := p.store.Append(ctx, records...); err != nil {
		return 0, fmt.Errorf("failed to store feed records: %w", err)
	}
	p.count(StageScrape, len(records))
	return len(records), nil
}

// Extract writes a text artifact for every distinct record in the store
// whose title carries the configured prefix, restricted to the configured
// year when Transcript.YearOnly is set. Failed documents are logged and
// reported together; the others are kept.
func (p *Pipeline) Extract(ctx context.Context) (int, error) {
	records, err := p.store.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read records: %w", err)
	}

	filters := []filter.Filter{
		filter.NewTitlePrefixFilter(p.cfg.Scrape.TitlePrefix),
		filter.NewUniqueSlugFilter(),
	}
	if p.cfg.Transcript.YearOnly {
		filters = append(filters, filter.NewYearFilter(p.cfg.Year))
	}
	if p.skipExisting {
		existing, err := p.existingTexts()
		if err != nil {
			return 0, err
		}
		filters = append(filters, filter.NewAlreadyExtractedFilter(existing))
	}

	pending, err := filter.Apply(ctx, records, filters...)
	if err != nil {
		return 0, err
	}
	p.skip(StageExtract, "filtered", len(records)-len(pending))
	log.Printf("Pipeline: extracting %d of %d records with %d workers", len(pending), len(records), p.cfg.Transcript.Workers)

	opts := []transcript.Option{transcript.WithContentSelector(p.cfg.Transcript.ContentSelector)}
	if p.mirror != nil {
		opts = append(opts, transcript.WithMirror(p.mirror))
	}
	extractor, err := transcript.NewExtractor(p.fetcher, p.layout, p.cfg.Transcript.Origin, opts...)
	if err != nil {
		return 0, err
	}

	manager := worker.NewManager[domain.BriefingRecord]("Extract", p.cfg.Transcript.Workers)
	summary, err := manager.Run(ctx, pending, func(ctx context.Context, r domain.BriefingRecord) error {
		if _, err := extractor.Process(ctx, r); err != nil {
			return err
		}
		p.count(StageExtract, 1)
		return nil
	})

	errs := []error{err}
	for _, f := range summary.Failures {
		errs = append(errs, f.Err)
	}
	p.skip(StageExtract, "error", len(summary.Failures))
	return summary.Succeeded, errors.Join(errs...)
}

// existingTexts returns the slugs that already have a text artifact.
func (p *Pipeline) existingTexts() (map[string]bool, error) {
	names, err := globDir(p.layout.TextDir(), "*.txt")
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(names))
	for _, name := range names {
		existing[strings.TrimSuffix(name, ".txt")] = true
	}
	return existing, nil
}

// Analyze counts every text artifact and writes one counts artifact per
// date. Documents published on the same date are summed into that file.
func (p *Pipeline) Analyze(ctx context.Context) (int, error) {
	names, err := globDir(p.layout.TextDir(), "*.txt")
	if err != nil {
		return 0, err
	}

	counter := wordcount.NewCounter(p.cfg.Counting.ExtraStopwords)
	byDate := make(map[string]*domain.SpeakerWordCounts)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		key := strings.TrimSuffix(name, ".txt")
		d, err := slug.Date(key)
		if err != nil {
			log.Printf("Pipeline: skipping %s: %v", name, err)
			p.skip(StageAnalyze, "invalid_slug", 1)
			continue
		}

		counts, err := counter.CountFile(filepath.Join(p.layout.TextDir(), name))
		if err != nil {
			return 0, err
		}

		dateKey := d.Format(slug.DateLayout)
		if existing, ok := byDate[dateKey]; ok {
			existing.Merge(counts)
		} else {
			byDate[dateKey] = counts
		}
	}

	for dateKey, counts := range byDate {
		if _, err := wordcount.WriteCounts(p.layout, dateKey, counts); err != nil {
			return 0, fmt.Errorf("failed to write counts for %s: %w", dateKey, err)
		}
	}
	p.count(StageAnalyze, len(byDate))

	log.Printf("Pipeline: analyzed %d documents into %d counts files", len(names), len(byDate))
	return len(byDate), nil
}

// Summarize aggregates the counts of the configured year by week and saves
// the summary.
func (p *Pipeline) Summarize(ctx context.Context) (domain.WeeklySummary, error) {
	summary, err := weekly.Aggregate(ctx, p.layout.CountsDir(), p.cfg.Year, p.cfg.Terms)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate counts: %w", err)
	}
	if err := weekly.Save(p.layout, p.cfg.Year, summary); err != nil {
		return nil, err
	}
	p.count(StageSummarize, 1)
	return summary, nil
}

// Merge joins the saved weekly summary with the trend series and writes one
// table per term. A missing series file merges as all zeros.
func (p *Pipeline) Merge(ctx context.Context) error {
	summary, err := weekly.Load(p.layout, p.cfg.Year)
	if err != nil {
		return fmt.Errorf("failed to load weekly summary: %w", err)
	}

	series := domain.TrendSeries{}
	if _, statErr := os.Stat(p.cfg.SeriesPath()); statErr == nil {
		series, err = trends.LoadSeries(p.cfg.SeriesPath())
		if err != nil {
			return err
		}
	} else {
		log.Printf("Pipeline: WARNING no trend series at %s, trend values will be zero", p.cfg.SeriesPath())
	}

	merged := trends.Merge(summary, series, p.cfg.Year, p.cfg.Terms)
	if err := trends.WriteTables(p.layout.SummaryDir(), merged); err != nil {
		return fmt.Errorf("failed to write tables: %w", err)
	}
	p.count(StageMerge, len(merged))

	log.Printf("Pipeline: wrote %d term tables to %s", len(merged), p.layout.SummaryDir())
	return nil
}

// Run executes every stage in order. Partial failures of scrape and extract
// are collected and the later stages still run on what succeeded.
func (p *Pipeline) Run(ctx context.Context) error {
	var errs []error

	if _, err := p.Scrape(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", StageScrape, err))
	}
	if _, err := p.Extract(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", StageExtract, err))
	}
	if ctx.Err() != nil {
		return errors.Join(append(errs, ctx.Err())...)
	}

	if _, err := p.Analyze(ctx); err != nil {
		return errors.Join(append(errs, fmt.Errorf("%s: %w", StageAnalyze, err))...)
	}
	if _, err := p.Summarize(ctx); err != nil {
		return errors.Join(append(errs, fmt.Errorf("%s: %w", StageSummarize, err))...)
	}
	if err := p.Merge(ctx); err != nil {
		return errors.Join(append(errs, fmt.Errorf("%s: %w", StageMerge, err))...)
	}
	return errors.Join(errs...)
}

func (p *Pipeline) count(stage string, n int) {
	if p.metrics != nil && n > 0 {
		p.metrics.Documents.WithLabelValues(stage).Add(float64(n))
	}
}

func (p *Pipeline) skip(stage, reason string, n int) {
	if p.metrics != nil && n > 0 {
		p.metrics.Skipped.WithLabelValues(stage, reason).Add(float64(n))
	}
}

// globDir matches pattern in dir. A missing dir has no matches.
func globDir(dir, pattern string) ([]string, error) {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	names, err := doublestar.Glob(os.DirFS(dir), pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	return names, nil
}
