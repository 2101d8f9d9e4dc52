// Package transcript fetches briefing transcript pages and stores their body
// text, one block per line.
package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"briefing-trends/pkg/artifact"
	"briefing-trends/pkg/domain"
	"briefing-trends/pkg/fetcher"
	"briefing-trends/pkg/slug"
)

// DefaultContentSelector locates the transcript body.
const DefaultContentSelector = "#content"

var (
	ErrNoContent       = errors.New("page has no content container")
	ErrEmptyTranscript = errors.New("no strategy produced transcript text")
)

// Mirror receives every extracted document in addition to the text artifact.
type Mirror interface {
	Save(ctx context.Context, doc *domain.TranscriptDocument) error
}

// Extractor turns BriefingRecords into text artifacts.
type Extractor struct {
	fetcher    fetcher.Fetcher
	layout     artifact.Layout
	origin     *url.URL
	selector   string
	strategies []Strategy
	mirror     Mirror
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithContentSelector overrides DefaultContentSelector.
func WithContentSelector(selector string) Option {
	return func(e *Extractor) { e.selector = selector }
}

// WithStrategies replaces DefaultStrategies.
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Extractor) { e.strategies = strategies }
}

// WithMirror copies every document to m.
func WithMirror(m Mirror) Option {
	return func(e *Extractor) { e.mirror = m }
}

// NewExtractor creates an extractor that resolves relative transcript links
// against origin and writes artifacts under layout.
func NewExtractor(f fetcher.Fetcher, layout artifact.Layout, origin string, opts ...Option) (*Extractor, error) {
	o, err := url.Parse(origin)
	if err != nil || o.Scheme == "" || o.Host == "" {
		return nil, fmt.Errorf("invalid site origin %q", origin)
	}

	e := &Extractor{
		fetcher:    f,
		layout:     layout,
		origin:     o,
		selector:   DefaultContentSelector,
		strategies: DefaultStrategies(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ResolveURL returns the absolute transcript URL for href.
func (e *Extractor) ResolveURL(href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("failed to parse transcript link %q: %w", href, err)
	}
	return e.origin.ResolveReference(ref).String(), nil
}

// Extract runs the strategies over html in order and returns the first
// non-empty result, joined with newlines, with the winning strategy name.
func (e *Extractor) Extract(html []byte, pageURL string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &Page{HTML: html, Doc: doc, Content: doc.Find(e.selector).First()}
	if u, err := url.Parse(pageURL); err == nil {
		page.URL = u
	}

	for _, s := range e.strategies {
		blocks, err := s.Blocks(page)
		if err != nil {
			log.Printf("Transcript: strategy %s failed on %s: %v", s.Name(), pageURL, err)
			continue
		}
		if len(blocks) > 0 {
			return strings.Join(blocks, "\n"), s.Name(), nil
		}
	}

	if page.Content.Length() == 0 {
		return "", "", ErrNoContent
	}
	return "", "", ErrEmptyTranscript
}

// Process fetches the transcript of r, writes text/<slug>.txt and mirrors
// the document when a mirror is configured. Re-running overwrites the
// artifact.
func (e *Extractor) Process(ctx context.Context, r domain.BriefingRecord) (*domain.TranscriptDocument, error) {
	key := slug.Make(r.Date, r.Title)

	pageURL, err := e.ResolveURL(r.TranscriptURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	html, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transcript %s: %w", key, err)
	}

	text, strategy, err := e.Extract(html, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract transcript %s: %w", key, err)
	}

	if err := artifact.WriteFile(e.layout.TextPath(key), []byte(text)); err != nil {
		return nil, fmt.Errorf("failed to save transcript %s: %w", key, err)
	}

	doc := &domain.TranscriptDocument{
		Slug:      key,
		Title:     r.Title,
		Date:      r.Date,
		URL:       pageURL,
		Text:      text,
		Strategy:  strategy,
		CrawledAt: time.Now().UTC(),
	}

	if e.mirror != nil {
		if err := e.mirror.Save(ctx, doc); err != nil {
			log.Printf("Transcript: WARNING mirror failed for %s: %v", key, err)
		}
	}
	return doc, nil
}
