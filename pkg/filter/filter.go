// Package filter narrows record sets before a stage processes them.
package filter

import (
	"context"
	"fmt"
	"strings"

	"briefing-trends/pkg/domain"
	"briefing-trends/pkg/slug"
)

// Filter decides whether a record should be processed
type Filter interface {
	ShouldKeep(ctx context.Context, record domain.BriefingRecord) (bool, error)
}

// Apply runs records through every filter in order and keeps those that pass all of them
func Apply(ctx context.Context, records []domain.BriefingRecord, filters ...Filter) ([]domain.BriefingRecord, error) {
	filtered := make([]domain.BriefingRecord, 0, len(records))

	for _, r := range records {
		keep := true
		for _, f := range filters {
			shouldKeep, err := f.ShouldKeep(ctx, r)
			if err != nil {
				return nil, fmt.Errorf("filter error for %q: %w", r.Title, err)
			}
			if !shouldKeep {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, r)
		}
	}

	return filtered, nil
}

// TitlePrefixFilter keeps records whose title starts with a prefix
type TitlePrefixFilter struct {
	prefix string
}

// NewTitlePrefixFilter creates a new title prefix filter
func NewTitlePrefixFilter(prefix string) *TitlePrefixFilter {
	return &TitlePrefixFilter{prefix: prefix}
}

// ShouldKeep returns true if the title starts with the prefix
func (f *TitlePrefixFilter) ShouldKeep(_ context.Context, r domain.BriefingRecord) (bool, error) {
	return strings.HasPrefix(r.Title, f.prefix), nil
}

// YearFilter keeps records published in one calendar year
type YearFilter struct {
	year int
}

// NewYearFilter creates a new year filter
func NewYearFilter(year int) *YearFilter {
	return &YearFilter{year: year}
}

// ShouldKeep returns true if the record date falls in the year
func (f *YearFilter) ShouldKeep(_ context.Context, r domain.BriefingRecord) (bool, error) {
	return r.Date.Year() == f.year, nil
}

// UniqueSlugFilter drops every record whose slug was already seen.
// It is stateful: use a fresh filter per pass.
type UniqueSlugFilter struct {
	seen map[string]bool
}

// NewUniqueSlugFilter creates a new slug de-duplication filter
func NewUniqueSlugFilter() *UniqueSlugFilter {
	return &UniqueSlugFilter{seen: make(map[string]bool)}
}

// ShouldKeep returns false for the second and later records with a given slug
func (f *UniqueSlugFilter) ShouldKeep(_ context.Context, r domain.BriefingRecord) (bool, error) {
	key := slug.Make(r.Date, r.Title)
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

// AlreadyExtractedFilter drops records whose slug is in the provided set
type AlreadyExtractedFilter struct {
	extracted map[string]bool
}

// NewAlreadyExtractedFilter creates a new already-extracted filter
func NewAlreadyExtractedFilter(extracted map[string]bool) *AlreadyExtractedFilter {
	return &AlreadyExtractedFilter{extracted: extracted}
}

// ShouldKeep returns false if the slug is already extracted
func (f *AlreadyExtractedFilter) ShouldKeep(_ context.Context, r domain.BriefingRecord) (bool, error) {
	return !f.extracted[slug.Make(r.Date, r.Title)], nil
}
