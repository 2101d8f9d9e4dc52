// Package weekly aligns per-document counts to Sunday-starting weeks and
// totals the tracked terms for each week of a year.
package weekly

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"briefing-trends/pkg/artifact"
	"briefing-trends/pkg/domain"
	"briefing-trends/pkg/slug"
)

// Sundays returns every Sunday of year in order, starting from the first
// Sunday on or after January 1.
func Sundays(year int) []time.Time {
	d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	d = d.AddDate(0, 0, (7-int(d.Weekday()))%7)

	var sundays []time.Time
	for d.Year() == year {
		sundays = append(sundays, d)
		d = d.AddDate(0, 0, 7)
	}
	return sundays
}

// WeekStart returns the Sunday on or before d, at midnight UTC.
func WeekStart(d time.Time) time.Time {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// NewSummary returns a summary covering every Sunday of year with all terms
// at zero.
func NewSummary(year int, terms []string) domain.WeeklySummary {
	summary := make(domain.WeeklySummary)
	for _, sunday := range Sundays(year) {
		summary[sunday.Format(domain.WeekKeyLayout)] = domain.NewWeekBucket(terms)
	}
	return summary
}

// Aggregate totals terms from every counts artifact in countsDir dated in
// year. Files whose name is not a MM-DD-YY date or whose year differs are
// skipped. A document whose week starts in the previous December has no
// week in the grid and is skipped as well.
func Aggregate(ctx context.Context, countsDir string, year int, terms []string) (domain.WeeklySummary, error) {
	summary := NewSummary(year, terms)

	names, err := doublestar.Glob(os.DirFS(countsDir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", countsDir, err)
	}

	used := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d, err := time.Parse(slug.DateLayout, strings.TrimSuffix(name, ".json"))
		if err != nil {
			log.Printf("Weekly: skipping %s: not a dated counts file", name)
			continue
		}
		if d.Year() != year {
			continue
		}

		key := WeekStart(d).Format(domain.WeekKeyLayout)
		bucket, ok := summary[key]
		if !ok {
			log.Printf("Weekly: skipping %s: week of %s is outside %d", name, key, year)
			continue
		}

		var counts domain.SpeakerWordCounts
		if err := artifact.ReadJSON(filepath.Join(countsDir, name), &counts); err != nil {
			return nil, err
		}

		for _, term := range terms {
			bucket.Reporters[term] += counts.Reporters.Words[term]
			bucket.Secretary[term] += counts.Secretary.Words[term]
		}
		used++
	}

	log.Printf("Weekly: aggregated %d of %d counts files into %d weeks of %d", used, len(names), len(summary), year)
	return summary, nil
}

// Save writes summary to the summary artifact for year.
func Save(layout artifact.Layout, year int, summary domain.WeeklySummary) error {
	return artifact.WriteJSON(layout.SummaryPath(year), summary)
}

// Load reads the summary artifact for year.
func Load(layout artifact.Layout, year int) (domain.WeeklySummary, error) {
	var summary domain.WeeklySummary
	if err := artifact.ReadJSON(layout.SummaryPath(year), &summary); err != nil {
		return nil, err
	}
	return summary, nil
}
