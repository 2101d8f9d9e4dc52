// Package listing reads the paginated index of briefings and turns each
// entry into a BriefingRecord.
package listing

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"briefing-trends/pkg/domain"
)

// DefaultTitlePrefix keeps press briefings and drops gaggles, statements and
// other room postings that share the listing.
const DefaultTitlePrefix = "Press Briefing"

var ErrNoEntryList = errors.New("listing page has no entry list")

// PageURL returns the URL of listing page n (0-based).
func PageURL(base string, page int) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", base, sep, page)
}

// Parse extracts the entries of the first .entry-list on the page whose
// title starts with titlePrefix. An empty prefix keeps every entry.
// Entries without a link or with an unreadable date are skipped.
func Parse(html []byte, titlePrefix string) ([]domain.BriefingRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	list := doc.Find(".entry-list").First()
	if list.Length() == 0 {
		return nil, ErrNoEntryList
	}

	var records []domain.BriefingRecord
	list.Find("li").Each(func(i int, item *goquery.Selection) {
		link := item.Find("h3 a").First()
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		title := strings.TrimSpace(link.Text())
		if !strings.HasPrefix(title, titlePrefix) {
			return
		}

		dateLine := strings.TrimSpace(item.Find(".date-line").First().Text())
		date, err := ParseDate(dateLine)
		if err != nil {
			log.Printf("Listing: skipping %q: %v", title, err)
			return
		}

		records = append(records, domain.BriefingRecord{
			Date:          date,
			Title:         title,
			TranscriptURL: strings.TrimSpace(href),
		})
	})

	return records, nil
}

// ParseDate reads a date-line such as "May 12, 2014". Other common layouts
// are accepted as a fallback. The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date line")
	}

	t, err := time.Parse(domain.RecordDateLayout, s)
	if err != nil {
		t, err = dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date %q: %w", s, err)
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
