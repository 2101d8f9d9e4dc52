package listing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"briefing-trends/pkg/domain"
	"briefing-trends/pkg/fetcher"
)

// FeedSource reads briefings from an RSS or Atom feed of the briefing room.
// The feed is retrieved through the same Fetcher as the listing pages.
type FeedSource struct {
	fetcher     fetcher.Fetcher
	feedParser  *gofeed.Parser
	titlePrefix string
}

// NewFeedSource creates a new feed source
func NewFeedSource(f fetcher.Fetcher, titlePrefix string) *FeedSource {
	return &FeedSource{
		fetcher:     f,
		feedParser:  gofeed.NewParser(),
		titlePrefix: titlePrefix,
	}
}

// Records fetches feedURL and returns one record per kept item. Items
// without a link or a publication date are dropped.
func (s *FeedSource) Records(ctx context.Context, feedURL string) ([]domain.BriefingRecord, error) {
	body, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	feed, err := s.feedParser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	var records []domain.BriefingRecord
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if item.Link == "" || !strings.HasPrefix(title, s.titlePrefix) {
			continue
		}

		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil {
			continue
		}

		records = append(records, domain.BriefingRecord{
			Date:          time.Date(published.Year(), published.Month(), published.Day(), 0, 0, 0, 0, time.UTC),
			Title:         title,
			TranscriptURL: item.Link,
		})
	}
	return records, nil
}
