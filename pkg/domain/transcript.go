package domain

import "time"

// TranscriptDocument is the raw body text extracted for one BriefingRecord.
//
// It is stored on disk as text/<slug>.txt and optionally mirrored to MongoDB,
// where Slug is the unique key.
type TranscriptDocument struct {
	// Slug is the join key shared by every per-document artifact.
	Slug string `bson:"slug" json:"slug"`

	// Title and Date are copied from the originating BriefingRecord.
	Title string    `bson:"title" json:"title"`
	Date  time.Time `bson:"date" json:"date"`

	// URL is the absolute transcript page URL that was fetched.
	URL string `bson:"url" json:"url"`

	// Text is the newline-joined block text.
	Text string `bson:"text" json:"text"`

	// Strategy names the extraction strategy that produced Text.
	Strategy string `bson:"strategy,omitempty" json:"strategy,omitempty"`

	// CrawledAt is when we fetched and processed this transcript.
	CrawledAt time.Time `bson:"crawled_at" json:"crawled_at"`
}
