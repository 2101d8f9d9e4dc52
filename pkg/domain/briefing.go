package domain

import "time"

// BriefingRecord represents one listing entry that points at a transcript page.
// Its identity is the slug of its date and title.
type BriefingRecord struct {
	Date          time.Time `bson:"date" json:"date"`
	Title         string    `bson:"title" json:"title"`
	TranscriptURL string    `bson:"transcript_url" json:"transcript_url"`
}

// RecordDateLayout is the layout used for dates in the record store, matching
// the date-line text published on the listing pages.
const RecordDateLayout = "January 2, 2006"

// FormattedDate returns the record date in RecordDateLayout.
func (r BriefingRecord) FormattedDate() string {
	return r.Date.Format(RecordDateLayout)
}
