package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing-trends/pkg/domain"
	"briefing-trends/pkg/slug"
)

func record(y int, m time.Month, d int, title string) domain.BriefingRecord {
	return domain.BriefingRecord{
		Date:          time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Title:         title,
		TranscriptURL: "/the-press-office/" + title,
	}
}

func TestApply(t *testing.T) {
	records := []domain.BriefingRecord{
		record(2014, time.May, 12, "Press Briefing by the Press Secretary, 5/12/14"),
		record(2014, time.May, 12, "Press Briefing by the Press Secretary, 5/12/14"),
		record(2014, time.May, 13, "Press Gaggle by the Press Secretary"),
		record(2013, time.December, 20, "Press Briefing by the Press Secretary, 12/20/13"),
		record(2014, time.June, 2, "Press Briefing by the Press Secretary, 6/2/14"),
	}

	got, err := Apply(context.Background(), records,
		NewTitlePrefixFilter("Press Briefing"),
		NewYearFilter(2014),
		NewUniqueSlugFilter(),
	)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, records[0], got[0])
	assert.Equal(t, records[4], got[1])
}

func TestApply_NoFilters(t *testing.T) {
	records := []domain.BriefingRecord{record(2014, time.May, 12, "a"), record(2014, time.May, 12, "a")}
	got, err := Apply(context.Background(), records)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestUniqueSlugFilter_KeepsFirst(t *testing.T) {
	f := NewUniqueSlugFilter()
	ctx := context.Background()

	first := record(2014, time.May, 12, "Press Briefing")
	second := first
	second.TranscriptURL = "/other"

	keep, err := f.ShouldKeep(ctx, first)
	require.NoError(t, err)
	assert.True(t, keep)

	keep, err = f.ShouldKeep(ctx, second)
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestAlreadyExtractedFilter(t *testing.T) {
	done := record(2014, time.May, 12, "Press Briefing, 5/12/14")
	pending := record(2014, time.May, 13, "Press Briefing, 5/13/14")

	f := NewAlreadyExtractedFilter(map[string]bool{slug.Make(done.Date, done.Title): true})
	got, err := Apply(context.Background(), []domain.BriefingRecord{done, pending}, f)
	require.NoError(t, err)
	assert.Equal(t, []domain.BriefingRecord{pending}, got)
}
