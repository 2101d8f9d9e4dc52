package slug

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMake(t *testing.T) {
	tests := []struct {
		name  string
		date  time.Time
		title string
		want  string
	}{
		{
			name:  "press secretary briefing",
			date:  date(2014, time.May, 12),
			title: "Press Briefing by the Press Secretary, 5/12/14",
			want:  "05-12-14-press-briefing-by-the-press-secretary-51214",
		},
		{
			name:  "surrounding whitespace",
			date:  date(2014, time.October, 3),
			title: "  Press Briefing  ",
			want:  "10-03-14-press-briefing",
		},
		{
			name:  "accented letters keep their base",
			date:  date(2014, time.January, 7),
			title: "Press Briefing on Señor Café",
			want:  "01-07-14-press-briefing-on-senor-cafe",
		},
		{
			name:  "punctuation and dash runs collapse",
			date:  date(2014, time.March, 21),
			title: "Press Briefing -- Ukraine & Crimea: Update!",
			want:  "03-21-14-press-briefing-ukraine-crimea-update",
		},
		{
			name:  "underscores are separators",
			date:  date(2014, time.March, 21),
			title: "Press Briefing - _ebola_ snake_case",
			want:  "03-21-14-press-briefing-ebola-snake-case",
		},
		{
			name:  "empty title",
			date:  date(2014, time.March, 21),
			title: "",
			want:  "03-21-14",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.date, tt.title))
		})
	}
}

func TestMake_Charset(t *testing.T) {
	valid := regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	titles := []string{
		"Press Briefing by Josh Earnest — 10/1/2014",
		"Press Gaggle\ton Air Force One\n",
		"Press Briefing: « ISIL » & Ebola?!",
		"日本語 Press Briefing",
		"Press_Briefing _ Ebola__Update_",
	}
	for _, title := range titles {
		s := Make(date(2014, time.October, 1), title)
		assert.Regexp(t, valid, s, "title %q", title)
	}
}

func TestMake_Deterministic(t *testing.T) {
	d := date(2014, time.August, 4)
	title := "Press Briefing by the Press Secretary Josh Earnest, 8/4/2014"
	assert.Equal(t, Make(d, title), Make(d, title))
	assert.NotEqual(t, Make(d, title), Make(d.AddDate(0, 0, 1), title))
}

func TestDate(t *testing.T) {
	got, err := Date("05-12-14-press-briefing-by-the-press-secretary-51214")
	require.NoError(t, err)
	assert.Equal(t, date(2014, time.May, 12), got)

	got, err = Date("12-31-14")
	require.NoError(t, err)
	assert.Equal(t, date(2014, time.December, 31), got)
}

func TestDate_RoundTrip(t *testing.T) {
	d := date(2014, time.November, 30)
	got, err := Date(Make(d, "Press Briefing"))
	require.NoError(t, err)
	assert.True(t, d.Equal(got))
}

func TestDate_Invalid(t *testing.T) {
	for _, s := range []string{"", "press-briefing", "13-45-14-briefing", "ab-cd-ef-x"} {
		_, err := Date(s)
		assert.True(t, errors.Is(err, ErrInvalidSlug), "slug %q", s)
	}
}
