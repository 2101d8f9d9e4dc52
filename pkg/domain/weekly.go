package domain

import "time"

// WeekKeyLayout formats week-start dates in summaries, trend series and tables.
const WeekKeyLayout = "2006-01-02"

// WeekBucket holds tracked-term totals for one Sunday-aligned week.
type WeekBucket struct {
	Reporters map[string]int `json:"reporters"`
	Secretary map[string]int `json:"secretary"`
}

// NewWeekBucket returns a bucket with every term present at zero.
func NewWeekBucket(terms []string) WeekBucket {
	b := WeekBucket{
		Reporters: make(map[string]int, len(terms)),
		Secretary: make(map[string]int, len(terms)),
	}
	for _, term := range terms {
		b.Reporters[term] = 0
		b.Secretary[term] = 0
	}
	return b
}

// WeeklySummary maps a week-start key (WeekKeyLayout) to its bucket.
type WeeklySummary map[string]WeekBucket

// TrendSeries maps a date key (WeekKeyLayout) to term values. It is supplied
// from outside the pipeline and only ever read.
type TrendSeries map[string]map[string]float64

// Value returns the trend value for term on date, or zero.
func (s TrendSeries) Value(date, term string) float64 {
	terms, ok := s[date]
	if !ok {
		return 0
	}
	return terms[term]
}

// MergedRow is one output line of a per-term table.
type MergedRow struct {
	WeekStart      time.Time
	ReporterCount  int
	SecretaryCount int
	TrendValue     float64
}
