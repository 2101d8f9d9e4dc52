package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/araddon/dateparse"

	"briefing-trends/pkg/domain"
	"briefing-trends/pkg/fetcher"
)

// Graph is a search-interest response with one line per term.
type Graph struct {
	Lines []GraphLine `json:"lines"`
}

// GraphLine is the series of one term.
type GraphLine struct {
	Term   string       `json:"term"`
	Points []GraphPoint `json:"points"`
}

// GraphPoint is one dated value.
type GraphPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Series pivots the graph into a date-keyed series. Dates are normalized to
// YYYY-MM-DD when they parse; other keys are kept verbatim.
func (g Graph) Series() domain.TrendSeries {
	series := make(domain.TrendSeries)
	for _, line := range g.Lines {
		for _, point := range line.Points {
			key := normalizeDate(point.Date)
			if series[key] == nil {
				series[key] = make(map[string]float64)
			}
			series[key][line.Term] = point.Value
		}
	}
	return series
}

// ImportGraph decodes a graph response from r and returns its series.
func ImportGraph(r io.Reader) (domain.TrendSeries, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to decode trend graph: %w", err)
	}
	return g.Series(), nil
}

// FetchGraph retrieves a graph response through f.
func FetchGraph(ctx context.Context, f fetcher.Fetcher, url string) (domain.TrendSeries, error) {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trend graph: %w", err)
	}
	return ImportGraph(bytes.NewReader(body))
}

func normalizeDate(s string) string {
	if _, err := time.Parse(domain.WeekKeyLayout, s); err == nil {
		return s
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return s
	}
	return t.Format(domain.WeekKeyLayout)
}
