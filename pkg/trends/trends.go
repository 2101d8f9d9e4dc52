// Package trends joins the weekly term totals with an external search
// interest series and writes one table per term.
package trends

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"

	"briefing-trends/pkg/artifact"
	"briefing-trends/pkg/domain"
	"briefing-trends/pkg/weekly"
)

var tableHeader = []string{"Week", "Reporters", "Secretary", "Trend"}

// LoadSeries reads a date-keyed trend series artifact.
func LoadSeries(path string) (domain.TrendSeries, error) {
	var series domain.TrendSeries
	if err := artifact.ReadJSON(path, &series); err != nil {
		return nil, err
	}
	return series, nil
}

// SaveSeries writes series as a trend series artifact.
func SaveSeries(path string, series domain.TrendSeries) error {
	return artifact.WriteJSON(path, series)
}

// Merge produces one row per Sunday of year for every term, in week order.
// Weeks or terms missing from summary or series are zero.
func Merge(summary domain.WeeklySummary, series domain.TrendSeries, year int, terms []string) map[string][]domain.MergedRow {
	sundays := weekly.Sundays(year)
	merged := make(map[string][]domain.MergedRow, len(terms))

	for _, term := range terms {
		rows := make([]domain.MergedRow, 0, len(sundays))
		for _, sunday := range sundays {
			key := sunday.Format(domain.WeekKeyLayout)
			bucket := summary[key]
			rows = append(rows, domain.MergedRow{
				WeekStart:      sunday,
				ReporterCount:  bucket.Reporters[term],
				SecretaryCount: bucket.Secretary[term],
				TrendValue:     series.Value(key, term),
			})
		}
		merged[term] = rows
	}
	return merged
}

// TablePath is the table written for term.
func TablePath(dir, term string) string {
	return filepath.Join(dir, term+".csv")
}

// WriteTables writes <dir>/<term>.csv for every term in merged.
func WriteTables(dir string, merged map[string][]domain.MergedRow) error {
	for term, rows := range merged {
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)

		if err := w.Write(tableHeader); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", term, err)
		}
		for _, row := range rows {
			record := []string{
				row.WeekStart.Format(domain.WeekKeyLayout),
				strconv.Itoa(row.ReporterCount),
				strconv.Itoa(row.SecretaryCount),
				strconv.FormatFloat(row.TrendValue, 'f', -1, 64),
			}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("failed to write row for %s: %w", term, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("failed to flush table for %s: %w", term, err)
		}

		if err := artifact.WriteFile(TablePath(dir, term), buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}
