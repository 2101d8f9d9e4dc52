package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"briefing-trends/pkg/domain"
)

var csvHeader = []string{"date", "title", "transcript_url"}

// CSVStore appends records to a flat CSV file. The header is written once,
// when the file is created. Existing rows are never rewritten, so scraping a
// page twice produces duplicate rows; readers de-duplicate by slug.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

// NewCSVStore creates a store backed by the file at path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path returns the backing file path.
func (s *CSVStore) Path() string {
	return s.path
}

// Append writes records at the end of the file.
func (s *CSVStore) Append(_ context.Context, records ...domain.BriefingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write header to %s: %w", s.path, err)
		}
	}
	for _, r := range records {
		if err := w.Write([]string{r.FormattedDate(), r.Title, r.TranscriptURL}); err != nil {
			return fmt.Errorf("failed to write record to %s: %w", s.path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", s.path, err)
	}
	return nil
}

// ReadAll returns every well-formed row in file order. A missing file is an
// empty store. Header rows and malformed rows are skipped.
func (s *CSVStore) ReadAll(_ context.Context) ([]domain.BriefingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records []domain.BriefingRecord
	for line := 1; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			log.Printf("CSVStore: skipping unreadable line %d of %s: %v", parseErr.Line, s.path, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
		}

		if len(row) != len(csvHeader) || row[0] == csvHeader[0] {
			continue
		}

		date, err := time.Parse(domain.RecordDateLayout, row[0])
		if err != nil {
			log.Printf("CSVStore: skipping line %d of %s: bad date %q", line, s.path, row[0])
			continue
		}
		if row[1] == "" || row[2] == "" {
			continue
		}

		records = append(records, domain.BriefingRecord{
			Date:          date,
			Title:         row[1],
			TranscriptURL: row[2],
		})
	}
	return records, nil
}

// Close is a no-op; the file is opened per call.
func (s *CSVStore) Close() error {
	return nil
}
