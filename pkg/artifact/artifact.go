// Package artifact defines the on-disk layout of pipeline artifacts and the
// write discipline shared by every stage: whole-file replace through a temp
// file and rename, so an aborted stage never leaves a half-written artifact.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Layout resolves artifact paths under a data directory.
type Layout struct {
	DataDir string
}

// RecordsPath is the flat record store.
func (l Layout) RecordsPath() string {
	return filepath.Join(l.DataDir, "briefing_links.csv")
}

// TextDir holds one <slug>.txt per transcript.
func (l Layout) TextDir() string {
	return filepath.Join(l.DataDir, "text")
}

// TextPath is the text artifact for slug.
func (l Layout) TextPath(slug string) string {
	return filepath.Join(l.TextDir(), slug+".txt")
}

// CountsDir holds one <MM-DD-YY>.json per document.
func (l Layout) CountsDir() string {
	return filepath.Join(l.TextDir(), "counts")
}

// CountsPath is the counts artifact for a MM-DD-YY date key.
func (l Layout) CountsPath(dateKey string) string {
	return filepath.Join(l.CountsDir(), dateKey+".json")
}

// SummaryDir holds the yearly summary, the trend series and per-term tables.
func (l Layout) SummaryDir() string {
	return filepath.Join(l.TextDir(), "summary")
}

// SummaryPath is the weekly summary for year.
func (l Layout) SummaryPath(year int) string {
	return filepath.Join(l.SummaryDir(), fmt.Sprintf("%d.json", year))
}

// WriteFile atomically replaces path with data, creating parent directories.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// WriteJSON marshals v with indentation and writes it atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	return WriteFile(path, data)
}

// ReadJSON decodes the JSON file at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
