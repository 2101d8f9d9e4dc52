// Package wordcount attributes transcript lines to reporters or the press
// secretary and counts the words each side uses.
package wordcount

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"briefing-trends/pkg/artifact"
	"briefing-trends/pkg/domain"
	"briefing-trends/pkg/slug"
)

var killChars = strings.NewReplacer(",", "", `"`, "", "\r", "", "\n", "", "?", "", ":", "", ".", "")

// Classify attributes a line: reporters' questions start with "Q".
func Classify(line string) domain.Speaker {
	if strings.HasPrefix(line, "Q") {
		return domain.SpeakerReporters
	}
	return domain.SpeakerSecretary
}

// Counter tokenizes transcript text and counts the words that are not
// ignored.
type Counter struct {
	ignored map[string]bool
}

// NewCounter ignores the English stopwords plus extra.
func NewCounter(extra []string) *Counter {
	ignored := make(map[string]bool, len(englishStopwords)+len(extra))
	for _, w := range englishStopwords {
		ignored[w] = true
	}
	for _, w := range extra {
		ignored[strings.ToLower(w)] = true
	}
	return &Counter{ignored: ignored}
}

// Tokens returns the counted words of one line in order.
//
// Each whitespace-separated token is split again on "." and every piece is
// lowercased, stripped of punctuation and non-ASCII characters. Empty pieces
// are dropped, so "ukraine...crimea" yields both words.
func (c *Counter) Tokens(line string) []string {
	var tokens []string
	for _, field := range strings.Fields(line) {
		for _, piece := range strings.Split(field, ".") {
			word := asciiOnly(killChars.Replace(strings.ToLower(strings.TrimSpace(piece))))
			if word == "" || c.ignored[word] {
				continue
			}
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// Count tallies text line by line. Blank lines are skipped.
func (c *Counter) Count(text string) *domain.SpeakerWordCounts {
	counts := domain.NewSpeakerWordCounts()
	for _, line := range strings.Split(text, "\n") {
		c.countLine(counts, line)
	}
	return counts
}

// CountFile tallies the text artifact at path.
func (c *Counter) CountFile(path string) (*domain.SpeakerWordCounts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	counts := domain.NewSpeakerWordCounts()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		c.countLine(counts, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return counts, nil
}

func (c *Counter) countLine(counts *domain.SpeakerWordCounts, line string) {
	if strings.TrimRight(line, "\r") == "" {
		return
	}
	speaker := Classify(line)
	for _, word := range c.Tokens(line) {
		counts.Add(speaker, word)
	}
}

// CountsPath is the counts artifact for the document named by s. Documents
// sharing a date share the file.
func CountsPath(layout artifact.Layout, s string) (string, error) {
	d, err := slug.Date(s)
	if err != nil {
		return "", err
	}
	return layout.CountsPath(d.Format(slug.DateLayout)), nil
}

// WriteCounts persists counts for the document named by s and returns the
// path written.
func WriteCounts(layout artifact.Layout, s string, counts *domain.SpeakerWordCounts) (string, error) {
	path, err := CountsPath(layout, s)
	if err != nil {
		return "", err
	}
	if err := artifact.WriteJSON(path, counts); err != nil {
		return "", err
	}
	return path, nil
}

func asciiOnly(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return strings.Map(func(r rune) rune {
				if r > unicode.MaxASCII {
					return -1
				}
				return r
			}, s)
		}
	}
	return s
}
