// Package slug derives the stable identifier of a briefing from its date and
// title. The identifier names the text artifact and carries the date for
// every later stage.
package slug

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DateLayout is the date prefix of every slug.
const DateLayout = "01-02-06"

var ErrInvalidSlug = errors.New("invalid slug")

var (
	disallowed = regexp.MustCompile(`[^\w\s-]`)
	separators = regexp.MustCompile(`[-_\s]+`)
)

// Make returns the slug for a briefing published on date with title.
// The result holds only [a-z0-9-] with no repeated or edge hyphens;
// underscores count as separators.
func Make(date time.Time, title string) string {
	raw := date.Format(DateLayout) + "-" + strings.TrimSpace(title)

	s := toASCII(raw)
	s = disallowed.ReplaceAllString(s, "")
	s = strings.ToLower(strings.TrimSpace(s))
	s = separators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Date recovers the publication date from the first three segments of s.
func Date(s string) (time.Time, error) {
	parts := strings.SplitN(s, "-", 4)
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSlug, s)
	}
	d, err := time.Parse(DateLayout, strings.Join(parts[:3], "-"))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidSlug, s, err)
	}
	return d, nil
}

// toASCII decomposes to NFKD and drops every non-ASCII rune, so accented
// letters keep their base letter.
func toASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
