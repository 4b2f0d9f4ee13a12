// Package dateparse turns the date strings found in the match feed into
// calendar dates. The feed has changed its date layout several times over the
// years, so parsing tries a fixed list of layouts in priority order.
package dateparse

import (
	"strings"
	"time"
)

// centuryPivot is the first year accepted as-is. Anything earlier came from a
// two-digit year and belongs to the 2000s.
const centuryPivot = 1950

// layouts are tried in order; the first successful parse wins.
var layouts = []string{
	"2/1/2006",
	"2/1/06",
	"2006-1-2",
	"2-1-2006",
	"2-1-06",
}

// fallback is the generic ISO-ish layout tried after every known layout failed.
const fallback = "2006/1/2"

// Parse returns the calendar date for s at UTC midnight. ok is false for empty,
// blank or unparsable input; Parse never panics.
func Parse(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if d, err := time.Parse(layout, s); err == nil {
			return normalize(d), true
		}
	}
	if d, err := time.Parse(fallback, s); err == nil {
		return normalize(d), true
	}
	return time.Time{}, false
}

// MustParse is Parse for fixtures; it panics on bad input.
func MustParse(s string) time.Time {
	t, ok := Parse(s)
	if !ok {
		panic("dateparse: cannot parse " + s)
	}
	return t
}

func normalize(d time.Time) time.Time {
	if d.Year() < centuryPivot {
		d = d.AddDate(100, 0, 0)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
