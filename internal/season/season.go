// Package season maps calendar time onto football season labels and validates
// the division codes used by the match feed.
//
// A season runs from August of year N to May of year N+1 and is labelled by
// the last two digits of both years: 2024/25 is "2425".
package season

import (
	"fmt"
	"time"
)

// Label is a four-digit season label such as "2425".
type Label string

// startMonth is the first month of a new season.
const startMonth = time.August

// Current returns the label of the season in progress at now.
func Current(now time.Time) Label {
	start := now.Year()
	if now.Month() < startMonth {
		start--
	}
	return FromStartYear(start)
}

// FromStartYear returns the label of the season that starts in year.
func FromStartYear(year int) Label {
	return Label(fmt.Sprintf("%02d%02d", mod100(year), mod100(year+1)))
}

// Range returns labels for every season starting in [startYear, endYear].
// An inverted range yields nil.
func Range(startYear, endYear int) []Label {
	if endYear < startYear {
		return nil
	}
	out := make([]Label, 0, endYear-startYear+1)
	for y := startYear; y <= endYear; y++ {
		out = append(out, FromStartYear(y))
	}
	return out
}

// Parse validates s as a season label: four digits where the second pair is
// the year after the first pair.
func Parse(s string) (Label, error) {
	if len(s) != 4 {
		return "", fmt.Errorf("season: invalid label %q: want 4 digits like \"2425\"", s)
	}
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", fmt.Errorf("season: invalid label %q: want 4 digits like \"2425\"", s)
		}
	}
	first := int(s[0]-'0')*10 + int(s[1]-'0')
	second := int(s[2]-'0')*10 + int(s[3]-'0')
	if (first+1)%100 != second {
		return "", fmt.Errorf("season: invalid label %q: %02d does not follow %02d", s, second, first)
	}
	return Label(s), nil
}

// StartYear returns the four-digit year the season starts in. Two-digit
// years below 50 are read as 20xx.
func (l Label) StartYear() int {
	if len(l) != 4 {
		return 0
	}
	yy := int(l[0]-'0')*10 + int(l[1]-'0')
	if yy < 50 {
		return 2000 + yy
	}
	return 1900 + yy
}

func (l Label) String() string { return string(l) }

func mod100(y int) int {
	m := y % 100
	if m < 0 {
		m += 100
	}
	return m
}
