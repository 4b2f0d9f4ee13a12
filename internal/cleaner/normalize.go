package cleaner

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// NormalizeHeader canonicalizes a feed column name: NFC, lowercase, trimmed,
// internal whitespace runs replaced by a single underscore. "Home Team"
// becomes "home_team" and "HomeTeam" becomes "hometeam".
func NormalizeHeader(h string) string {
	h = norm.NFC.String(strings.TrimSpace(h))
	h = lower.String(h)
	return strings.Join(strings.FieldsFunc(h, unicode.IsSpace), "_")
}

// NormalizeHeaders applies NormalizeHeader to every header.
func NormalizeHeaders(hs []string) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = NormalizeHeader(h)
	}
	return out
}

// normalizeCell trims a raw cell, maps non-breaking spaces to spaces and
// composes it to NFC so the same team always produces the same bytes.
func normalizeCell(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return norm.NFC.String(s)
}
