package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"footballetl/internal/frame"
)

// FeedHeader is a trimmed-down header of a real season file.
const FeedHeader = "Div,Date,HomeTeam,AwayTeam,FTHG,FTAG,FTR"

// FeedCSV joins FeedHeader and rows into a feed body.
func FeedCSV(rows ...string) string {
	return strings.Join(append([]string{FeedHeader}, rows...), "\n") + "\n"
}

// Contract is the required-columns list matching FeedHeader.
func Contract() []string {
	return []string{"div", "date", "hometeam", "awayteam", "fthg", "ftag", "ftr", "season"}
}

// MatchFrame builds a cleaned-looking frame with one row per home team, all
// played on the same day in the given season.
func MatchFrame(t testing.TB, label string, homeTeams ...string) *frame.Frame {
	t.Helper()
	cols := []frame.Column{
		{Name: "div", Kind: frame.KindString},
		{Name: "date", Kind: frame.KindDate},
		{Name: "hometeam", Kind: frame.KindString},
		{Name: "awayteam", Kind: frame.KindString},
		{Name: "fthg", Kind: frame.KindInt},
		{Name: "season", Kind: frame.KindString},
	}
	rows := make([][]any, len(homeTeams))
	for i, h := range homeTeams {
		rows[i] = []any{"E0", Day(2024, 8, 16+i), h, "Away " + h, int64(i), label}
	}
	f, err := frame.New(cols, rows)
	require.NoError(t, err)
	return f
}
