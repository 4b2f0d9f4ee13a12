package cleaner

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"footballetl/internal/frame"
	csvparser "footballetl/internal/parser/csv"
)

var contract = []string{"div", "date", "hometeam", "awayteam", "fthg", "ftag", "season"}

func newCleaner(t *testing.T, required []string, policy Policy) *Cleaner {
	t.Helper()
	c, err := New(Config{RequiredColumns: required, Policy: policy})
	require.NoError(t, err)
	return c
}

func table(header []string, rows ...[]string) *csvparser.Table {
	return &csvparser.Table{Header: header, Records: rows}
}

var feedHeader = []string{"Div", "Date", "HomeTeam", "AwayTeam", "FTHG", "FTAG", "FTR", "B365H"}

// TestClean_DuplicateRowsCollapse: two identical fixtures yield one row.
func TestClean_DuplicateRowsCollapse(t *testing.T) {
	t.Parallel()

	c := newCleaner(t, []string{"date", "hometeam", "awayteam", "ftr", "season"}, "")
	f, rep, err := c.Clean("2425", table(
		[]string{"Date", "HomeTeam", "AwayTeam", "FTR"},
		[]string{"15/08/2024", "Arsenal", "Brighton", "H"},
		[]string{"15/08/2024", "Arsenal", "Brighton", "H"},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, 1, rep.DroppedDuplicates)
}

// TestClean_InvalidDateDropped: the row with an unparsable date is dropped.
func TestClean_InvalidDateDropped(t *testing.T) {
	t.Parallel()

	c := newCleaner(t, contract, "")
	f, rep, err := c.Clean("2425", table(feedHeader,
		[]string{"E0", "invalid", "Man United", "Fulham", "1", "0", "H", "1.6"},
		[]string{"E0", "16/08/2024", "Chelsea", "Newcastle", "2", "1", "H", "2.1"},
	))
	require.NoError(t, err)
	require.Equal(t, 1, f.Len())
	home, err := f.Value(0, "hometeam")
	require.NoError(t, err)
	assert.Equal(t, "Chelsea", home)
	assert.Equal(t, Report{Input: 2, DroppedInvalid: 1, Output: 1}, rep)
}

func TestClean_EmptyInput(t *testing.T) {
	t.Parallel()

	c := newCleaner(t, contract, "")
	_, _, err := c.Clean("2425", table(feedHeader))
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, _, err = c.Clean("2425", nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

// TestClean_ProjectsAndTypes checks column order, kinds and the season stamp.
func TestClean_ProjectsAndTypes(t *testing.T) {
	t.Parallel()

	c := newCleaner(t, contract, "")
	f, _, err := c.Clean("2425", table(feedHeader,
		[]string{"E0", "16/08/2024", " Man United ", "Fulham", "1", "0", "H", "1.6"},
		[]string{"E0", "17/08/24", "Ipswich", "Liverpool", "0", "2", "A", "7"},
	))
	require.NoError(t, err)
	assert.Equal(t, contract, f.Names())

	kinds := map[string]frame.Kind{}
	for _, col := range f.Columns {
		kinds[col.Name] = col.Kind
	}
	assert.Equal(t, frame.KindDate, kinds["date"])
	assert.Equal(t, frame.KindInt, kinds["fthg"])
	assert.Equal(t, frame.KindString, kinds["season"])

	assert.Equal(t, []any{
		"E0", time.Date(2024, time.August, 16, 0, 0, 0, 0, time.UTC), "Man United", "Fulham", int64(1), int64(0), "2425",
	}, f.Rows[0])
	assert.Equal(t, time.Date(2024, time.August, 17, 0, 0, 0, 0, time.UTC), f.Rows[1][1])
}

func TestClean_FloatInference(t *testing.T) {
	t.Parallel()

	c := newCleaner(t, []string{"date", "hometeam", "awayteam", "b365h"}, "")
	f, _, err := c.Clean("2425", table(feedHeader,
		[]string{"E0", "16/08/2024", "Man United", "Fulham", "1", "0", "H", "1.6"},
		[]string{"E0", "17/08/2024", "Ipswich", "Liverpool", "0", "2", "A", "7"},
	))
	require.NoError(t, err)
	col, ok := f.Column("b365h")
	require.True(t, ok)
	assert.Equal(t, frame.KindFloat, col.Kind)
	assert.Equal(t, 7.0, f.Rows[1][3])
}

// TestClean_StrictVsLenient: a blank optional cell drops the row only under
// the strict policy.
func TestClean_StrictVsLenient(t *testing.T) {
	t.Parallel()

	raw := table(feedHeader,
		[]string{"E0", "16/08/2024", "Man United", "Fulham", "1", "0", "H", ""},
		[]string{"E0", "17/08/2024", "Ipswich", "Liverpool", "0", "2", "A", "7"},
		[]string{"E0", "17/08/2024", "  ", "Brentford", "0", "2", "A", "7"},
	)

	strict := newCleaner(t, contract, PolicyStrict)
	f, rep, err := strict.Clean("2425", raw)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, 2, rep.DroppedInvalid)

	lenient := newCleaner(t, append(append([]string(nil), contract...), "b365h"), PolicyLenient)
	f, rep, err = lenient.Clean("2425", raw)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, 1, rep.DroppedInvalid)
	col, _ := f.Column("b365h")
	assert.Equal(t, frame.KindString, col.Kind)
}

func TestClean_MissingRequiredColumns(t *testing.T) {
	t.Parallel()

	c := newCleaner(t, []string{"date", "hometeam", "awayteam", "hthg", "fthg", "season"}, "")
	_, _, err := c.Clean("2425", table(feedHeader,
		[]string{"E0", "16/08/2024", "Man United", "Fulham", "1", "0", "H", "1.6"},
	))
	require.Error(t, err)
	sve, ok := AsSchemaValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"hthg"}, sve.Missing)
	assert.Contains(t, err.Error(), "hthg")
}

func TestClean_MissingIdentityColumns(t *testing.T) {
	t.Parallel()

	c := newCleaner(t, contract, "")
	_, _, err := c.Clean("2425", table([]string{"Div", "Date"}, []string{"E0", "16/08/2024"}))
	sve, ok := AsSchemaValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"awayteam", "hometeam"}, sve.Missing)
}

// TestClean_UnnamedAndSpacedHeaders handles trailing empty columns and
// spaced headers.
func TestClean_UnnamedAndSpacedHeaders(t *testing.T) {
	t.Parallel()

	c := newCleaner(t, []string{"date", "hometeam", "awayteam", "home_goals"}, PolicyStrict)
	f, _, err := c.Clean("2425", table(
		[]string{"Date", "HomeTeam", "AwayTeam", "Home Goals", "", ""},
		[]string{"16/08/2024", "Man United", "Fulham", "1", "", ""},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, int64(1), f.Rows[0][3])
}

// TestClean_SeasonOverwritten stamps the label over any season the feed has.
func TestClean_SeasonOverwritten(t *testing.T) {
	t.Parallel()

	c := newCleaner(t, []string{"date", "hometeam", "awayteam", "season"}, "")
	f, _, err := c.Clean("2324", table(
		[]string{"Date", "HomeTeam", "AwayTeam", "Season"},
		[]string{"16/08/2023", "Burnley", "Man City", "junk"},
	))
	require.NoError(t, err)
	assert.Equal(t, "2324", f.Rows[0][3])
}

// TestClean_DedupKeepsFirst keeps the first of two rows that share identity
// but differ elsewhere.
func TestClean_DedupKeepsFirst(t *testing.T) {
	t.Parallel()

	c := newCleaner(t, contract, "")
	f, _, err := c.Clean("2425", table(feedHeader,
		[]string{"E0", "16/08/2024", "Man United", "Fulham", "1", "0", "H", "1.6"},
		[]string{"E0", "16/08/24", "Man United", "Fulham", "3", "3", "D", "1.6"},
		[]string{"E1", "16/08/2024", "Man United", "Fulham", "2", "2", "D", "1.6"},
	))
	require.NoError(t, err)
	require.Equal(t, 2, f.Len())
	assert.Equal(t, int64(1), f.Rows[0][4])
	assert.Equal(t, "E1", f.Rows[1][0])
}

func TestNew_Configuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
	}{
		{"empty contract", Config{}},
		{"blank column", Config{RequiredColumns: []string{"date", " "}}},
		{"duplicate", Config{RequiredColumns: []string{"Date", "date"}}},
		{"bad policy", Config{RequiredColumns: []string{"date"}, Policy: "loose"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tc.cfg)
			var ce *ConfigurationError
			assert.True(t, errors.As(err, &ce), "got %v", err)
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hometeam", NormalizeHeader("HomeTeam"))
	assert.Equal(t, "home_team", NormalizeHeader(" Home  Team "))
	assert.Equal(t, "b365>2.5", NormalizeHeader("B365>2.5"))
	assert.Equal(t, "", NormalizeHeader("   "))
}

func TestInferKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, frame.KindInt, inferKind([]string{"1", "-2"}))
	assert.Equal(t, frame.KindFloat, inferKind([]string{"1", "2.5"}))
	assert.Equal(t, frame.KindString, inferKind([]string{"1", "H"}))
	assert.Equal(t, frame.KindString, inferKind([]string{"1", ""}))
	assert.Equal(t, frame.KindString, inferKind(nil))
}

func TestErrorsArePermanent(t *testing.T) {
	t.Parallel()

	type permanent interface{ Permanent() bool }
	for _, err := range []error{ErrEmptyInput, &ConfigurationError{}, &SchemaValidationError{}} {
		p, ok := err.(permanent)
		require.True(t, ok)
		assert.True(t, p.Permanent())
	}
}
