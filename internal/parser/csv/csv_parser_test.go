package csv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Basic(t *testing.T) {
	t.Parallel()

	in := "\uFEFFDiv,Date,HomeTeam,AwayTeam\nE0,16/08/2024,Man United,Fulham\nE0,17/08/2024,Ipswich,Liverpool\n"
	tbl, err := NewParser(Options{}).Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Div", "Date", "HomeTeam", "AwayTeam"}, tbl.Header)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "Ipswich", tbl.Records[1][2])
}

// TestParse_RaggedRows checks that short rows are padded and long rows cut.
func TestParse_RaggedRows(t *testing.T) {
	t.Parallel()

	in := "a,b,c\n1,2\n1,2,3,4\n"
	tbl, err := NewParser(Options{}).Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", ""}, tbl.Records[0])
	assert.Equal(t, []string{"1", "2", "3"}, tbl.Records[1])
}

func TestParse_SkipBlankRows(t *testing.T) {
	t.Parallel()

	in := "a,b\n1,2\n,\n,,\n"
	tbl, err := NewParser(Options{SkipBlankRows: true}).Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	tbl, err = NewParser(Options{}).Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	_, err := NewParser(Options{}).Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)

	tbl, err := NewParser(Options{}).Parse(strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

// TestParseBytes_Windows1252 decodes a latin team name that is not UTF-8.
func TestParseBytes_Windows1252(t *testing.T) {
	t.Parallel()

	in := []byte("HomeTeam\nM\xfcnchen\n")
	tbl, err := NewParser(Options{}).ParseBytes(in)
	require.NoError(t, err)
	assert.Equal(t, "München", tbl.Records[0][0])
}

func TestParse_Semicolon(t *testing.T) {
	t.Parallel()

	tbl, err := NewParser(Options{Comma: ';'}).Parse(strings.NewReader("a;b\n1;2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, tbl.Records[0])
}

func TestStripHeaderBOM(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"Div", "Date"}, StripHeaderBOM([]string{"\uFEFFDiv", "Date"}))
	assert.Equal(t, []string{"Div"}, StripHeaderBOM([]string{"Div"}))
	assert.Empty(t, StripHeaderBOM(nil))
	assert.Equal(t, 3, len(utf8BOM), "BOM must be the escaped three-byte sequence")
}
