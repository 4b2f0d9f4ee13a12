package dateparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestParse_KnownLayouts covers every layout the feed has used.
func TestParse_KnownLayouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Time
	}{
		{"15/08/2024", date(2024, time.August, 15)},
		{"15/08/05", date(2005, time.August, 15)},
		{"2005-08-15", date(2005, time.August, 15)},
		{"15-08-2005", date(2005, time.August, 15)},
		{"15-08-05", date(2005, time.August, 15)},
		{"2005/08/15", date(2005, time.August, 15)},
		{"5/8/2024", date(2024, time.August, 5)},
		{"  16/08/2024 ", date(2024, time.August, 16)},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, ok := Parse(tc.in)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestParse_CenturyShift checks that years before 1950 are moved into the 2000s.
func TestParse_CenturyShift(t *testing.T) {
	t.Parallel()

	got, ok := Parse("15/08/1949")
	require.True(t, ok)
	assert.Equal(t, 2049, got.Year())

	got, ok = Parse("01/05/1999")
	require.True(t, ok)
	assert.Equal(t, 1999, got.Year())
}

// TestParse_NoValue ensures malformed input yields ok=false without panicking.
func TestParse_NoValue(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "invalid", "32/13/2024", "2024", "15/08", "\x00\xff"} {
		got, ok := Parse(in)
		assert.False(t, ok, "input %q", in)
		assert.True(t, got.IsZero(), "input %q", in)
	}
}

func TestMustParse_Panics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { MustParse("nope") })
	assert.NotPanics(t, func() { MustParse("15/08/2024") })
}
