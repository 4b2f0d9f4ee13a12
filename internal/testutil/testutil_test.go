package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockHelpers(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.True(t, NowAt(now)().Equal(now))
	assert.Equal(t, time.Date(2024, 8, 16, 0, 0, 0, 0, time.UTC), Day(2024, time.August, 16))
}

func TestFixtures(t *testing.T) {
	body := FeedCSV("E0,16/08/2024,Man United,Fulham,1,0,H")
	assert.True(t, strings.HasPrefix(body, FeedHeader+"\n"))

	f := MatchFrame(t, "2425", "Arsenal", "Chelsea")
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, "2425", f.Rows[1][5])
}

func TestBufferLogger(t *testing.T) {
	l, buf := NewBufferLogger()
	l.WithField("season", "2425").Info("hello")
	assert.Contains(t, buf.String(), "season=2425")
}
