package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"footballetl/internal/cleaner"
	"footballetl/internal/datasource/httpds"
	"footballetl/internal/feed"
	csvparser "footballetl/internal/parser/csv"
	"footballetl/internal/season"
)

func TestBackfill_Sequential(t *testing.T) {
	t.Parallel()

	boom := errors.New("no file")
	ff := &fakeFetcher{errs: map[season.Label]error{"2122": boom}}
	in := newIngestor(t, Deps{Fetcher: ff, Loader: &fakeLoader{}})

	sum, err := in.Backfill(context.Background(), BackfillRequest{StartYear: 2020, EndYear: 2023, Division: "E0"})
	require.NoError(t, err)
	assert.Equal(t, []season.Label{"2021", "2223", "2324"}, sum.Succeeded)
	require.Len(t, sum.Failed, 1)
	assert.Equal(t, season.Label("2122"), sum.Failed[0].Season)
	assert.ErrorIs(t, sum.Err(), boom)
	assert.Equal(t, []string{"2021/E0", "2122/E0", "2223/E0", "2324/E0"}, ff.calls)
}

func TestBackfill_Concurrent(t *testing.T) {
	t.Parallel()

	ff := &fakeFetcher{}
	in := newIngestor(t, Deps{Fetcher: ff, Loader: &fakeLoader{}})

	sum, err := in.Backfill(context.Background(), BackfillRequest{StartYear: 1998, EndYear: 2004, Concurrency: 3})
	require.NoError(t, err)
	assert.Equal(t, []season.Label{"9899", "9900", "0001", "0102", "0203", "0304", "0405"}, sum.Succeeded)
	assert.Empty(t, sum.Failed)
	assert.NoError(t, sum.Err())
	assert.Len(t, ff.calls, 7)
}

func TestBackfill_CancelStops(t *testing.T) {
	t.Parallel()

	ff := &fakeFetcher{}
	in := newIngestor(t, Deps{Fetcher: ff, Loader: &fakeLoader{}})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	sum, err := in.Backfill(ctx, BackfillRequest{StartYear: 2000, EndYear: 2024, Delay: time.Hour})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []season.Label{"0001"}, sum.Succeeded)
}

func TestBackfill_BadInput(t *testing.T) {
	t.Parallel()

	in := newIngestor(t, Deps{Fetcher: &fakeFetcher{}, Loader: &fakeLoader{}})
	_, err := in.Backfill(context.Background(), BackfillRequest{StartYear: 2024, EndYear: 2020})
	assert.Error(t, err)
	_, err = in.Backfill(context.Background(), BackfillRequest{StartYear: 2020, EndYear: 2021, Division: "Z1"})
	assert.True(t, season.IsInvalidDivision(err))
}

type fakeRaw struct {
	tables map[season.Label]*csvparser.Table
}

func (f fakeRaw) FetchRaw(_ context.Context, l season.Label, _ season.Division) (*csvparser.Table, error) {
	if t, ok := f.tables[l]; ok {
		return t, nil
	}
	return nil, &httpds.StatusError{Code: http.StatusNotFound}
}

func TestDiscover_Intersects(t *testing.T) {
	t.Parallel()

	raw := fakeRaw{tables: map[season.Label]*csvparser.Table{
		"2223": {Header: []string{"Div", "Date", "HomeTeam", "AwayTeam", "FTHG", "B365H", "Referee"}},
		"2324": {Header: []string{"Div", "Date", "Time", "HomeTeam", "AwayTeam", "FTHG", "B365H", ""}},
		"2425": {Header: []string{" date", "Div", "HomeTeam", "AwayTeam", "FTHG"}},
	}}
	in := newIngestor(t, Deps{Fetcher: &fakeFetcher{}, Raw: raw, Loader: &fakeLoader{}})

	res, err := in.Discover(context.Background(), DiscoverRequest{StartYear: 2021, EndYear: 2024})
	require.NoError(t, err)
	assert.Equal(t, []string{"div", "date", "hometeam", "awayteam", "fthg"}, res.Columns)
	assert.Equal(t, []season.Label{"2223", "2324", "2425"}, res.Seasons)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, season.Label("2122"), res.Failed[0].Season)
}

func TestDiscover_RequiresRawFetcher(t *testing.T) {
	t.Parallel()
	in := newIngestor(t, Deps{Fetcher: &fakeFetcher{}, Loader: &fakeLoader{}})
	_, err := in.Discover(context.Background(), DiscoverRequest{StartYear: 2020, EndYear: 2021})
	assert.Error(t, err)
}

func TestDiscover_WithFeed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2324/E0.csv":
			_, _ = w.Write([]byte("Div,Date,HomeTeam,AwayTeam,FTHG,HS\nE0,11/08/2023,Burnley,Man City,0,6\n"))
		case "/2425/E0.csv":
			_, _ = w.Write([]byte("Div,Date,HomeTeam,AwayTeam,FTHG\nE0,16/08/2024,Man United,Fulham,1\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cl, err := cleaner.New(cleaner.Config{RequiredColumns: []string{"date"}})
	require.NoError(t, err)
	f, err := feed.New(feed.Config{BaseURL: srv.URL, Client: httpds.NewClient(httpds.Config{}), Cleaner: cl})
	require.NoError(t, err)

	in := newIngestor(t, Deps{Fetcher: f, Raw: f, Loader: &fakeLoader{}})
	res, err := in.Discover(context.Background(), DiscoverRequest{StartYear: 2023, EndYear: 2024, Division: "E0"})
	require.NoError(t, err)
	assert.Equal(t, []string{"div", "date", "hometeam", "awayteam", "fthg"}, res.Columns)
}
