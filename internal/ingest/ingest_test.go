package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"footballetl/internal/archive"
	"footballetl/internal/cleaner"
	"footballetl/internal/datasource/httpds"
	"footballetl/internal/feed"
	"footballetl/internal/frame"
	"footballetl/internal/loader"
	"footballetl/internal/lock"
	"footballetl/internal/season"
	"footballetl/internal/storage/sqlite"
	"footballetl/internal/testutil"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	errs  map[season.Label]error
}

func (f *fakeFetcher) Fetch(_ context.Context, l season.Label, d season.Division) (*frame.Frame, error) {
	f.mu.Lock()
	f.calls = append(f.calls, string(l)+"/"+string(d))
	err := f.errs[l]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return matchFrame(l), nil
}

func matchFrame(l season.Label) *frame.Frame {
	return frame.MustNew(
		[]frame.Column{
			{Name: "date", Kind: frame.KindDate},
			{Name: "hometeam", Kind: frame.KindString},
			{Name: "season", Kind: frame.KindString},
		},
		[][]any{
			{testutil.Day(2024, time.August, 16), "Arsenal", string(l)},
			{testutil.Day(2024, time.August, 17), "Chelsea", string(l)},
		},
	)
}

type fakeArchiver struct {
	err  error
	keys []string
	mu   sync.Mutex
}

func (a *fakeArchiver) Archive(_ context.Context, key string, f *frame.Frame) error {
	a.mu.Lock()
	a.keys = append(a.keys, key)
	a.mu.Unlock()
	return a.err
}

type fakeLoader struct {
	err   error
	calls atomic.Int32
}

func (l *fakeLoader) Load(_ context.Context, f *frame.Frame) (loader.Summary, error) {
	l.calls.Add(1)
	if l.err != nil {
		return loader.Summary{}, l.err
	}
	return loader.Summary{Inserted: int64(f.Len())}, nil
}

func newIngestor(t *testing.T, deps Deps) *Ingestor {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = testutil.NowAt(time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))
	}
	in, err := New(deps)
	require.NoError(t, err)
	return in
}

func TestRun_Success(t *testing.T) {
	t.Parallel()

	ff, fa, fl := &fakeFetcher{}, &fakeArchiver{}, &fakeLoader{}
	in := newIngestor(t, Deps{Fetcher: ff, Archiver: fa, Loader: fl})

	res, err := in.Run(context.Background(), Request{Season: "2425", Division: "E1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, season.Label("2425"), res.Season)
	assert.Equal(t, season.Division("E1"), res.Division)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, "raw/2425_E1.parquet", res.ArchiveKey)
	assert.Equal(t, int64(2), res.Load.Inserted)
	assert.Equal(t, []string{"raw/2425_E1.parquet"}, fa.keys)
}

func TestRun_DefaultsToCurrentSeasonAndPremierLeague(t *testing.T) {
	t.Parallel()

	ff := &fakeFetcher{}
	in := newIngestor(t, Deps{Fetcher: ff, Loader: &fakeLoader{}})

	res, err := in.Run(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2324/E0"}, ff.calls)
	assert.Empty(t, res.ArchiveKey)
}

func TestRun_InvalidInput(t *testing.T) {
	t.Parallel()

	ff := &fakeFetcher{}
	in := newIngestor(t, Deps{Fetcher: ff, Loader: &fakeLoader{}})

	_, err := in.Run(context.Background(), Request{Season: "2426"})
	assert.Error(t, err)

	_, err = in.Run(context.Background(), Request{Season: "2425", Division: "X9"})
	assert.True(t, season.IsInvalidDivision(err))
	assert.Contains(t, err.Error(), "X9")

	_, err = in.Run(context.Background(), Request{Season: "2425", Division: 7})
	assert.True(t, season.IsInvalidDivision(err))
	assert.Empty(t, ff.calls)
}

func TestRun_FetchFailureSkipsSideEffects(t *testing.T) {
	t.Parallel()

	boom := errors.New("upstream down")
	fa, fl := &fakeArchiver{}, &fakeLoader{}
	in := newIngestor(t, Deps{Fetcher: &fakeFetcher{errs: map[season.Label]error{"2425": boom}}, Archiver: fa, Loader: fl})

	_, err := in.Run(context.Background(), Request{Season: "2425"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, fa.keys)
	assert.Zero(t, fl.calls.Load())
}

// TestRun_PartialFailure: either side failing fails the run while the other
// still completes.
func TestRun_PartialFailure(t *testing.T) {
	t.Parallel()

	archiveErr := errors.New("bucket gone")
	fa, fl := &fakeArchiver{err: archiveErr}, &fakeLoader{}
	in := newIngestor(t, Deps{Fetcher: &fakeFetcher{}, Archiver: fa, Loader: fl})

	res, err := in.Run(context.Background(), Request{Season: "2425"})
	assert.ErrorIs(t, err, archiveErr)
	assert.Equal(t, archiveErr, res.ArchiveErr)
	assert.NoError(t, res.LoadErr)
	assert.Equal(t, int32(1), fl.calls.Load())

	loadErr := errors.New("deadlock")
	in = newIngestor(t, Deps{Fetcher: &fakeFetcher{}, Archiver: &fakeArchiver{err: archiveErr}, Loader: &fakeLoader{err: loadErr}})
	_, err = in.Run(context.Background(), Request{Season: "2425"})
	assert.ErrorIs(t, err, archiveErr)
	assert.ErrorIs(t, err, loadErr)
}

func TestRun_LockTimeout(t *testing.T) {
	t.Parallel()

	locker, err := lock.NewFileLocker(t.TempDir(), 5*time.Millisecond, nil)
	require.NoError(t, err)
	held, err := locker.Lock(context.Background(), lock.Name("2425", "E0"))
	require.NoError(t, err)
	defer held()

	ff := &fakeFetcher{}
	in := newIngestor(t, Deps{Fetcher: ff, Loader: &fakeLoader{}, Locker: locker})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = in.Run(ctx, Request{Season: "2425"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, ff.calls)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Deps{Loader: &fakeLoader{}})
	assert.Error(t, err)
	_, err = New(Deps{Fetcher: &fakeFetcher{}})
	assert.Error(t, err)
}

// TestRun_EndToEnd drives a real fetcher, cleaner, Parquet archive and SQLite
// loader against a fake feed.
func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2425/E0.csv":
			_, _ = w.Write([]byte(testutil.FeedCSV(
				"E0,16/08/2024,Man United,Fulham,1,0,H",
				"E0,17/08/2024,Ipswich,Liverpool,0,2,A",
				"E0,17/08/2024,Ipswich,Liverpool,0,2,A",
				"E0,invalid,Arsenal,Wolves,2,0,H",
			)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cl, err := cleaner.New(cleaner.Config{RequiredColumns: testutil.Contract()})
	require.NoError(t, err)
	fetcher, err := feed.New(feed.Config{
		BaseURL: srv.URL,
		Client:  httpds.NewClient(httpds.Config{MaxRetries: 1, InitialBackoff: time.Millisecond}),
		Cleaner: cl,
	})
	require.NoError(t, err)

	store, err := sqlite.NewStore(context.Background(), "file::memory:", nil)
	require.NoError(t, err)
	defer store.Close()
	ld, err := loader.New(store, loader.Config{})
	require.NoError(t, err)

	root := t.TempDir()
	writer := archive.NewWriter(archive.LocalStore{Root: root}, t.TempDir(), nil)

	in := newIngestor(t, Deps{Fetcher: fetcher, Raw: fetcher, Archiver: writer, Loader: ld})
	res, err := in.Run(context.Background(), Request{Season: "2425", Division: "E0"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.True(t, res.Load.Created)
	assert.Equal(t, int64(2), res.Load.Inserted)

	assert.FileExists(t, filepath.Join(root, "raw", "2425_E0.parquet"))
	back, err := writer.Read(context.Background(), res.ArchiveKey)
	require.NoError(t, err)
	assert.Equal(t, testutil.Contract(), back.Names())
	assert.Equal(t, 2, back.Len())

	// A second run replaces the partition.
	res, err = in.Run(context.Background(), Request{Season: "2425", Division: "E0"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Load.DeletedTotal)

	var n int
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(*) FROM "english_league_data"`).Scan(&n))
	assert.Equal(t, 2, n)

	// 404 is permanent and surfaces from the fetch step.
	_, err = in.Run(context.Background(), Request{Season: "0001", Division: "E0"})
	var se *httpds.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
}
