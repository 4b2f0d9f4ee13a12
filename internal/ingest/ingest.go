// Package ingest orchestrates one ingestion run: resolve the partition, lock
// it, fetch and clean the season file, then archive and load the cleaned frame
// concurrently.
//
// Archive and load are independent side effects of the same read-only frame.
// Both always run to completion and the run fails if either fails; the one
// that succeeded is not undone. Re-running the season reconverges both.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"footballetl/internal/archive"
	"footballetl/internal/frame"
	"footballetl/internal/loader"
	"footballetl/internal/lock"
	"footballetl/internal/logging"
	"footballetl/internal/metrics"
	csvparser "footballetl/internal/parser/csv"
	"footballetl/internal/season"
)

// Fetcher returns the cleaned frame of one season file.
type Fetcher interface {
	Fetch(ctx context.Context, label season.Label, division season.Division) (*frame.Frame, error)
}

// RawFetcher returns the uncleaned table of one season file.
type RawFetcher interface {
	FetchRaw(ctx context.Context, label season.Label, division season.Division) (*csvparser.Table, error)
}

// Archiver stores a frame under a key.
type Archiver interface {
	Archive(ctx context.Context, key string, f *frame.Frame) error
}

// Loader replaces the season partitions of a frame.
type Loader interface {
	Load(ctx context.Context, f *frame.Frame) (loader.Summary, error)
}

// Deps are the collaborators of an Ingestor.
type Deps struct {
	Fetcher Fetcher
	// Raw is used by Discover; it may be nil when discovery is not needed.
	Raw RawFetcher
	// Archiver may be nil, which disables archiving.
	Archiver Archiver
	Loader   Loader
	// Locker defaults to lock.Nop.
	Locker lock.Locker
	// Clock defaults to time.Now.
	Clock  func() time.Time
	Job    string
	Logger logrus.FieldLogger
}

// Request selects the partition to ingest. An empty Season means the season
// in progress; Division accepts anything season.ResolveDivision does.
type Request struct {
	Season   string
	Division any
}

// Result records both side effects of a run.
type Result struct {
	RunID      string
	Season     season.Label
	Division   season.Division
	Rows       int
	ArchiveKey string
	Load       loader.Summary
	ArchiveErr error
	LoadErr    error
	Duration   time.Duration
}

// Ingestor runs ingestion requests.
type Ingestor struct {
	fetcher  Fetcher
	raw      RawFetcher
	archiver Archiver
	loader   Loader
	locker   lock.Locker
	clock    func() time.Time
	job      string
	log      logrus.FieldLogger
}

// New validates deps and returns an Ingestor.
func New(deps Deps) (*Ingestor, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("ingest: fetcher is required")
	}
	if deps.Loader == nil {
		return nil, errors.New("ingest: loader is required")
	}
	if deps.Locker == nil {
		deps.Locker = lock.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Job == "" {
		deps.Job = "footballetl"
	}
	return &Ingestor{
		fetcher:  deps.Fetcher,
		raw:      deps.Raw,
		archiver: deps.Archiver,
		loader:   deps.Loader,
		locker:   deps.Locker,
		clock:    deps.Clock,
		job:      deps.Job,
		log:      logging.Component(deps.Logger, "ingest"),
	}, nil
}

// Resolve validates req into a season label and division.
func (in *Ingestor) Resolve(req Request) (season.Label, season.Division, error) {
	var label season.Label
	if req.Season == "" {
		label = season.Current(in.clock())
	} else {
		l, err := season.Parse(req.Season)
		if err != nil {
			return "", "", err
		}
		label = l
	}
	div, err := season.ResolveDivision(req.Division, in.log)
	if err != nil {
		return "", "", err
	}
	return label, div, nil
}

// Run ingests one (season, division) partition. The returned error joins the
// archive and load failures; Result carries each separately.
func (in *Ingestor) Run(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	res.RunID = uuid.NewString()
	defer func() {
		res.Duration = time.Since(start)
		metrics.RecordStep(in.job, "ingest", err, res.Duration)
	}()

	label, div, err := in.Resolve(req)
	if err != nil {
		return res, err
	}
	res.Season, res.Division = label, div
	log := in.log.WithFields(logrus.Fields{
		logging.FieldRunID:    res.RunID,
		logging.FieldSeason:   label,
		logging.FieldDivision: div,
	})
	log.Info("ingestion started")

	unlock, err := in.locker.Lock(ctx, lock.Name(string(label), string(div)))
	if err != nil {
		return res, fmt.Errorf("ingest: lock %s/%s: %w", label, div, err)
	}
	defer func() {
		if uerr := unlock(); uerr != nil {
			log.WithError(uerr).Warn("could not release partition lock")
		}
	}()

	fetchStart := time.Now()
	f, err := in.fetcher.Fetch(ctx, label, div)
	metrics.RecordStep(in.job, "fetch", err, time.Since(fetchStart))
	if err != nil {
		log.WithError(err).Error("fetch failed")
		return res, err
	}
	res.Rows = f.Len()
	metrics.RecordRow(in.job, "fetched", int64(res.Rows))

	var g errgroup.Group
	if in.archiver != nil {
		res.ArchiveKey = archive.Key(label, div)
		g.Go(func() error {
			t := time.Now()
			res.ArchiveErr = in.archiver.Archive(ctx, res.ArchiveKey, f)
			metrics.RecordStep(in.job, "archive", res.ArchiveErr, time.Since(t))
			return nil
		})
	}
	g.Go(func() error {
		t := time.Now()
		res.Load, res.LoadErr = in.loader.Load(ctx, f)
		metrics.RecordStep(in.job, "load", res.LoadErr, time.Since(t))
		return nil
	})
	_ = g.Wait()

	if res.ArchiveErr != nil {
		log.WithError(res.ArchiveErr).WithField(logging.FieldKey, res.ArchiveKey).Error("archive failed")
	}
	if res.LoadErr != nil {
		log.WithError(res.LoadErr).Error("load failed")
	}
	if err = errors.Join(res.ArchiveErr, res.LoadErr); err != nil {
		return res, err
	}
	log.WithFields(logrus.Fields{
		logging.FieldRows:     res.Rows,
		"deleted":             res.Load.DeletedTotal,
		"inserted":            res.Load.Inserted,
		logging.FieldKey:      res.ArchiveKey,
		logging.FieldDuration: time.Since(start).Truncate(time.Millisecond),
	}).Info("ingestion completed")
	return res, nil
}
