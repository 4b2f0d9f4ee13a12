package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"footballetl/internal/logging"
	"footballetl/internal/season"
)

// Backfill defaults.
const (
	DefaultBackfillStart = 2000
	DefaultBackfillEnd   = 2024
	DefaultBackfillDelay = 5 * time.Second
)

// BackfillRequest covers every season starting in [StartYear, EndYear].
type BackfillRequest struct {
	StartYear   int
	EndYear     int
	Division    any
	Delay       time.Duration // pause between run starts
	Concurrency int           // default 1 (sequential)
}

// SeasonFailure is one season that could not be processed.
type SeasonFailure struct {
	Season season.Label
	Err    error
}

// BackfillSummary lists outcomes sorted by season.
type BackfillSummary struct {
	Succeeded []season.Label
	Failed    []SeasonFailure
}

// Err joins every season failure, or returns nil.
func (s BackfillSummary) Err() error {
	errs := make([]error, 0, len(s.Failed))
	for _, f := range s.Failed {
		errs = append(errs, fmt.Errorf("season %s: %w", f.Season, f.Err))
	}
	return errors.Join(errs...)
}

// Backfill runs Run for each season of the range. A failing season never
// stops the others; only ctx cancellation does, and then the summary covers
// the seasons started so far and the returned error is ctx.Err().
func (in *Ingestor) Backfill(ctx context.Context, req BackfillRequest) (BackfillSummary, error) {
	var sum BackfillSummary
	labels := season.Range(req.StartYear, req.EndYear)
	if len(labels) == 0 {
		return sum, fmt.Errorf("ingest: empty backfill range %d-%d", req.StartYear, req.EndYear)
	}
	div, err := season.ResolveDivision(req.Division, in.log)
	if err != nil {
		return sum, err
	}
	limit := req.Concurrency
	if limit < 1 {
		limit = 1
	}
	log := in.log.WithFields(logrus.Fields{logging.FieldDivision: div, "seasons": len(labels), "concurrency": limit})
	log.WithField("range", fmt.Sprintf("%s-%s", labels[0], labels[len(labels)-1])).Info("backfill started")

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(limit)
	record := func(l season.Label, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			sum.Failed = append(sum.Failed, SeasonFailure{Season: l, Err: err})
			return
		}
		sum.Succeeded = append(sum.Succeeded, l)
	}

	var stopErr error
	for i, l := range labels {
		if i > 0 && req.Delay > 0 {
			if err := sleep(ctx, req.Delay); err != nil {
				stopErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}
		l := l
		g.Go(func() error {
			_, err := in.Run(ctx, Request{Season: string(l), Division: div})
			record(l, err)
			if err != nil {
				log.WithError(err).WithField(logging.FieldSeason, l).Warn("season failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(sum.Succeeded, func(i, j int) bool { return sum.Succeeded[i].StartYear() < sum.Succeeded[j].StartYear() })
	sort.Slice(sum.Failed, func(i, j int) bool { return sum.Failed[i].Season.StartYear() < sum.Failed[j].Season.StartYear() })

	log.WithFields(logrus.Fields{
		"succeeded": len(sum.Succeeded),
		"failed":    len(sum.Failed),
	}).Info("backfill summary")
	for _, f := range sum.Failed {
		log.WithField(logging.FieldSeason, f.Season).WithError(f.Err).Warn("backfill season failed")
	}
	return sum, stopErr
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
