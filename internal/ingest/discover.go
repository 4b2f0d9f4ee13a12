package ingest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"footballetl/internal/cleaner"
	"footballetl/internal/logging"
	"footballetl/internal/season"
)

// DiscoverRequest covers every season starting in [StartYear, EndYear].
type DiscoverRequest struct {
	StartYear int
	EndYear   int
	Division  any
	Delay     time.Duration
}

// DiscoverResult holds the normalized columns present in every fetched
// season, in the order of the first fetched season.
type DiscoverResult struct {
	Columns []string
	Seasons []season.Label
	Failed  []SeasonFailure
}

// HeaderFetcher returns only the header row of one season file. A RawFetcher
// that also implements it lets Discover skip the full download.
type HeaderFetcher interface {
	FetchHeader(ctx context.Context, label season.Label, division season.Division) ([]string, error)
}

func (in *Ingestor) header(ctx context.Context, l season.Label, div season.Division) ([]string, error) {
	if hf, ok := in.raw.(HeaderFetcher); ok {
		return hf.FetchHeader(ctx, l, div)
	}
	tbl, err := in.raw.FetchRaw(ctx, l, div)
	if err != nil {
		return nil, err
	}
	return tbl.Header, nil
}

// Discover reads the header of each season file and intersects the normalized
// headers. Seasons that cannot be fetched are reported and skipped. The
// result helps choose a required-columns contract.
func (in *Ingestor) Discover(ctx context.Context, req DiscoverRequest) (DiscoverResult, error) {
	var res DiscoverResult
	if in.raw == nil {
		return res, errors.New("ingest: discovery needs a raw fetcher")
	}
	labels := season.Range(req.StartYear, req.EndYear)
	if len(labels) == 0 {
		return res, fmt.Errorf("ingest: empty discovery range %d-%d", req.StartYear, req.EndYear)
	}
	div, err := season.ResolveDivision(req.Division, in.log)
	if err != nil {
		return res, err
	}

	var common map[string]bool
	for i, l := range labels {
		if i > 0 && req.Delay > 0 {
			if err := sleep(ctx, req.Delay); err != nil {
				return res, err
			}
		}
		header, err := in.header(ctx, l, div)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Failed = append(res.Failed, SeasonFailure{Season: l, Err: err})
			in.log.WithError(err).WithField(logging.FieldSeason, l).Warn("season skipped")
			continue
		}
		res.Seasons = append(res.Seasons, l)

		names := make(map[string]bool, len(header))
		for _, h := range header {
			if n := cleaner.NormalizeHeader(h); n != "" {
				names[n] = true
			}
		}
		if common == nil {
			common = names
			for _, h := range header {
				if n := cleaner.NormalizeHeader(h); n != "" && !slices.Contains(res.Columns, n) {
					res.Columns = append(res.Columns, n)
				}
			}
			continue
		}
		for n := range common {
			if !names[n] {
				delete(common, n)
			}
		}
	}

	kept := res.Columns[:0]
	for _, c := range res.Columns {
		if common[c] {
			kept = append(kept, c)
		}
	}
	res.Columns = kept

	in.log.WithFields(logrus.Fields{
		logging.FieldDivision: div,
		"seasons":             len(res.Seasons),
		"failed":              len(res.Failed),
		"columns":             len(res.Columns),
	}).Info("column discovery completed")
	return res, nil
}

