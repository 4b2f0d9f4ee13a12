// Package feed downloads one season of one division from the public match
// feed and turns it into a cleaned frame.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"footballetl/internal/cleaner"
	"footballetl/internal/datasource/httpds"
	"footballetl/internal/frame"
	"footballetl/internal/logging"
	csvparser "footballetl/internal/parser/csv"
	"footballetl/internal/season"
)

// DefaultBaseURL is the public feed root.
const DefaultBaseURL = "https://www.football-data.co.uk/mmz4281"

type permanentError string

func (e permanentError) Error() string { return string(e) }
func (permanentError) Permanent() bool { return true }

// ErrEmptyResponse is returned when the feed answers 2xx with no body.
var ErrEmptyResponse error = permanentError("feed: empty response body")

// DecodeError wraps a CSV decoding failure. The same bytes fail the same way
// on every attempt.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string   { return fmt.Sprintf("feed: decode %s: %v", e.URL, e.Err) }
func (e *DecodeError) Unwrap() error   { return e.Err }
func (e *DecodeError) Permanent() bool { return true }

// Getter is the HTTP surface the Fetcher needs; *httpds.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, url string, headers http.Header) (*httpds.Response, error)
}

// Config configures a Fetcher.
type Config struct {
	BaseURL string
	Client  Getter
	Cleaner *cleaner.Cleaner
	// Cache may be nil.
	Cache  *Cache
	Logger logrus.FieldLogger
}

// Fetcher downloads, decodes and cleans season files.
type Fetcher struct {
	base    string
	client  Getter
	cleaner *cleaner.Cleaner
	cache   *Cache
	parser  *csvparser.Parser
	group   singleflight.Group
	log     logrus.FieldLogger
}

// New returns a Fetcher. Client and Cleaner are required.
func New(cfg Config) (*Fetcher, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("feed: http client is required")
	}
	if cfg.Cleaner == nil {
		return nil, fmt.Errorf("feed: cleaner is required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Fetcher{
		base:    base,
		client:  cfg.Client,
		cleaner: cfg.Cleaner,
		cache:   cfg.Cache,
		parser:  csvparser.NewParser(csvparser.Options{SkipBlankRows: true}),
		log:     logging.Component(cfg.Logger, "feed"),
	}, nil
}

// URL returns the feed address of one season file.
func (f *Fetcher) URL(label season.Label, division season.Division) string {
	return fmt.Sprintf("%s/%s/%s.csv", f.base, label, division)
}

// Fetch returns the cleaned frame for label and division. Concurrent calls
// for the same pair share one download. The shared download runs detached
// from any single caller's cancellation, bounded by the client's per-attempt
// timeout and retry limit; a cancelled caller stops waiting without failing
// the others.
func (f *Fetcher) Fetch(ctx context.Context, label season.Label, division season.Division) (*frame.Frame, error) {
	if cached, ok := f.cache.Get(label, division); ok {
		return cached, nil
	}
	key := string(label) + "/" + string(division)
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key, func() (any, error) {
		return f.fetch(shared, label, division)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			f.log.WithFields(logrus.Fields{logging.FieldSeason: label, logging.FieldDivision: division}).
				Debug("shared in-flight download")
		}
		return r.Val.(*frame.Frame), nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, label season.Label, division season.Division) (*frame.Frame, error) {
	raw, err := f.FetchRaw(ctx, label, division)
	if err != nil {
		return nil, err
	}
	out, rep, err := f.cleaner.Clean(label, raw)
	if err != nil {
		return nil, fmt.Errorf("feed: clean %s/%s: %w", label, division, err)
	}
	f.log.WithFields(logrus.Fields{
		logging.FieldSeason:   label,
		logging.FieldDivision: division,
		"input":               rep.Input,
		"dropped_invalid":     rep.DroppedInvalid,
		"dropped_duplicates":  rep.DroppedDuplicates,
		logging.FieldRows:     rep.Output,
	}).Info("season data fetched")

	if err := f.cache.Put(label, division, out); err != nil {
		f.log.WithError(err).Warn("could not cache season data")
	}
	return out, nil
}

// FetchRaw downloads and decodes the season file without cleaning it.
func (f *Fetcher) FetchRaw(ctx context.Context, label season.Label, division season.Division) (*csvparser.Table, error) {
	url := f.URL(label, division)
	start := time.Now()
	f.log.WithField(logging.FieldURL, url).Info("fetching season data")

	resp, err := f.client.Get(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: fetch %s: %w", url, err)
	}
	if len(strings.TrimSpace(string(resp.Body))) == 0 {
		return nil, fmt.Errorf("feed: fetch %s: %w", url, ErrEmptyResponse)
	}
	table, err := f.parser.ParseBytes(resp.Body)
	if err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}
	f.log.WithFields(logrus.Fields{
		logging.FieldURL:      url,
		logging.FieldRows:     table.Len(),
		logging.FieldDuration: time.Since(start).Truncate(time.Millisecond),
	}).Debug("season file decoded")
	return table, nil
}

// headerPeeker is implemented by clients that can download a body prefix;
// *httpds.Client does.
type headerPeeker interface {
	FetchFirstBytes(ctx context.Context, url string, n int) ([]byte, error)
}

// headerPeekBytes comfortably holds the widest season header (~1.5KB).
const headerPeekBytes = 8 << 10

// FetchHeader returns the raw header row of one season file. When the client
// supports ranged reads only the first few kilobytes are downloaded.
func (f *Fetcher) FetchHeader(ctx context.Context, label season.Label, division season.Division) ([]string, error) {
	p, ok := f.client.(headerPeeker)
	if !ok {
		return f.headerFromRaw(ctx, label, division)
	}
	url := f.URL(label, division)
	b, err := p.FetchFirstBytes(ctx, url, headerPeekBytes)
	if err != nil {
		return nil, fmt.Errorf("feed: fetch %s: %w", url, err)
	}
	line, _, found := bytes.Cut(b, []byte("\n"))
	line = bytes.TrimRight(line, "\r")
	if !found && len(b) == headerPeekBytes {
		// The header did not fit; read the whole file.
		return f.headerFromRaw(ctx, label, division)
	}
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, fmt.Errorf("feed: fetch %s: %w", url, ErrEmptyResponse)
	}
	table, err := f.parser.ParseBytes(line)
	if err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}
	return table.Header, nil
}

func (f *Fetcher) headerFromRaw(ctx context.Context, label season.Label, division season.Division) ([]string, error) {
	table, err := f.FetchRaw(ctx, label, division)
	if err != nil {
		return nil, err
	}
	return table.Header, nil
}
