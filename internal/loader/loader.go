// Package loader replaces season partitions of the match table.
//
// Load is "replace-by-partition": inside one transaction it deletes every row
// of each season present in the frame and bulk-inserts the frame. Either the
// whole season set commits or none of it does, so re-running a season
// converges on the latest cleaned rows and leaves other seasons untouched.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"footballetl/internal/ddl"
	"footballetl/internal/frame"
	"footballetl/internal/logging"
	"footballetl/internal/metrics"
	"footballetl/internal/storage"
)

// Defaults.
const (
	DefaultTable     = "english_league_data"
	DefaultBatchSize = 5000
)

// ErrMissingSeason is returned, before any I/O, for a frame with no season
// column.
var ErrMissingSeason = errors.New("loader: frame has no season column")

// Config configures a Loader.
type Config struct {
	Table     string // default DefaultTable
	BatchSize int    // default DefaultBatchSize
	Job       string // metrics job label; default "footballetl"
	Logger    logrus.FieldLogger
}

// Summary describes one Load call.
type Summary struct {
	Table        string
	Created      bool
	Seasons      []string
	Deleted      map[string]int64
	DeletedTotal int64
	Inserted     int64
	Batches      int
	Duration     time.Duration
}

// Loader writes frames into one table of a Store.
type Loader struct {
	store     storage.Store
	table     string
	batchSize int
	job       string
	log       logrus.FieldLogger
}

// New returns a Loader writing to store.
func New(store storage.Store, cfg Config) (*Loader, error) {
	if store == nil {
		return nil, fmt.Errorf("loader: store is required")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Job == "" {
		cfg.Job = "footballetl"
	}
	return &Loader{
		store:     store,
		table:     cfg.Table,
		batchSize: cfg.BatchSize,
		job:       cfg.Job,
		log:       logging.Component(cfg.Logger, "loader").WithField(logging.FieldTable, cfg.Table),
	}, nil
}

// Table returns the destination table name.
func (l *Loader) Table() string { return l.table }

// Load replaces every season present in f with the rows of f. An empty frame
// is a successful no-op.
func (l *Loader) Load(ctx context.Context, f *frame.Frame) (Summary, error) {
	sum := Summary{Table: l.table, Deleted: map[string]int64{}}
	if f.Len() == 0 {
		l.log.Info("no rows to load")
		return sum, nil
	}
	seasons, err := f.DistinctStrings(storage.SeasonColumn)
	if err != nil {
		if errors.Is(err, frame.ErrNoColumn) {
			return sum, ErrMissingSeason
		}
		return sum, fmt.Errorf("loader: %w", err)
	}
	sum.Seasons = seasons
	start := time.Now()

	exists, err := l.store.TableExists(ctx, l.table)
	if err != nil {
		return sum, fmt.Errorf("loader: inspect table: %w", err)
	}
	if !exists {
		def, err := ddl.FromFrame(l.table, f.Columns, l.store.Types())
		if err != nil {
			return sum, fmt.Errorf("loader: table definition: %w", err)
		}
		if err := l.store.CreateTable(ctx, def); err != nil {
			return sum, fmt.Errorf("loader: create table: %w", err)
		}
		sum.Created = true
	}

	if err := l.replace(ctx, f, &sum); err != nil {
		return sum, err
	}
	sum.Duration = time.Since(start)

	for s, n := range sum.Deleted {
		metrics.RecordDeleted(l.job, s, n)
	}
	metrics.RecordRow(l.job, "inserted", sum.Inserted)
	metrics.RecordBatches(l.job, int64(sum.Batches))

	l.log.WithFields(logrus.Fields{
		"seasons":             len(seasons),
		"created":             sum.Created,
		"deleted":             sum.DeletedTotal,
		"inserted":            sum.Inserted,
		logging.FieldDuration: sum.Duration.Truncate(time.Millisecond),
	}).Info("partitions replaced")
	return sum, nil
}

// replace runs lock, delete and insert in one transaction and rolls back on
// any failure.
func (l *Loader) replace(ctx context.Context, f *frame.Frame, sum *Summary) (err error) {
	tx, err := l.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("loader: begin: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		// The rollback must run even when ctx is what failed.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			l.log.WithError(rbErr).Error("rollback failed")
		}
		sum.Deleted = map[string]int64{}
		sum.DeletedTotal = 0
		sum.Inserted = 0
		sum.Batches = 0
	}()

	for _, s := range sum.Seasons {
		if err = tx.LockPartition(ctx, l.table, s); err != nil {
			return fmt.Errorf("loader: lock season %s: %w", s, err)
		}
	}
	for _, s := range sum.Seasons {
		n, derr := tx.DeleteSeason(ctx, l.table, s)
		if derr != nil {
			err = fmt.Errorf("loader: delete season %s: %w", s, derr)
			return err
		}
		sum.Deleted[s] = n
		sum.DeletedTotal += n
		l.log.WithFields(logrus.Fields{logging.FieldSeason: s, "deleted": n}).Debug("season cleared")
	}

	copyFn := func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
		return tx.CopyInto(ctx, l.table, cols, rows)
	}
	// Cancelling feedCtx stops the feeder when LoadBatches returns early.
	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	st, err := storage.LoadBatches(ctx, f.Names(), storage.Feed(feedCtx, f.Rows), l.batchSize, copyFn, l.log)
	if err != nil {
		return fmt.Errorf("loader: insert: %w", err)
	}
	sum.Inserted = st.Rows
	sum.Batches = st.Batches

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("loader: commit: %w", err)
	}
	return nil
}
