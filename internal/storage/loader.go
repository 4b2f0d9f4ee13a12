package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"footballetl/internal/logging"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations should
// insert the provided rows (aligned to 'columns' order) and return the number
// of rows reported as inserted. The function should be safe for repeated calls
// and cancel promptly when ctx is done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// BatchStats summarizes one LoadBatches run.
type BatchStats struct {
	Rows    int64
	Batches int
}

// LoadBatches drains typed rows from 'in', groups them into batches of size
// 'batchSize', and calls 'copyFn' for each non-empty batch. It returns the
// rows reported by copyFn and the first error encountered.
//
// Cancellation: returns ctx.Err() when canceled. Progress is logged at debug
// level on each successful flush.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
	log logrus.FieldLogger,
) (BatchStats, error) {
	var st BatchStats
	if batchSize <= 0 {
		return st, fmt.Errorf("storage: batchSize must be > 0")
	}
	if copyFn == nil {
		return st, fmt.Errorf("storage: copyFn must not be nil")
	}
	log = logging.OrDiscard(log)

	var (
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		st.Rows += n

		// New backing array: backends may retain the slice they were given.
		batch = make([][]any, 0, batchSize)

		if err != nil {
			log.WithError(err).WithField("total", st.Rows).Error("batch insert failed")
			return err
		}

		st.Batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(n) / sinceLast.Seconds()
		}
		log.WithFields(logrus.Fields{
			"batch":    st.Batches,
			"rps":      int64(rps),
			"inserted": n,
			"total":    st.Rows,
			"elapsed":  now.Sub(start).Truncate(time.Millisecond),
		}).Debug("batch flushed")
		lastFlushTS = now
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return st, ctx.Err()

		case row, ok := <-in:
			if !ok {
				return st, flush()
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return st, err
				}
			}
		}
	}
}

// Feed sends rows on a new channel from a goroutine and closes it when done
// or when ctx is canceled.
func Feed(ctx context.Context, rows [][]any) <-chan []any {
	ch := make(chan []any)
	go func() {
		defer close(ch)
		for _, r := range rows {
			select {
			case ch <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
