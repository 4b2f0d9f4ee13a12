// Package lock serializes ingestion runs of the same (season, division)
// partition across processes.
//
// FileLocker holds an exclusive advisory lock on {Dir}/{name}.lock for the
// duration of a run. Runs of different partitions never contend.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"footballetl/internal/logging"
)

// DefaultPollInterval is how often a blocked Lock retries.
const DefaultPollInterval = 250 * time.Millisecond

// Unlock releases a held lock.
type Unlock func() error

// Locker acquires named locks.
type Locker interface {
	// Lock blocks until name is held or ctx is done.
	Lock(ctx context.Context, name string) (Unlock, error)
}

// Nop is a Locker that never blocks; use it when locking is disabled.
type Nop struct{}

func (Nop) Lock(context.Context, string) (Unlock, error) {
	return func() error { return nil }, nil
}

// Name is the lock name of one partition.
func Name(season, division string) string {
	return season + "_" + division
}

// FileLocker implements Locker with lock files under Dir.
type FileLocker struct {
	dir  string
	poll time.Duration
	log  logrus.FieldLogger
}

// NewFileLocker creates dir if needed. poll <= 0 uses DefaultPollInterval.
func NewFileLocker(dir string, poll time.Duration, log logrus.FieldLogger) (*FileLocker, error) {
	if dir == "" {
		return nil, errors.New("lock: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("lock: create %s: %w", dir, err)
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &FileLocker{dir: dir, poll: poll, log: logging.Component(log, "lock")}, nil
}

// Lock opens the lock file and polls for an exclusive lock until ctx is done.
func (l *FileLocker) Lock(ctx context.Context, name string) (Unlock, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("lock: invalid name %q", name)
	}
	path := filepath.Join(l.dir, name+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lock: open %s: %w", path, err)
	}

	waited := false
	for {
		ok, err := tryLock(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("lock: %s: %w", path, err)
		}
		if ok {
			break
		}
		if !waited {
			l.log.WithField("lock", name).Info("waiting for another run of this partition")
			waited = true
		}
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, fmt.Errorf("lock: %s: %w", name, ctx.Err())
		case <-time.After(l.poll):
		}
	}
	l.log.WithField("lock", name).Debug("acquired")

	released := false
	return func() error {
		if released {
			return nil
		}
		released = true
		uerr := unlock(f)
		cerr := f.Close()
		return errors.Join(uerr, cerr)
	}, nil
}
