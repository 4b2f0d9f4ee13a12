package feed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"footballetl/internal/archive"
	"footballetl/internal/frame"
	"footballetl/internal/logging"
	"footballetl/internal/season"
)

// Default cache lifetimes.
const (
	DefaultCacheTTL         = 144 * time.Hour
	DefaultCurrentSeasonTTL = 6 * time.Hour
)

// CacheConfig configures a Cache.
type CacheConfig struct {
	Dir string
	// TTL applies to completed seasons.
	TTL time.Duration
	// CurrentSeasonTTL applies to the season in progress, whose file still
	// changes every matchday.
	CurrentSeasonTTL time.Duration
	Clock            func() time.Time
	Logger           logrus.FieldLogger
}

// Cache keeps cleaned frames on disk as Parquet files.
type Cache struct {
	dir        string
	ttl        time.Duration
	currentTTL time.Duration
	now        func() time.Time
	log        logrus.FieldLogger
}

// NewCache returns a Cache, or nil when cfg.Dir is empty. A nil *Cache is a
// valid, always-missing cache.
func NewCache(cfg CacheConfig) *Cache {
	if cfg.Dir == "" {
		return nil
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.CurrentSeasonTTL <= 0 {
		cfg.CurrentSeasonTTL = DefaultCurrentSeasonTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Cache{
		dir:        cfg.Dir,
		ttl:        cfg.TTL,
		currentTTL: cfg.CurrentSeasonTTL,
		now:        cfg.Clock,
		log:        logging.Component(cfg.Logger, "feed-cache"),
	}
}

func (c *Cache) path(label season.Label, division season.Division) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.parquet", label, division))
}

func (c *Cache) ttlFor(label season.Label) time.Duration {
	if label == season.Current(c.now()) {
		return c.currentTTL
	}
	return c.ttl
}

// Get returns the cached frame when present and fresh. Unreadable entries are
// removed and reported as a miss.
func (c *Cache) Get(label season.Label, division season.Division) (*frame.Frame, bool) {
	if c == nil {
		return nil, false
	}
	p := c.path(label, division)
	fi, err := os.Stat(p)
	if err != nil {
		return nil, false
	}
	log := c.log.WithFields(logrus.Fields{logging.FieldSeason: label, logging.FieldDivision: division})
	if age := c.now().Sub(fi.ModTime()); age > c.ttlFor(label) {
		log.WithField("age", age.Truncate(time.Second)).Debug("cache entry expired")
		return nil, false
	}
	f, err := archive.Decode(p)
	if err != nil {
		log.WithError(err).Warn("discarding corrupt cache entry")
		_ = os.Remove(p)
		return nil, false
	}
	log.WithField(logging.FieldRows, f.Len()).Info("using cached season data")
	return f, true
}

// Put stores f, replacing any previous entry.
func (c *Cache) Put(label season.Label, division season.Division, f *frame.Frame) error {
	if c == nil {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("feed: cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("feed: cache temp: %w", err)
	}
	tmpName := tmp.Name()
	tmp.Close()
	if err := archive.Encode(f, tmpName); err != nil {
		os.Remove(tmpName)
		if errors.Is(err, archive.ErrEmptyFrame) {
			return nil
		}
		return fmt.Errorf("feed: cache write: %w", err)
	}
	if err := os.Rename(tmpName, c.path(label, division)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("feed: cache rename: %w", err)
	}
	return nil
}
