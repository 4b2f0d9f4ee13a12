package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"footballetl/internal/archive"
	"footballetl/internal/cleaner"
	"footballetl/internal/config"
	"footballetl/internal/datasource/httpds"
	"footballetl/internal/feed"
	"footballetl/internal/frame"
	"footballetl/internal/ingest"
	"footballetl/internal/loader"
	"footballetl/internal/lock"
	"footballetl/internal/logging"
	"footballetl/internal/metrics"
	"footballetl/internal/metrics/datadog"
	"footballetl/internal/metrics/prompush"
	"footballetl/internal/storage"
	_ "footballetl/internal/storage/all"
)

// app is the wired object graph of one command invocation.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    storage.Store
	ingestor *ingest.Ingestor
}

// Close flushes metrics and releases the store.
func (a *app) Close() {
	if err := metrics.Flush(); err != nil {
		a.log.WithError(err).Warn("metrics flush failed")
	}
	metrics.Reset()
	if a.store != nil {
		a.store.Close()
	}
}

// openApp loads and validates the configuration and wires every component.
func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	a, f, err := openBase(opts)
	if err != nil {
		return nil, err
	}
	cfg := a.cfg

	a.store, err = storage.Open(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN, Logger: a.log})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Kind, err)
	}
	ld, err := loader.New(a.store, loader.Config{
		Table:     cfg.Storage.Table,
		BatchSize: cfg.Storage.BatchSize,
		Job:       cfg.Job,
		Logger:    a.log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	arch, err := buildArchiver(cfg.Archive, a.log)
	if err != nil {
		a.Close()
		return nil, err
	}
	locker, err := buildLocker(cfg.Lock, a.log)
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := ingest.Deps{
		Fetcher: f,
		Raw:     f,
		Loader:  ld,
		Locker:  locker,
		Job:     cfg.Job,
		Logger:  a.log,
	}
	// A nil *archive.Writer must not become a non-nil interface.
	if arch != nil {
		deps.Archiver = arch
	}
	a.ingestor, err = ingest.New(deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// openFeedOnly wires the feed side only, for commands that never touch
// storage or the archive.
func openFeedOnly(opts *rootOptions) (*app, error) {
	a, f, err := openBase(opts)
	if err != nil {
		return nil, err
	}
	a.ingestor, err = ingest.New(ingest.Deps{
		Fetcher: f,
		Raw:     f,
		Loader:  noLoad{},
		Job:     a.cfg.Job,
		Logger:  a.log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// openBase loads config, builds the logger and metrics backend, and wires
// the feed.
func openBase(opts *rootOptions) (*app, *feed.Fetcher, error) {
	cfg, err := config.Load(opts.v, opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	issues := config.Validate(*cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return nil, nil, fmt.Errorf("configuration is invalid")
	}

	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, err
	}
	a := &app{cfg: cfg, log: log}

	if err := setupMetrics(cfg.Job, cfg.Metrics); err != nil {
		a.Close()
		return nil, nil, err
	}

	f, err := buildFetcher(cfg, log)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, f, nil
}

func buildFetcher(cfg *config.Config, log logrus.FieldLogger) (*feed.Fetcher, error) {
	policy, err := cleaner.ParsePolicy(cfg.Cleaning.Policy)
	if err != nil {
		return nil, err
	}
	cl, err := cleaner.New(cleaner.Config{
		RequiredColumns: cfg.Cleaning.RequiredColumns,
		Policy:          policy,
		Logger:          log,
	})
	if err != nil {
		return nil, err
	}
	client := httpds.NewClient(httpds.Config{
		Timeout:        cfg.Feed.Timeout,
		MaxRetries:     cfg.Feed.MaxRetries,
		InitialBackoff: cfg.Feed.InitialBackoff,
		MaxBackoff:     cfg.Feed.MaxBackoff,
		UserAgent:      cfg.Feed.UserAgent,
		Logger:         log,
	})
	return feed.New(feed.Config{
		BaseURL: cfg.Feed.BaseURL,
		Client:  client,
		Cleaner: cl,
		Cache: feed.NewCache(feed.CacheConfig{
			Dir:              cfg.Feed.CacheDir,
			TTL:              cfg.Feed.CacheTTL,
			CurrentSeasonTTL: cfg.Feed.CurrentSeasonTTL,
			Logger:           log,
		}),
		Logger: log,
	})
}

// buildArchiver returns nil when archiving is disabled.
func buildArchiver(cfg config.ArchiveConfig, log logrus.FieldLogger) (*archive.Writer, error) {
	switch strings.ToLower(cfg.Kind) {
	case "none":
		return nil, nil
	case "", "local":
		root := cfg.LocalDir
		if root == "" {
			root = archive.DefaultLocalRoot
		}
		return archive.NewWriter(archive.LocalStore{Root: root}, cfg.TempDir, log), nil
	case "s3":
		s3, err := archive.NewS3Store(archive.S3Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return archive.NewWriter(s3, cfg.TempDir, log), nil
	default:
		return nil, fmt.Errorf("unknown archive kind %q", cfg.Kind)
	}
}

func buildLocker(cfg config.LockConfig, log logrus.FieldLogger) (lock.Locker, error) {
	if cfg.Dir == "" {
		return lock.Nop{}, nil
	}
	return lock.NewFileLocker(cfg.Dir, lock.DefaultPollInterval, log)
}

// newMetricsBackend returns the configured backend, or nil for none.
var newMetricsBackend = func(job string, cfg config.MetricsConfig) (metrics.Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return nil, nil
	case "pushgateway":
		b, err := prompush.NewBackend(job, cfg.PushgatewayURL)
		if err != nil {
			return nil, fmt.Errorf("pushgateway backend: %w", err)
		}
		return b, nil
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.DatadogAddr,
			Namespace:  cfg.Namespace,
			GlobalTags: cfg.Tags,
		})
		if err != nil {
			return nil, fmt.Errorf("datadog backend: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", cfg.Backend)
	}
}

// setupMetrics installs the configured backend process-wide.
func setupMetrics(job string, cfg config.MetricsConfig) error {
	b, err := newMetricsBackend(job, cfg)
	if err != nil {
		return err
	}
	if b == nil {
		metrics.Reset()
		return nil
	}
	metrics.SetBackend(b)
	return nil
}

// noLoad satisfies ingest.Loader for feed-only commands.
type noLoad struct{}

func (noLoad) Load(context.Context, *frame.Frame) (loader.Summary, error) {
	return loader.Summary{}, fmt.Errorf("loading is not available in this command")
}
