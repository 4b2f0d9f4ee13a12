package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "cleaning.required_columns[2]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over cfg without mutating it.
func Validate(cfg Config) []Issue {
	var issues []Issue
	if strings.TrimSpace(cfg.Job) == "" {
		issues = append(issues, errorf("job", "job must not be empty; it labels metrics"))
	}
	issues = append(issues, validateLog(cfg.Log)...)
	issues = append(issues, validateFeed(cfg.Feed)...)
	issues = append(issues, validateCleaning(cfg.Cleaning)...)
	issues = append(issues, validateStorage(cfg.Storage)...)
	issues = append(issues, validateArchive(cfg.Archive)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	issues = append(issues, validateBackfill(cfg.Backfill)...)
	return issues
}

func errorf(path, format string, args ...any) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)}
}

func warnf(path, format string, args ...any) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)}
}

func validateLog(l LogConfig) []Issue {
	var issues []Issue
	switch strings.ToLower(l.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		issues = append(issues, errorf("log.level", "unknown level %q", l.Level))
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		issues = append(issues, errorf("log.format", "unknown format %q; want text or json", l.Format))
	}
	return issues
}

func validateFeed(f FeedConfig) []Issue {
	var issues []Issue
	if u, err := url.Parse(f.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, errorf("feed.base_url", "base_url %q must be an absolute http(s) URL", f.BaseURL))
	}
	if f.Timeout <= 0 {
		issues = append(issues, errorf("feed.timeout", "timeout must be positive"))
	}
	if f.MaxRetries < 0 {
		issues = append(issues, errorf("feed.max_retries", "max_retries must not be negative"))
	} else if f.MaxRetries > 10 {
		issues = append(issues, warnf("feed.max_retries", "max_retries=%d is unusually high for a static file feed", f.MaxRetries))
	}
	if f.CacheDir != "" {
		if f.CacheTTL <= 0 {
			issues = append(issues, errorf("feed.cache_ttl", "cache_ttl must be positive when cache_dir is set"))
		}
		if f.CurrentSeasonTTL <= 0 {
			issues = append(issues, errorf("feed.current_season_ttl", "current_season_ttl must be positive when cache_dir is set"))
		} else if f.CurrentSeasonTTL > 24*time.Hour {
			issues = append(issues, warnf("feed.current_season_ttl", "current season data changes weekly; %s may serve stale fixtures", f.CurrentSeasonTTL))
		}
	}
	return issues
}

func validateCleaning(c CleaningConfig) []Issue {
	var issues []Issue
	if len(c.RequiredColumns) == 0 {
		issues = append(issues, errorf("cleaning.required_columns", "required_columns must list at least one column"))
	}
	seen := map[string]int{}
	hasSeason := false
	for i, col := range c.RequiredColumns {
		n := strings.ToLower(strings.TrimSpace(col))
		path := fmt.Sprintf("cleaning.required_columns[%d]", i)
		if n == "" {
			issues = append(issues, errorf(path, "column name must not be empty"))
			continue
		}
		if j, dup := seen[n]; dup {
			issues = append(issues, errorf(path, "duplicate column %q (also at index %d)", n, j))
		}
		seen[n] = i
		if n == "season" {
			hasSeason = true
		}
	}
	if len(c.RequiredColumns) > 0 && !hasSeason {
		issues = append(issues, errorf("cleaning.required_columns", "required_columns must include season; it is the partition key"))
	}
	switch strings.ToLower(c.Policy) {
	case "", "strict":
	case "lenient":
		issues = append(issues, warnf("cleaning.policy", "lenient keeps rows with blank optional cells; downstream consumers expect fully populated rows"))
	default:
		issues = append(issues, errorf("cleaning.policy", "unknown policy %q; want strict or lenient", c.Policy))
	}
	return issues
}

func validateStorage(s StorageConfig) []Issue {
	var issues []Issue
	kind := strings.ToLower(strings.TrimSpace(s.Kind))
	switch kind {
	case "postgres", "sqlite", "mysql", "mssql":
	case "":
		issues = append(issues, errorf("storage.kind", "storage.kind must not be empty"))
	default:
		issues = append(issues, errorf("storage.kind", "unknown storage kind %q; want postgres, sqlite, mysql or mssql", s.Kind))
	}
	if strings.TrimSpace(s.DSN) == "" && kind != "postgres" {
		issues = append(issues, errorf("storage.dsn", "storage.dsn must not be empty for %s", kind))
	}
	if strings.TrimSpace(s.Table) == "" {
		issues = append(issues, errorf("storage.table", "storage.table must not be empty"))
	}
	if s.BatchSize <= 0 {
		issues = append(issues, warnf("storage.batch_size", "batch_size=%d; the default is used instead", s.BatchSize))
	}
	return issues
}

func validateArchive(a ArchiveConfig) []Issue {
	var issues []Issue
	switch strings.ToLower(a.Kind) {
	case "local":
		if strings.TrimSpace(a.LocalDir) == "" {
			issues = append(issues, errorf("archive.local_dir", "local_dir must not be empty for a local archive"))
		}
	case "s3":
		if strings.TrimSpace(a.Bucket) == "" {
			issues = append(issues, errorf("archive.bucket", "bucket is required for an s3 archive"))
		}
		if a.Region == "" && a.Endpoint == "" {
			issues = append(issues, warnf("archive.region", "no region or endpoint; the AWS environment must supply one"))
		}
	case "none":
		issues = append(issues, warnf("archive.kind", "archiving is disabled; raw snapshots will not be kept"))
	default:
		issues = append(issues, errorf("archive.kind", "unknown archive kind %q; want local, s3 or none", a.Kind))
	}
	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue
	switch strings.ToLower(m.Backend) {
	case "", "none":
	case "pushgateway":
		if m.PushgatewayURL == "" {
			issues = append(issues, errorf("metrics.pushgateway_url", "pushgateway_url is required for the pushgateway backend"))
		}
	case "datadog":
		if m.DatadogAddr == "" {
			issues = append(issues, errorf("metrics.datadog_addr", "datadog_addr is required for the datadog backend"))
		}
	default:
		issues = append(issues, errorf("metrics.backend", "unknown metrics backend %q; want none, pushgateway or datadog", m.Backend))
	}
	return issues
}

func validateBackfill(b BackfillConfig) []Issue {
	var issues []Issue
	if b.EndYear < b.StartYear {
		issues = append(issues, errorf("backfill.end_year", "end_year %d is before start_year %d", b.EndYear, b.StartYear))
	}
	if b.Delay < 0 {
		issues = append(issues, errorf("backfill.delay", "delay must not be negative"))
	}
	if b.Concurrency < 1 {
		issues = append(issues, errorf("backfill.concurrency", "concurrency must be at least 1"))
	} else if b.Concurrency > 4 {
		issues = append(issues, warnf("backfill.concurrency", "concurrency=%d may trip rate limits on the upstream feed", b.Concurrency))
	}
	return issues
}
