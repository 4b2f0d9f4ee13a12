// Package config loads the footballetl configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML file
// (config/footballetl.yaml unless --config says otherwise), a .env file in
// the working directory, and FOOTBALL_ETL_* environment variables, where the
// dotted key path maps to underscores (storage.dsn -> FOOTBALL_ETL_STORAGE_DSN).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FOOTBALL_ETL"

// DefaultPath is read when no explicit config file is given.
const DefaultPath = "config/footballetl.yaml"

// Config is the full application configuration.
type Config struct {
	Job      string         `mapstructure:"job"`
	Log      LogConfig      `mapstructure:"log"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Cleaning CleaningConfig `mapstructure:"cleaning"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Lock     LockConfig     `mapstructure:"lock"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Backfill BackfillConfig `mapstructure:"backfill"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FeedConfig configures the upstream CSV feed and the cleaned-frame cache.
type FeedConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	InitialBackoff   time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff       time.Duration `mapstructure:"max_backoff"`
	UserAgent        string        `mapstructure:"user_agent"`
	CacheDir         string        `mapstructure:"cache_dir"` // empty disables the cache
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	CurrentSeasonTTL time.Duration `mapstructure:"current_season_ttl"`
}

// CleaningConfig holds the required-columns contract.
type CleaningConfig struct {
	RequiredColumns []string `mapstructure:"required_columns"`
	Policy          string   `mapstructure:"policy"` // strict|lenient
}

type StorageConfig struct {
	Kind      string `mapstructure:"kind"`
	DSN       string `mapstructure:"dsn"`
	Table     string `mapstructure:"table"`
	BatchSize int    `mapstructure:"batch_size"`
}

// ArchiveConfig selects where raw Parquet snapshots go.
type ArchiveConfig struct {
	Kind      string `mapstructure:"kind"` // local|s3|none
	LocalDir  string `mapstructure:"local_dir"`
	TempDir   string `mapstructure:"temp_dir"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// LockConfig enables per-partition file locks when Dir is set.
type LockConfig struct {
	Dir string `mapstructure:"dir"`
}

type MetricsConfig struct {
	Backend        string   `mapstructure:"backend"` // none|pushgateway|datadog
	PushgatewayURL string   `mapstructure:"pushgateway_url"`
	DatadogAddr    string   `mapstructure:"datadog_addr"`
	Namespace      string   `mapstructure:"namespace"`
	Tags           []string `mapstructure:"tags"`
}

type BackfillConfig struct {
	StartYear   int           `mapstructure:"start_year"`
	EndYear     int           `mapstructure:"end_year"`
	Delay       time.Duration `mapstructure:"delay"`
	Concurrency int           `mapstructure:"concurrency"`
}

// Defaults returns every key with its built-in value.
func Defaults() map[string]any {
	return map[string]any{
		"job":                       "footballetl",
		"log.level":                 "info",
		"log.format":                "text",
		"feed.base_url":             "https://www.football-data.co.uk/mmz4281",
		"feed.timeout":              "10s",
		"feed.max_retries":          3,
		"feed.initial_backoff":      "500ms",
		"feed.max_backoff":          "5s",
		"feed.user_agent":           "footballetl/1.0",
		"feed.cache_dir":            "",
		"feed.cache_ttl":            "144h",
		"feed.current_season_ttl":   "6h",
		"cleaning.required_columns": []string{},
		"cleaning.policy":           "strict",
		"storage.kind":              "postgres",
		"storage.dsn":               "",
		"storage.table":             "english_league_data",
		"storage.batch_size":        5000,
		"archive.kind":              "local",
		"archive.local_dir":         "data",
		"archive.temp_dir":          "",
		"archive.bucket":            "",
		"archive.prefix":            "",
		"archive.region":            "",
		"archive.endpoint":          "",
		"archive.path_style":        false,
		"lock.dir":                  "",
		"metrics.backend":           "none",
		"metrics.pushgateway_url":   "",
		"metrics.datadog_addr":      "",
		"metrics.namespace":         "",
		"metrics.tags":              []string{},
		"backfill.start_year":       2000,
		"backfill.end_year":         2024,
		"backfill.delay":            "5s",
		"backfill.concurrency":      1,
	}
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path into v and decodes the result. An empty path reads
// DefaultPath when it exists; an explicit path must exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		missing := errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Cleaning.RequiredColumns = splitList(cfg.Cleaning.RequiredColumns)
	cfg.Metrics.Tags = splitList(cfg.Metrics.Tags)
	return &cfg, nil
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
