// Package datadog sends footballetl metrics to a DogStatsD agent.
//
// Metric names lose their "footballetl_" prefix and gain the configured
// namespace instead, so footballetl_rows_total is reported as
// footballetl.rows_total by default. Labels become sorted "key:value" tags.
package datadog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/DataDog/datadog-go/v5/statsd"

	"footballetl/internal/metrics"
)

// DefaultNamespace prefixes every metric when Config.Namespace is empty.
const DefaultNamespace = "footballetl."

type Config struct {
	// Addr is "host:port" for UDP or "unix:///path" for a socket.
	Addr string
	// Namespace defaults to DefaultNamespace; a trailing dot is added when
	// missing.
	Namespace  string
	GlobalTags []string
}

// client is the part of statsd.ClientInterface the backend calls.
type client interface {
	Count(name string, value int64, tags []string, rate float64) error
	Histogram(name string, value float64, tags []string, rate float64) error
	Close() error
}

// Backend implements metrics.Backend.
type Backend struct {
	client client
}

// NewBackend dials the agent. Addr is required.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: agent address is required")
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	if !strings.HasSuffix(ns, ".") {
		ns += "."
	}
	opts := []statsd.Option{statsd.WithNamespace(ns)}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}
	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: dial %s: %w", cfg.Addr, err)
	}
	return &Backend{client: c}, nil
}

// IncCounter reports a Count. Row and batch deltas are whole numbers.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Count(statName(name), int64(delta), tags(labels), 1)
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Histogram(statName(name), value, tags(labels), 1)
}

// Flush closes the client, sending whatever is buffered. The backend is
// unusable afterwards.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

func statName(name string) string {
	return strings.TrimPrefix(name, "footballetl_")
}

func tags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
