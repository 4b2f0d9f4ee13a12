// Package logging builds the logrus loggers used across the pipeline.
//
// Every component receives a logrus.FieldLogger at construction time and tags
// its lines with a component field, so a run reads like:
//
//	level=info msg="season loaded" component=loader season=2425 deleted=380 inserted=380
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Common field keys.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldSeason    = "season"
	FieldDivision  = "division"
	FieldTable     = "table"
	FieldRows      = "rows"
	FieldKey       = "key"
	FieldURL       = "url"
	FieldAttempt   = "attempt"
	FieldDuration  = "duration"
)

// Config selects level, format and destination.
type Config struct {
	Level  string    // trace|debug|info|warn|error; default info
	Format string    // text|json; default text
	Output io.Writer // default os.Stderr
}

// New returns a configured *logrus.Logger.
func New(cfg Config) (*logrus.Logger, error) {
	l := logrus.New()

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)

	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	l.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableQuote: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}
	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Component tags l with the component name. A nil l yields a discard logger.
func Component(l logrus.FieldLogger, name string) logrus.FieldLogger {
	if l == nil {
		l = Discard()
	}
	return l.WithField(FieldComponent, name)
}

// OrDiscard returns l, or a discard logger when l is nil.
func OrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return Discard()
	}
	return l
}
