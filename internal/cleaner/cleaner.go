// Package cleaner turns a raw feed table into a validated, deduplicated and
// column-normalized frame.
//
// Clean runs these stages in order, each logged with its row counts:
//
//  1. normalize column names (lowercase, spaces to underscores)
//  2. parse dates and drop invalid rows according to the Policy
//  3. stamp every row with the season label
//  4. drop duplicate fixtures, keeping the first occurrence
//  5. check the required-columns contract
//  6. project to exactly the required columns, in contract order
package cleaner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"footballetl/internal/dateparse"
	"footballetl/internal/frame"
	"footballetl/internal/logging"
	csvparser "footballetl/internal/parser/csv"
	"footballetl/internal/season"
)

// Normalized names of the columns that identify a fixture.
const (
	ColDate     = "date"
	ColHomeTeam = "hometeam"
	ColAwayTeam = "awayteam"
	ColSeason   = "season"
	ColDivision = "div"
)

// IdentityColumns is the dedup key, in hashing order.
var IdentityColumns = []string{ColDate, ColHomeTeam, ColAwayTeam, ColSeason, ColDivision}

// Config configures a Cleaner.
type Config struct {
	// RequiredColumns is the ordered column contract every cleaned frame is
	// projected to. It must not be empty.
	RequiredColumns []string

	// Policy selects strict or lenient row validation; empty means strict.
	Policy Policy

	Logger logrus.FieldLogger
}

// Cleaner is safe for concurrent use.
type Cleaner struct {
	required []string
	policy   Policy
	log      logrus.FieldLogger
}

// Report carries the row counts of one Clean call.
type Report struct {
	Input             int
	DroppedInvalid    int
	DroppedDuplicates int
	Output            int
}

// New validates cfg and returns a Cleaner. An empty or malformed contract is a
// *ConfigurationError.
func New(cfg Config) (*Cleaner, error) {
	if len(cfg.RequiredColumns) == 0 {
		return nil, &ConfigurationError{Field: "required_columns", Reason: "no required columns configured"}
	}
	seen := make(map[string]struct{}, len(cfg.RequiredColumns))
	required := make([]string, 0, len(cfg.RequiredColumns))
	for i, c := range cfg.RequiredColumns {
		n := NormalizeHeader(c)
		if n == "" {
			return nil, &ConfigurationError{Field: fmt.Sprintf("required_columns[%d]", i), Reason: "empty column name"}
		}
		if _, dup := seen[n]; dup {
			return nil, &ConfigurationError{Field: fmt.Sprintf("required_columns[%d]", i), Reason: fmt.Sprintf("duplicate column %q", n)}
		}
		seen[n] = struct{}{}
		required = append(required, n)
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyStrict
	}
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	return &Cleaner{
		required: required,
		policy:   policy,
		log:      logging.Component(cfg.Logger, "cleaner"),
	}, nil
}

// RequiredColumns returns a copy of the normalized contract.
func (c *Cleaner) RequiredColumns() []string {
	return append([]string(nil), c.required...)
}

// Policy returns the row validation policy in use.
func (c *Cleaner) Policy() Policy { return c.policy }

// Clean validates and reshapes raw for the given season.
func (c *Cleaner) Clean(label season.Label, raw *csvparser.Table) (*frame.Frame, Report, error) {
	var rep Report
	if raw.Len() == 0 {
		return nil, rep, ErrEmptyInput
	}
	rep.Input = raw.Len()
	log := c.log.WithField(logging.FieldSeason, label)

	// Stage 1: normalize names. Unnamed columns (trailing delimiters) and
	// repeated names after normalization are discarded.
	names, keep := c.columns(raw.Header)
	log.WithField("columns", len(names)).Debug("standardized column names")

	pos := make(map[string]int, len(names))
	for i, n := range names {
		pos[n] = i
	}
	var missingIdentity []string
	for _, n := range []string{ColDate, ColHomeTeam, ColAwayTeam} {
		if _, ok := pos[n]; !ok {
			missingIdentity = append(missingIdentity, n)
		}
	}
	if len(missingIdentity) > 0 {
		sort.Strings(missingIdentity)
		return nil, rep, &SchemaValidationError{Missing: missingIdentity}
	}
	iDate, iHome, iAway := pos[ColDate], pos[ColHomeTeam], pos[ColAwayTeam]
	iDiv, hasDiv := pos[ColDivision]

	// The season column is stamped, overwriting any season the feed supplies.
	iSeason, hasSeason := pos[ColSeason]
	if !hasSeason {
		iSeason = len(names)
		names = append(names, ColSeason)
	}

	// Stages 2-4: validate, stamp and dedup in one pass.
	dedup := newKeepFirst(raw.Len())
	dates := make([]time.Time, 0, raw.Len())
	rows := make([][]string, 0, raw.Len())
	for _, rec := range raw.Records {
		cells := make([]string, len(names))
		for j, src := range keep {
			cells[j] = normalizeCell(rec[src])
		}
		d, ok := dateparse.Parse(cells[iDate])
		if !ok {
			rep.DroppedInvalid++
			continue
		}
		cells[iSeason] = string(label)
		if !c.policy.keepRow(cells, [2]int{iHome, iAway}) {
			rep.DroppedInvalid++
			continue
		}
		day := d.Format(time.DateOnly)
		cells[iDate] = day
		div := ""
		if hasDiv {
			div = cells[iDiv]
		}
		if !dedup.admit(day, cells[iHome], cells[iAway], cells[iSeason], div) {
			rep.DroppedDuplicates++
			continue
		}
		dates = append(dates, d)
		rows = append(rows, cells)
	}
	if rep.DroppedInvalid > 0 {
		log.WithField("dropped", rep.DroppedInvalid).Warn("dropped rows with invalid dates or missing values")
	}
	if rep.DroppedDuplicates > 0 {
		log.WithField("dropped", rep.DroppedDuplicates).Info("removed duplicate matches")
	}

	// Stage 5: contract check.
	var missing []string
	for _, r := range c.required {
		if _, ok := pos[r]; !ok && r != ColSeason {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		log.WithField("missing", strings.Join(missing, ",")).Error("missing required columns")
		return nil, rep, &SchemaValidationError{Missing: missing}
	}

	// Stage 6: project and type.
	f, err := c.project(names, rows, dates)
	if err != nil {
		return nil, rep, err
	}
	rep.Output = f.Len()
	log.WithFields(logrus.Fields{
		logging.FieldRows: rep.Output,
		"columns":         len(c.required),
	}).Info("data cleaning completed")
	return f, rep, nil
}

// columns normalizes header names and returns them with the source index of
// each kept column.
func (c *Cleaner) columns(header []string) (names []string, keep []int) {
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		n := NormalizeHeader(h)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
		keep = append(keep, i)
	}
	return names, keep
}

func (c *Cleaner) project(names []string, rows [][]string, dates []time.Time) (*frame.Frame, error) {
	pos := make(map[string]int, len(names))
	for i, n := range names {
		pos[n] = i
	}
	cols := make([]frame.Column, len(c.required))
	src := make([]int, len(c.required))
	for i, name := range c.required {
		j := pos[name]
		src[i] = j
		cols[i] = frame.Column{Name: name, Kind: c.kindOf(name, rows, j)}
	}
	out := make([][]any, len(rows))
	for r, cells := range rows {
		row := make([]any, len(cols))
		for i, col := range cols {
			if col.Kind == frame.KindDate {
				row[i] = dates[r]
				continue
			}
			row[i] = convert(cells[src[i]], col.Kind)
		}
		out[r] = row
	}
	f, err := frame.New(cols, out)
	if err != nil {
		return nil, fmt.Errorf("cleaner: build frame: %w", err)
	}
	return f, nil
}

func (c *Cleaner) kindOf(name string, rows [][]string, j int) frame.Kind {
	switch name {
	case ColDate:
		return frame.KindDate
	case ColHomeTeam, ColAwayTeam, ColSeason, ColDivision:
		return frame.KindString
	}
	vals := make([]string, len(rows))
	for r, cells := range rows {
		vals[r] = cells[j]
	}
	return inferKind(vals)
}
