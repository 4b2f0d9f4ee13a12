// Package frame holds the typed, column-ordered record set that flows from the
// cleaner into the archive and the loader.
//
// A Frame is validated when it is built: every row has one cell per column and
// every cell carries the Go type of its column's Kind. Once returned from New a
// Frame is read-only by convention, which lets the archive writer and the
// loader share it across goroutines.
package frame

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind is the logical type of a column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string":
		return KindString, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "date":
		return KindDate, nil
	}
	return 0, fmt.Errorf("frame: unknown kind %q", s)
}

// Column is a named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Frame is an ordered set of typed rows.
type Frame struct {
	Columns []Column
	Rows    [][]any

	index map[string]int
}

// ErrNoColumn is returned when a named column does not exist.
var ErrNoColumn = errors.New("frame: no such column")

// New validates columns and rows and returns the Frame.
func New(columns []Column, rows [][]any) (*Frame, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("frame: column %d has an empty name", i)
		}
		if _, dup := idx[c.Name]; dup {
			return nil, fmt.Errorf("frame: duplicate column %q", c.Name)
		}
		if c.Kind < KindString || c.Kind > KindDate {
			return nil, fmt.Errorf("frame: column %q has invalid kind %d", c.Name, int(c.Kind))
		}
		idx[c.Name] = i
	}
	for r, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("frame: row %d has %d cells, want %d", r, len(row), len(columns))
		}
		for i, v := range row {
			if err := checkCell(columns[i], v); err != nil {
				return nil, fmt.Errorf("frame: row %d: %w", r, err)
			}
		}
	}
	return &Frame{Columns: columns, Rows: rows, index: idx}, nil
}

// MustNew is New for fixtures; it panics on invalid input.
func MustNew(columns []Column, rows [][]any) *Frame {
	f, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return f
}

func checkCell(c Column, v any) error {
	var ok bool
	switch c.Kind {
	case KindString:
		_, ok = v.(string)
	case KindInt:
		_, ok = v.(int64)
	case KindFloat:
		_, ok = v.(float64)
	case KindDate:
		_, ok = v.(time.Time)
	}
	if !ok {
		return fmt.Errorf("column %q (%s) holds %T", c.Name, c.Kind, v)
	}
	return nil
}

// Len returns the number of rows; a nil Frame has none.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of name, or -1.
func (f *Frame) Index(name string) int {
	if f == nil {
		return -1
	}
	if f.index == nil {
		for i, c := range f.Columns {
			if c.Name == name {
				return i
			}
		}
		return -1
	}
	if i, ok := f.index[name]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether name is a column of f.
func (f *Frame) HasColumn(name string) bool { return f.Index(name) >= 0 }

// Column returns the named column.
func (f *Frame) Column(name string) (Column, bool) {
	i := f.Index(name)
	if i < 0 {
		return Column{}, false
	}
	return f.Columns[i], true
}

// Value returns the cell at row r of the named column.
func (f *Frame) Value(r int, name string) (any, error) {
	i := f.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	if r < 0 || r >= len(f.Rows) {
		return nil, fmt.Errorf("frame: row %d out of range [0,%d)", r, len(f.Rows))
	}
	return f.Rows[r][i], nil
}

// Project returns a new Frame holding only names, in that order.
func (f *Frame) Project(names []string) (*Frame, error) {
	pos := make([]int, len(names))
	cols := make([]Column, len(names))
	for i, n := range names {
		j := f.Index(n)
		if j < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoColumn, n)
		}
		pos[i] = j
		cols[i] = f.Columns[j]
	}
	rows := make([][]any, len(f.Rows))
	for r, row := range f.Rows {
		out := make([]any, len(pos))
		for i, j := range pos {
			out[i] = row[j]
		}
		rows[r] = out
	}
	return New(cols, rows)
}

// DistinctStrings returns the distinct values of a string column in
// first-seen order.
func (f *Frame) DistinctStrings(name string) ([]string, error) {
	c, ok := f.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	if c.Kind != KindString {
		return nil, fmt.Errorf("frame: column %q is %s, not string", name, c.Kind)
	}
	i := f.Index(name)
	seen := make(map[string]struct{})
	var out []string
	for _, row := range f.Rows {
		s := row[i].(string)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// Filter returns a Frame with the rows for which keep returns true. Rows are
// shared with f, not copied.
func (f *Frame) Filter(keep func(row []any) bool) *Frame {
	rows := make([][]any, 0, len(f.Rows))
	for _, row := range f.Rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	return &Frame{Columns: f.Columns, Rows: rows, index: f.index}
}
