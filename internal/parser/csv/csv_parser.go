// Package csv decodes the delimited text tables served by the match feed into
// a raw, all-string Table. No typing or validation happens here; that is the
// cleaner's job.
//
// The feed is old and inconsistent: some seasons are Windows-1252 rather than
// UTF-8, some rows carry more or fewer fields than the header, and a few files
// end with rows of bare delimiters. Decoding is lenient about all of these.
package csv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Table is a header plus raw records. Every record is padded or truncated to
// the header width.
type Table struct {
	Header  []string
	Records [][]string
}

// Len returns the number of data records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Options configures the parser. The zero value reads comma-separated input.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// SkipBlankRows drops records whose every field is empty.
	SkipBlankRows bool
}

// Parser decodes CSV input according to Options. It is safe for concurrent use.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("csv: input has no header row")

// ParseBytes decodes b. Input that is not valid UTF-8 is transcoded from
// Windows-1252 first.
func (p *Parser) ParseBytes(b []byte) (*Table, error) {
	if !utf8.Valid(b) {
		dec, err := charmap.Windows1252.NewDecoder().Bytes(b)
		if err != nil {
			return nil, fmt.Errorf("csv: transcode windows-1252: %w", err)
		}
		b = dec
	}
	return p.Parse(bytes.NewReader(b))
}

// Parse decodes r, which must already be UTF-8.
func (p *Parser) Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	header = StripHeaderBOM(header)

	t := &Table{Header: header}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		if p.opt.SkipBlankRows && blank(rec) {
			continue
		}
		t.Records = append(t.Records, fit(rec, len(header)))
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if f != "" {
			return false
		}
	}
	return true
}

// fit pads short records with empty fields and truncates long ones.
func fit(rec []string, width int) []string {
	switch {
	case len(rec) == width:
		return rec
	case len(rec) > width:
		return rec[:width]
	default:
		out := make([]string, width)
		copy(out, rec)
		return out
	}
}
