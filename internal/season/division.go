package season

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Division is a competition tier identified by its feed code.
type Division string

const (
	PremierLeague Division = "E0"
	Championship  Division = "E1"
	LeagueOne     Division = "E2"
	LeagueTwo     Division = "E3"
	Conference    Division = "EC"
)

// DefaultDivision is used when no division is supplied.
const DefaultDivision = PremierLeague

var divisionNames = map[Division]string{
	PremierLeague: "Premier League",
	Championship:  "Championship",
	LeagueOne:     "League One",
	LeagueTwo:     "League Two",
	Conference:    "Conference",
}

// Divisions returns the closed set of divisions in tier order.
func Divisions() []Division {
	return []Division{PremierLeague, Championship, LeagueOne, LeagueTwo, Conference}
}

// Codes returns the feed codes of every division.
func Codes() []string {
	ds := Divisions()
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = string(d)
	}
	return out
}

// Name returns the human readable division name.
func (d Division) Name() string { return divisionNames[d] }

// Valid reports whether d belongs to the closed set.
func (d Division) Valid() bool {
	_, ok := divisionNames[d]
	return ok
}

func (d Division) String() string { return string(d) }

// InvalidDivisionError names the rejected input and the accepted codes.
type InvalidDivisionError struct {
	Value any
	Valid []string
}

func (e *InvalidDivisionError) Error() string {
	return fmt.Sprintf("season: invalid division %#v (%T); valid divisions: %s",
		e.Value, e.Value, strings.Join(e.Valid, ", "))
}

// Permanent marks the error as not worth retrying.
func (e *InvalidDivisionError) Permanent() bool { return true }

// IsInvalidDivision reports whether err wraps an *InvalidDivisionError.
func IsInvalidDivision(err error) bool {
	var target *InvalidDivisionError
	return errors.As(err, &target)
}

// ResolveDivision turns v into a Division. A Division passes through and a
// string must equal one of the codes exactly. nil falls back to
// DefaultDivision with a warning on log. Anything else, including an empty
// or lowercase code, is an *InvalidDivisionError.
func ResolveDivision(v any, log logrus.FieldLogger) (Division, error) {
	var d Division
	switch x := v.(type) {
	case nil:
		return fallbackDivision(log), nil
	case Division:
		d = x
	case string:
		d = Division(x)
	default:
		return "", &InvalidDivisionError{Value: v, Valid: Codes()}
	}
	if !d.Valid() {
		return "", &InvalidDivisionError{Value: v, Valid: Codes()}
	}
	return d, nil
}

func fallbackDivision(log logrus.FieldLogger) Division {
	if log != nil {
		log.WithField("division", DefaultDivision).
			Warnf("division not provided, defaulting to %s", DefaultDivision.Name())
	}
	return DefaultDivision
}
