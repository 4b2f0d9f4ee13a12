package cleaner

import (
	"strconv"

	"footballetl/internal/frame"
)

// inferKind picks the narrowest kind that every value in vals parses as.
// Any empty value forces KindString so the frame never holds a nil.
func inferKind(vals []string) frame.Kind {
	if len(vals) == 0 {
		return frame.KindString
	}
	isInt, isFloat := true, true
	for _, v := range vals {
		if v == "" {
			return frame.KindString
		}
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if !isInt {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
				break
			}
		}
	}
	switch {
	case isInt:
		return frame.KindInt
	case isFloat:
		return frame.KindFloat
	default:
		return frame.KindString
	}
}

// convert turns a raw cell into the Go value for kind. Callers only pass
// values inferKind already accepted.
func convert(v string, kind frame.Kind) any {
	switch kind {
	case frame.KindInt:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case frame.KindFloat:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return v
	}
}
