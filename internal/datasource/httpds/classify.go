package httpds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/cenkalti/backoff/v4"
)

// maxErrorBody caps how much of an error response is kept in a StatusError.
const maxErrorBody = 512

// Class groups errors by what a retry can achieve.
type Class int

const (
	// ClassUnknown is an error Classify has no rule for.
	ClassUnknown Class = iota
	// ClassTransient may succeed on a later attempt.
	ClassTransient
	// ClassPermanent will fail the same way every time.
	ClassPermanent
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpds: %s %s: status %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
}

// Permanent reports whether the status means the resource is missing or
// access is denied, which retrying cannot change.
func (e *StatusError) Permanent() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusNotFound
}

// AsStatusError unwraps err into a *StatusError.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// permanenter is implemented by errors that know they cannot be retried.
type permanenter interface {
	Permanent() bool
}

// Classify maps err onto a Class. It is a pure function of err.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	var pe *backoff.PermanentError
	if errors.As(err, &pe) {
		return ClassPermanent
	}
	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}
	if se, ok := AsStatusError(err); ok {
		if se.Permanent() {
			return ClassPermanent
		}
		return ClassTransient
	}
	var p permanenter
	if errors.As(err, &p) && p.Permanent() {
		return ClassPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ClassTransient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ClassTransient
	}
	return ClassUnknown
}

// ShouldRetry is the retry policy: everything but permanent errors.
func ShouldRetry(c Class) bool { return c != ClassPermanent }
