package cleaner

import (
	"errors"
	"fmt"
	"strings"
)

// permanentError is a sentinel that retry classifiers treat as final.
type permanentError string

func (e permanentError) Error() string { return string(e) }
func (permanentError) Permanent() bool { return true }

// ErrEmptyInput is returned when the raw table has no data rows. It is
// distinct from valid input that cleans down to zero rows.
var ErrEmptyInput error = permanentError("cleaner: received empty input, cannot clean data")

// ConfigurationError reports an unusable cleaner configuration, such as an
// empty required-columns contract.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("cleaner: configuration error: %s: %s", e.Field, e.Reason)
}

// Permanent marks the error as not worth retrying.
func (e *ConfigurationError) Permanent() bool { return true }

// SchemaValidationError lists the required columns that are missing from the
// cleaned data.
type SchemaValidationError struct {
	Missing []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("cleaner: missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Permanent marks the error as not worth retrying.
func (e *SchemaValidationError) Permanent() bool { return true }

// AsSchemaValidationError unwraps err into a *SchemaValidationError.
func AsSchemaValidationError(err error) (*SchemaValidationError, bool) {
	var target *SchemaValidationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
