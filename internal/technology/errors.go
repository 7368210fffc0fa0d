package technology

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound marks lookups that matched neither a custom definition nor the
// upstream library. Callers map it to a 404-equivalent; it is never retried.
var ErrNotFound = errors.New("technology not found")

// ErrInvalidDefinition marks definition files and configs rejected at
// validation time. Callers map it to a 4xx-equivalent.
var ErrInvalidDefinition = errors.New("invalid technology definition")

// NotFoundError carries the human-readable label ("Turbine", "Solar
// technology") and identifier of a failed lookup.
type NotFoundError struct {
	Label string
	Name  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' was not found.", e.Label, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidDefinitionError reports a resolved definition file that does not
// parse to a structured mapping.
type InvalidDefinitionError struct {
	Label string
	Name  string
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("%s '%s' has an invalid definition file.", e.Label, e.Name)
}

func (e *InvalidDefinitionError) Unwrap() error { return ErrInvalidDefinition }

// MissingFieldsError names every required field absent from a solar
// technology config.
type MissingFieldsError struct {
	Model  string
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("solar model '%s' is missing required field(s): %s",
		e.Model, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Unwrap() error { return ErrInvalidDefinition }

// LengthMismatchError reports turbine speed/power arrays of unequal length.
type LengthMismatchError struct {
	SpeedLen int
	PowerLen int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("wind_speeds and power_curve_mw must have the same length (got %d and %d)",
		e.SpeedLen, e.PowerLen)
}

func (e *LengthMismatchError) Unwrap() error { return ErrInvalidDefinition }
