/*
errors.go - Centralized error types

PURPOSE:
  All error types in one place for consistency and discoverability. The
  engine itself never raises for malformed but well-typed numeric input -
  it degrades (empty schedule, recomputed dose, silent exclusion). These
  errors belong to the surrounding layers: record validation and the
  persistence collaborator.

USAGE:
  Callers classify with errors.Is or the helpers below:

    if engine.IsNotFound(err) {
        // 404
    }
*/
package engine

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrProtocolNotFound is returned when a referenced protocol doesn't exist.
	ErrProtocolNotFound = errors.New("protocol not found")

	// ErrInjectionNotFound is returned when a referenced injection doesn't exist.
	ErrInjectionNotFound = errors.New("injection not found")

	// ErrInvalidInterval is returned when an interval is below half a day
	// or not a half-day increment.
	ErrInvalidInterval = errors.New("interval must be >= 0.5 in half-day increments")

	// ErrInvalidDose is returned when dose volume or concentration is not positive.
	ErrInvalidDose = errors.New("dose and concentration must be positive")

	// ErrInvalidDateRange is returned when an end date precedes a start date.
	ErrInvalidDateRange = errors.New("end date before start date")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidProtocolError reports which protocol field failed validation.
type InvalidProtocolError struct {
	ProtocolID ProtocolID
	Field      string
	Reason     error
}

func (e *InvalidProtocolError) Error() string {
	return fmt.Sprintf("invalid protocol %s: %s: %v", e.ProtocolID, e.Field, e.Reason)
}

func (e *InvalidProtocolError) Unwrap() error { return e.Reason }

// DateRangeError reports an inverted date pair.
type DateRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("end date %s before start date %s", FormatDay(e.End), FormatDay(e.Start))
}

func (e *DateRangeError) Unwrap() error { return ErrInvalidDateRange }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProtocolNotFound) ||
		errors.Is(err, ErrInjectionNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrInvalidDose) ||
		errors.Is(err, ErrInvalidDateRange)
}
