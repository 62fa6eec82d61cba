package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAY NORMALIZATION - All engine comparisons are day-granular
// =============================================================================

// StartOfDay strips the time of day, keeping only calendar fields.
// Dates are treated as local calendar dates already resolved upstream,
// so the result is anchored in UTC for stable keys.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NewDate constructs a day-normalized date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day. Engine computations take the
// reference day as an explicit argument; this is a convenience for callers.
func Today() time.Time {
	return StartOfDay(time.Now())
}

// IsSameDay reports whether two timestamps fall on the same calendar day.
func IsSameDay(a, b time.Time) bool {
	return StartOfDay(a).Equal(StartOfDay(b))
}

// =============================================================================
// DAY KEYS - Integral, locale-independent identifiers for calendar days
// =============================================================================

// DayKey returns an integral key for the calendar day of t: the Unix
// timestamp of the normalized day start. Injective over distinct days and
// stable across process restarts because it derives purely from calendar
// fields, not wall-clock.
func DayKey(t time.Time) int64 {
	return StartOfDay(t).Unix()
}

// DayFromKey is the inverse of DayKey.
func DayFromKey(key int64) time.Time {
	return time.Unix(key, 0).UTC()
}

// =============================================================================
// DAY ARITHMETIC
// =============================================================================

// AddDays adds whole calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AddFractionalDays adds a possibly-fractional number of days. Half-day
// intervals stay exact because the offset is computed in nanoseconds from
// a decimal value. Callers re-normalize the result with StartOfDay.
func AddFractionalDays(t time.Time, days decimal.Decimal) time.Time {
	nanos := days.Mul(decimal.NewFromInt(int64(24 * time.Hour))).IntPart()
	return t.Add(time.Duration(nanos))
}

// DaysBetween returns the whole-day offset from one day to another.
// Negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(StartOfDay(to).Sub(StartOfDay(from)).Hours() / 24)
}

// =============================================================================
// CALENDAR ANCHORS
// =============================================================================

// StartOfMonth returns the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return NewDate(t.Year(), t.Month(), 1)
}

// StartOfWeek returns the Sunday on or before t.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	return AddDays(day, -int(day.Weekday()))
}

// =============================================================================
// DISPLAY HELPERS - Excluded from correctness contracts
// =============================================================================

// FormatDay renders a date as an ISO calendar day.
func FormatDay(t time.Time) string {
	return StartOfDay(t).Format("2006-01-02")
}

// ParseDay parses an ISO calendar day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(t), nil
}
