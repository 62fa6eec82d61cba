/*
schedule.go - Interval rule expansion

PURPOSE:
  Expands one protocol's interval rule into the concrete calendar dates
  it fires within a query range. This is the generator every higher
  layer (aggregation, month statistics, calendar views) builds on.

ALGORITHM:
  1. Compute the day offset between the protocol start and the range start.
  2. Derive the smallest non-negative multiple of the interval landing on
     or after that offset (alignment step). This avoids re-walking from
     the start date for ranges queried far from the protocol's origin.
  3. Emit start + floor(k * interval) days for increasing k while the
     candidate stays within the range and under the end limit.

FRACTIONAL INTERVALS:
  Occurrence k lands on the day floor(k * interval) days after the start,
  so an interval of 3.5 produces alternating 3/4-day gaps (days 0, 3, 7,
  10, 14, ...). The cumulative drift matches real elapsed time; the
  uneven gap sequence is an accepted property, not a defect. Intervals
  below one day collapse consecutive occurrences onto the same calendar
  day; each day is emitted once, and the loop advances by whole days, so
  runtime is bounded by the range length rather than the occurrence count.

SEE ALSO:
  - aggregate.go: Runs this once per visible protocol and unions the output
  - calendar.go: Supplies the typical query range (a month grid)
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleInRange expands a protocol's interval rule into the ordered,
// ascending, duplicate-free dates it fires within [rangeStart, rangeEnd],
// restricted to dates <= endLimit when endLimit is non-nil.
//
// Defensive edges, none of which error:
//   - intervalDays <= 0          -> empty
//   - endLimit before rangeStart -> empty
//   - startDate after rangeEnd   -> empty
func ScheduleInRange(startDate time.Time, intervalDays decimal.Decimal, rangeStart, rangeEnd time.Time, endLimit *time.Time) []time.Time {
	if !intervalDays.IsPositive() {
		return nil
	}

	start := StartOfDay(startDate)
	from := StartOfDay(rangeStart)
	to := StartOfDay(rangeEnd)

	if endLimit != nil {
		limit := StartOfDay(*endLimit)
		if limit.Before(from) {
			return nil
		}
		if limit.Before(to) {
			to = limit
		}
	}
	if start.After(to) || to.Before(from) {
		return nil
	}

	// Alignment: smallest k >= 0 with start + k*interval on/after the
	// range start. k = ceil(offset / interval), clamped so the first
	// candidate is never earlier than the start date itself.
	k := decimal.Zero
	if offset := DaysBetween(start, from); offset > 0 {
		k = decimal.NewFromInt(int64(offset)).Div(intervalDays).Ceil()
	}

	one := decimal.NewFromInt(1)
	var dates []time.Time
	for {
		day := k.Mul(intervalDays).Floor()
		date := AddDays(start, int(day.IntPart()))
		if date.After(to) {
			return dates
		}
		if !date.Before(from) {
			dates = append(dates, date)
		}
		// Jump straight to the first occurrence landing on a later
		// calendar day. Each day is emitted at most once, and the loop
		// stays linear in the range length even when the interval is a
		// tiny fraction of a day.
		k = day.Add(one).Div(intervalDays).Ceil()
	}
}

// ScheduleForProtocol runs ScheduleInRange with the protocol's own start
// and end bounds.
func ScheduleForProtocol(p Protocol, rangeStart, rangeEnd time.Time) []time.Time {
	return ScheduleInRange(p.StartDate, p.IntervalDays, rangeStart, rangeEnd, p.EndDate)
}
