package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/dose-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) time.Time {
	return engine.NewDate(year, month, day)
}

func interval(days float64) decimal.Decimal {
	return decimal.NewFromFloat(days)
}

func assertDates(t *testing.T, got []time.Time, want ...time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d dates, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("date %d: expected %s, got %s", i, engine.FormatDay(want[i]), engine.FormatDay(got[i]))
		}
	}
}

// =============================================================================
// INTEGER INTERVALS
// =============================================================================

func TestScheduleInRange_WeeklyAlignment(t *testing.T) {
	// GIVEN: Protocol starting 2024-01-01 with a 7-day interval
	// WHEN: Querying 2024-01-10 .. 2024-01-31
	// THEN: Only the in-range occurrences fire

	got := engine.ScheduleInRange(date(2024, time.January, 1), interval(7),
		date(2024, time.January, 10), date(2024, time.January, 31), nil)

	assertDates(t, got,
		date(2024, time.January, 15),
		date(2024, time.January, 22),
		date(2024, time.January, 29),
	)
}

func TestScheduleInRange_IntegerInterval_ConstantGapAndDivisibility(t *testing.T) {
	// GIVEN: An integer interval I
	// THEN: Every emitted date satisfies (date - start) mod I == 0 with
	//       strictly ascending constant gaps

	start := date(2023, time.March, 4)
	got := engine.ScheduleInRange(start, interval(3),
		date(2023, time.June, 1), date(2023, time.July, 15), nil)

	if len(got) == 0 {
		t.Fatal("expected a non-empty schedule")
	}
	for i, d := range got {
		offset := engine.DaysBetween(start, d)
		if offset%3 != 0 {
			t.Errorf("date %s is not a multiple of the interval from start", engine.FormatDay(d))
		}
		if i > 0 {
			if gap := engine.DaysBetween(got[i-1], d); gap != 3 {
				t.Errorf("expected constant gap 3, got %d", gap)
			}
		}
	}
}

func TestScheduleInRange_RangeContainsStart(t *testing.T) {
	// GIVEN: A range that starts before the protocol does
	// THEN: The first occurrence is the start date itself, never earlier

	got := engine.ScheduleInRange(date(2024, time.February, 10), interval(2),
		date(2024, time.February, 1), date(2024, time.February, 15), nil)

	assertDates(t, got,
		date(2024, time.February, 10),
		date(2024, time.February, 12),
		date(2024, time.February, 14),
	)
}

// =============================================================================
// FRACTIONAL INTERVALS
// =============================================================================

func TestScheduleInRange_HalfWeekInterval_AlternatingGaps(t *testing.T) {
	// GIVEN: Interval 3.5 starting 2024-01-01
	// WHEN: Querying 2024-01-01 .. 2024-01-15
	// THEN: Gaps alternate 3/4 days and the first date is the start

	got := engine.ScheduleInRange(date(2024, time.January, 1), interval(3.5),
		date(2024, time.January, 1), date(2024, time.January, 15), nil)

	if len(got) < 3 {
		t.Fatalf("expected at least 3 dates, got %d", len(got))
	}
	if !got[0].Equal(date(2024, time.January, 1)) {
		t.Errorf("expected first date to be the start, got %s", engine.FormatDay(got[0]))
	}
	for i := 1; i < len(got); i++ {
		gap := engine.DaysBetween(got[i-1], got[i])
		if gap != 3 && gap != 4 {
			t.Errorf("expected 3- or 4-day gaps, got %d before %s", gap, engine.FormatDay(got[i]))
		}
		if i >= 2 {
			prev := engine.DaysBetween(got[i-2], got[i-1])
			if prev == gap {
				t.Errorf("expected alternating gaps, got %d twice", gap)
			}
		}
	}
}

func TestScheduleInRange_Deterministic(t *testing.T) {
	// GIVEN: Identical inputs
	// THEN: Identical output, with no hidden clock dependency

	run := func() []time.Time {
		return engine.ScheduleInRange(date(2024, time.January, 1), interval(3.5),
			date(2024, time.March, 1), date(2024, time.April, 30), nil)
	}
	first := run()
	second := run()
	assertDates(t, second, first...)
}

func TestScheduleInRange_SubDayInterval_NoDuplicateDays(t *testing.T) {
	// GIVEN: A half-day interval, two occurrences per calendar day
	// THEN: Each day is emitted once, ascending

	got := engine.ScheduleInRange(date(2024, time.May, 1), interval(0.5),
		date(2024, time.May, 1), date(2024, time.May, 5), nil)

	assertDates(t, got,
		date(2024, time.May, 1),
		date(2024, time.May, 2),
		date(2024, time.May, 3),
		date(2024, time.May, 4),
		date(2024, time.May, 5),
	)
}

func TestScheduleInRange_TinyInterval_BoundedByRangeLength(t *testing.T) {
	// GIVEN: An interval far below the half-day validation floor, hundreds
	//        of occurrences per calendar day
	// THEN: The expansion collapses to one date per day across a wide range
	//       without walking every occurrence

	from := date(2024, time.January, 1)
	to := date(2024, time.December, 31)
	got := engine.ScheduleInRange(from, interval(0.001), from, to, nil)

	if len(got) != 366 {
		t.Fatalf("expected 366 daily dates for a leap year, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if engine.DaysBetween(got[i-1], got[i]) != 1 {
			t.Fatalf("dates %d and %d are not consecutive days", i-1, i)
		}
	}
}

// =============================================================================
// BOUNDS AND DEFENSIVE EDGES
// =============================================================================

func TestScheduleInRange_RespectsAllBounds(t *testing.T) {
	// GIVEN: A protocol with an end date inside the queried range
	// THEN: No date falls outside [rangeStart, rangeEnd], before the
	//       start date, or after the end limit

	start := date(2024, time.January, 5)
	limit := date(2024, time.January, 20)
	from := date(2024, time.January, 1)
	to := date(2024, time.January, 31)

	got := engine.ScheduleInRange(start, interval(4), from, to, &limit)
	if len(got) == 0 {
		t.Fatal("expected a non-empty schedule")
	}
	for _, d := range got {
		if d.Before(from) || d.After(to) || d.Before(start) || d.After(limit) {
			t.Errorf("date %s violates bounds", engine.FormatDay(d))
		}
	}
}

func TestScheduleInRange_EmptyCases(t *testing.T) {
	from := date(2024, time.January, 1)
	to := date(2024, time.January, 31)

	// Non-positive interval never loops or throws.
	if got := engine.ScheduleInRange(from, interval(0), from, to, nil); len(got) != 0 {
		t.Errorf("zero interval: expected empty, got %v", got)
	}
	if got := engine.ScheduleInRange(from, interval(-2), from, to, nil); len(got) != 0 {
		t.Errorf("negative interval: expected empty, got %v", got)
	}

	// End limit before the range.
	limit := date(2023, time.December, 15)
	if got := engine.ScheduleInRange(from, interval(7), from, to, &limit); len(got) != 0 {
		t.Errorf("end limit before range: expected empty, got %v", got)
	}

	// Start after the range.
	late := date(2024, time.March, 1)
	if got := engine.ScheduleInRange(late, interval(7), from, to, nil); len(got) != 0 {
		t.Errorf("start after range: expected empty, got %v", got)
	}
}
