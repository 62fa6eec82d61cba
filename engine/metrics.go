/*
metrics.go - Cross-cutting statistics

PURPOSE:
  Derives the dashboard numbers from protocol and injection snapshots:
  the active protocol's last/next event and countdown, logging streaks,
  and the adherence ratio built from month statistics.

STREAK CONTRACT:
  Longest streak walks the distinct logging days descending; two
  consecutive days belong to the same run when their gap is at most 7
  days. Current streak is computed independently from only the 10 most
  recent distinct days with an escalating tolerance: day i extends the
  streak only while its gap from today stays within 7 * (streak + 1)
  days. The widening window is the exact user-visible contract and is
  reproduced as-is.

SEE ALSO:
  - aggregate.go: MonthStats feeding the adherence ratio
  - trends.go: Fixed-length series over the same snapshots
*/
package engine

import (
	"sort"
	"time"
)

// =============================================================================
// ACTIVE-PROTOCOL TIMING
// =============================================================================

// Timing describes where the active protocol stands relative to today.
type Timing struct {
	// LastLog is the chronologically latest non-trashed injection for the
	// protocol, nil when none exists.
	LastLog *Injection

	// NextDue is LastLog.Date + IntervalDays when a last log exists, else
	// the protocol's own start date. May carry a half-day offset; use
	// StartOfDay for calendar placement.
	NextDue time.Time

	// WithinRange is false once NextDue passes the protocol's end date.
	WithinRange bool

	// DaysRemaining counts whole days until NextDue, floored at zero.
	DaysRemaining int
}

// ComputeTiming derives the next-due date and countdown for one protocol.
func ComputeTiming(p Protocol, injections []Injection, today time.Time) Timing {
	var last *Injection
	for i := range injections {
		inj := &injections[i]
		if inj.IsTrashed || inj.ProtocolID != p.ID {
			continue
		}
		// Later date wins; ties are arbitrary among same-day entries.
		if last == nil || !inj.Date.Before(last.Date) {
			last = inj
		}
	}

	var next time.Time
	if last != nil {
		next = AddFractionalDays(StartOfDay(last.Date), p.IntervalDays)
	} else {
		next = StartOfDay(p.StartDate)
	}

	withinRange := p.EndDate == nil || !StartOfDay(next).After(StartOfDay(*p.EndDate))

	remaining := DaysBetween(today, StartOfDay(next))
	if remaining < 0 {
		remaining = 0
	}

	return Timing{
		LastLog:       last,
		NextDue:       next,
		WithinRange:   withinRange,
		DaysRemaining: remaining,
	}
}

// =============================================================================
// STREAKS
// =============================================================================

// Streaks summarizes logging consistency across all protocols.
type Streaks struct {
	Current         int
	Longest         int
	TotalInjections int
}

// currentStreakWindow bounds how many recent distinct days the current
// streak inspects.
const currentStreakWindow = 10

// streakGapDays is the maximum gap between consecutive logging days
// within one run.
const streakGapDays = 7

// ComputeStreaks walks the distinct day keys of all non-trashed
// injections, newest first.
func ComputeStreaks(injections []Injection, today time.Time) Streaks {
	var streaks Streaks
	seen := make(map[int64]struct{})
	for _, inj := range injections {
		if inj.IsTrashed {
			continue
		}
		streaks.TotalInjections++
		seen[DayKey(inj.Date)] = struct{}{}
	}
	if len(seen) == 0 {
		return streaks
	}

	keys := make([]int64, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })

	// Longest: largest run with pairwise gaps of at most 7 days.
	run := 1
	streaks.Longest = 1
	for i := 0; i+1 < len(keys); i++ {
		gap := DaysBetween(DayFromKey(keys[i+1]), DayFromKey(keys[i]))
		if gap <= streakGapDays {
			run++
			if run > streaks.Longest {
				streaks.Longest = run
			}
		} else {
			run = 1
		}
	}

	// Current: only the most recent days count, and each claimed week
	// widens the tolerated distance from today.
	recent := keys
	if len(recent) > currentStreakWindow {
		recent = recent[:currentStreakWindow]
	}
	todayDay := StartOfDay(today)
	for _, key := range recent {
		gap := DaysBetween(DayFromKey(key), todayDay)
		if gap <= streakGapDays*(streaks.Current+1) {
			streaks.Current++
		} else {
			break
		}
	}
	if streaks.Current > streaks.Longest {
		streaks.Longest = streaks.Current
	}

	return streaks
}

// =============================================================================
// ADHERENCE
// =============================================================================

// Adherence is the logged/scheduled ratio, always reported alongside both
// raw counts, never as a bare percentage.
type Adherence struct {
	ScheduledDays int
	LoggedDays    int
	Ratio         float64
}

// ComputeAdherence derives the ratio from month statistics. Defined as 0
// when no days were scheduled.
func ComputeAdherence(stats MonthStats) Adherence {
	adherence := Adherence{
		ScheduledDays: stats.ScheduledDays,
		LoggedDays:    stats.LoggedDays,
	}
	if stats.ScheduledDays > 0 {
		adherence.Ratio = float64(stats.LoggedDays) / float64(stats.ScheduledDays)
	}
	return adherence
}
