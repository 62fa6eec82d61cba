/*
aggregate.go - Schedule/log merging and day classification

PURPOSE:
  For a date range (typically a month grid's range), unions the schedule
  generator's output across every visible protocol and intersects it with
  logged events, producing per-day collections keyed by DayKey:
  which protocols are scheduled, which events were logged, and per-day
  totals (count, summed mg).

VISIBILITY:
  A protocol contributes only when it is non-trashed, shown by the
  user-visibility map (default visible), and - when the focus-active-only
  flag is set - active. Logged events contribute only when their weak
  protocol reference resolves to a visible protocol.

MONTH STATISTICS:
  ScheduledDays counts days within the queried month whose scheduled set
  is non-empty, restricted to days on/before today and, when a first-ever
  logged date is known, on/after that date. This anchors adherence
  accounting to when the user actually started tracking instead of
  penalizing pre-tracking history. LoggedDays has no such restriction.

SEE ALSO:
  - schedule.go: Per-protocol expansion
  - metrics.go: Consumes MonthStats for the adherence ratio
*/
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUTS
// =============================================================================

// VisibilityMap maps protocol ids to shown/hidden. Missing entries
// default to visible.
type VisibilityMap map[ProtocolID]bool

// AggregateInput is an immutable snapshot of everything the aggregator
// reads. Injections should already include any optimistic entries the
// caller wants reflected (see optimistic.go).
type AggregateInput struct {
	Protocols       []Protocol
	Visibility      VisibilityMap
	FocusActiveOnly bool
	Injections      []Injection
	RangeStart      time.Time
	RangeEnd        time.Time
}

func (in AggregateInput) isVisible(p Protocol) bool {
	if p.IsTrashed {
		return false
	}
	if in.FocusActiveOnly && !p.IsActive {
		return false
	}
	if shown, ok := in.Visibility[p.ID]; ok && !shown {
		return false
	}
	return true
}

// =============================================================================
// OUTPUTS
// =============================================================================

// DaySummary totals the logged events of one day.
type DaySummary struct {
	Count   int
	TotalMg decimal.Decimal
}

// Aggregate holds the per-day merge of schedules and logs, keyed by DayKey.
type Aggregate struct {
	RangeStart time.Time
	RangeEnd   time.Time

	// ScheduledByDay maps a day to the visible protocols scheduled on it.
	ScheduledByDay map[int64][]ProtocolID

	// LogsByDay maps a day to its logged events. Only events whose
	// protocol reference resolves to a visible protocol are included.
	LogsByDay map[int64][]Injection

	// SummaryByDay maps a day to its log count and summed mg.
	SummaryByDay map[int64]DaySummary
}

// BuildAggregate merges schedules and logs for the input range.
// Pure and idempotent: identical snapshots produce identical output.
func BuildAggregate(in AggregateInput) Aggregate {
	agg := Aggregate{
		RangeStart:     StartOfDay(in.RangeStart),
		RangeEnd:       StartOfDay(in.RangeEnd),
		ScheduledByDay: make(map[int64][]ProtocolID),
		LogsByDay:      make(map[int64][]Injection),
		SummaryByDay:   make(map[int64]DaySummary),
	}

	visible := make(map[ProtocolID]bool, len(in.Protocols))
	for _, p := range in.Protocols {
		if !in.isVisible(p) {
			continue
		}
		visible[p.ID] = true
		for _, date := range ScheduleForProtocol(p, agg.RangeStart, agg.RangeEnd) {
			key := DayKey(date)
			agg.ScheduledByDay[key] = append(agg.ScheduledByDay[key], p.ID)
		}
	}

	for _, inj := range in.Injections {
		if inj.IsTrashed {
			continue
		}
		// Weak reference: an unresolvable or hidden protocol silently
		// excludes the event from this view.
		if !visible[inj.ProtocolID] {
			continue
		}
		day := StartOfDay(inj.Date)
		if day.Before(agg.RangeStart) || day.After(agg.RangeEnd) {
			continue
		}
		key := DayKey(day)
		agg.LogsByDay[key] = append(agg.LogsByDay[key], inj)

		summary := agg.SummaryByDay[key]
		summary.Count++
		summary.TotalMg = summary.TotalMg.Add(inj.EffectiveDoseMg())
		agg.SummaryByDay[key] = summary
	}

	return agg
}

// =============================================================================
// MONTH STATISTICS - Adherence numerator and denominator
// =============================================================================

// MonthStats carries the raw counts behind the adherence ratio. The ratio
// is never reported without them.
type MonthStats struct {
	ScheduledDays int
	LoggedDays    int
}

// MonthStats counts scheduled and logged days within the month containing
// the given date. firstLogged, when known, floors the scheduled-day count
// so pre-tracking history is not counted as missed.
func (a Aggregate) MonthStats(month, today time.Time, firstLogged *time.Time) MonthStats {
	monthStart := StartOfMonth(month)
	monthEnd := AddDays(StartOfMonth(AddDays(monthStart, 32)), -1)
	todayDay := StartOfDay(today)

	var stats MonthStats
	for day := monthStart; !day.After(monthEnd); day = AddDays(day, 1) {
		key := DayKey(day)
		if len(a.ScheduledByDay[key]) > 0 &&
			!day.After(todayDay) &&
			(firstLogged == nil || !day.Before(StartOfDay(*firstLogged))) {
			stats.ScheduledDays++
		}
		if len(a.LogsByDay[key]) > 0 {
			stats.LoggedDays++
		}
	}
	return stats
}

// =============================================================================
// SELECTED-DAY VIEW - Status classification for one chosen day
// =============================================================================

// Day status labels, in classification priority order.
const (
	StatusLogged      = "Logged"
	StatusMissed      = "Missed"
	StatusScheduled   = "Scheduled"
	StatusNoInjection = "No injection"
)

// DayView is the selected-day state handed to the presentation layer.
type DayView struct {
	Date      time.Time
	Status    string
	Scheduled []ProtocolID
	Logs      []Injection
	Summary   DaySummary
}

// DayView classifies one day by priority:
//  1. "Logged" (or "N logs" for N > 1) when any event exists
//  2. "Missed" when scheduled, in the past, and the user has at least one
//     log anywhere - the guard keeps a never-used protocol's backlog from
//     being mislabeled as missed
//  3. "Scheduled" when scheduled but not past-due-without-history
//  4. "No injection" otherwise
func (a Aggregate) DayView(day, today time.Time, hasAnyLog bool) DayView {
	date := StartOfDay(day)
	key := DayKey(date)

	view := DayView{
		Date:      date,
		Scheduled: a.ScheduledByDay[key],
		Logs:      a.LogsByDay[key],
		Summary:   a.SummaryByDay[key],
	}

	scheduled := len(view.Scheduled) > 0
	switch {
	case view.Summary.Count == 1:
		view.Status = StatusLogged
	case view.Summary.Count > 1:
		view.Status = fmt.Sprintf("%d logs", view.Summary.Count)
	case scheduled && date.Before(StartOfDay(today)) && hasAnyLog:
		view.Status = StatusMissed
	case scheduled:
		view.Status = StatusScheduled
	default:
		view.Status = StatusNoInjection
	}
	return view
}
