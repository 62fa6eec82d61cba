package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/dose-engine/engine"
)

// =============================================================================
// ACTIVE-PROTOCOL TIMING
// =============================================================================

func TestComputeTiming_NextDueFromLastLog(t *testing.T) {
	// GIVEN: Weekly protocol with the latest log on Jan 10
	// WHEN: Today is Jan 12
	// THEN: Next due is Jan 17, 5 days remaining

	p := weeklyProtocol("p1", date(2024, time.January, 1))
	injections := []engine.Injection{
		loggedDose("i1", "p1", date(2024, time.January, 3)),
		loggedDose("i2", "p1", date(2024, time.January, 10)),
		loggedDose("other", "p2", date(2024, time.January, 11)), // different protocol
	}

	timing := engine.ComputeTiming(p, injections, date(2024, time.January, 12))

	if timing.LastLog == nil || timing.LastLog.ID != "i2" {
		t.Fatalf("expected last log i2, got %+v", timing.LastLog)
	}
	if !engine.StartOfDay(timing.NextDue).Equal(date(2024, time.January, 17)) {
		t.Errorf("expected next due Jan 17, got %s", engine.FormatDay(timing.NextDue))
	}
	if timing.DaysRemaining != 5 {
		t.Errorf("expected 5 days remaining, got %d", timing.DaysRemaining)
	}
	if !timing.WithinRange {
		t.Error("expected open-ended protocol to be within range")
	}
}

func TestComputeTiming_NoLogsFallsBackToStartDate(t *testing.T) {
	p := weeklyProtocol("p1", date(2024, time.March, 5))

	timing := engine.ComputeTiming(p, nil, date(2024, time.March, 1))

	if timing.LastLog != nil {
		t.Fatalf("expected no last log, got %+v", timing.LastLog)
	}
	if !engine.StartOfDay(timing.NextDue).Equal(date(2024, time.March, 5)) {
		t.Errorf("expected next due at the start date, got %s", engine.FormatDay(timing.NextDue))
	}
	if timing.DaysRemaining != 4 {
		t.Errorf("expected 4 days remaining, got %d", timing.DaysRemaining)
	}
}

func TestComputeTiming_FractionalIntervalAndEndDate(t *testing.T) {
	// GIVEN: Interval 3.5 and an end date before the next occurrence
	p := weeklyProtocol("p1", date(2024, time.January, 1))
	p.IntervalDays = interval(3.5)
	end := date(2024, time.January, 12)
	p.EndDate = &end

	injections := []engine.Injection{loggedDose("i1", "p1", date(2024, time.January, 10))}
	timing := engine.ComputeTiming(p, injections, date(2024, time.January, 11))

	// Jan 10 + 3.5 days lands on calendar day Jan 13, past the end date.
	if !engine.StartOfDay(timing.NextDue).Equal(date(2024, time.January, 13)) {
		t.Errorf("expected next due Jan 13, got %s", engine.FormatDay(timing.NextDue))
	}
	if timing.WithinRange {
		t.Error("expected next due past the end date to be out of range")
	}
	if timing.DaysRemaining != 2 {
		t.Errorf("expected 2 days remaining, got %d", timing.DaysRemaining)
	}
}

func TestComputeTiming_OverdueClampsToZero(t *testing.T) {
	p := weeklyProtocol("p1", date(2024, time.January, 1))
	injections := []engine.Injection{loggedDose("i1", "p1", date(2024, time.January, 1))}

	timing := engine.ComputeTiming(p, injections, date(2024, time.February, 1))
	if timing.DaysRemaining != 0 {
		t.Errorf("expected overdue countdown clamped to 0, got %d", timing.DaysRemaining)
	}
}

// =============================================================================
// DOSE METRICS
// =============================================================================

func TestDoseMetrics(t *testing.T) {
	p := weeklyProtocol("p1", date(2024, time.January, 1))
	p.IntervalDays = interval(3.5)

	if !p.MgPerInjection().Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100 mg per injection, got %s", p.MgPerInjection())
	}
	if !p.MgPerWeek().Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected 200 mg per week, got %s", p.MgPerWeek())
	}

	p.IntervalDays = decimal.Zero
	if !p.MgPerWeek().IsZero() {
		t.Errorf("expected zero weekly dose for zero interval, got %s", p.MgPerWeek())
	}
}

// =============================================================================
// STREAKS
// =============================================================================

func TestComputeStreaks_EightConsecutiveWeeks(t *testing.T) {
	// GIVEN: Eight weekly logs with no gap over 7 days, the latest today
	// THEN: Current and longest streak are both 8

	today := date(2024, time.March, 1)
	var injections []engine.Injection
	for i := 0; i < 8; i++ {
		injections = append(injections, loggedDose(
			engine.FormatDay(engine.AddDays(today, -7*i)), "p1", engine.AddDays(today, -7*i)))
	}

	streaks := engine.ComputeStreaks(injections, today)
	if streaks.Current != 8 || streaks.Longest != 8 {
		t.Errorf("expected current=longest=8, got current=%d longest=%d", streaks.Current, streaks.Longest)
	}
	if streaks.TotalInjections != 8 {
		t.Errorf("expected 8 total injections, got %d", streaks.TotalInjections)
	}
}

func TestComputeStreaks_GapBreaksLongestRun(t *testing.T) {
	// GIVEN: Three weekly logs, a 20-day gap, then two weekly logs
	today := date(2024, time.June, 1)
	days := []time.Time{
		engine.AddDays(today, -60),
		engine.AddDays(today, -53),
		engine.AddDays(today, -46),
		engine.AddDays(today, -26), // 20-day gap
		engine.AddDays(today, -19),
	}
	var injections []engine.Injection
	for i, d := range days {
		injections = append(injections, loggedDose(engine.FormatDay(d)+string(rune('a'+i)), "p1", d))
	}

	streaks := engine.ComputeStreaks(injections, today)
	if streaks.Longest != 3 {
		t.Errorf("expected longest streak 3, got %d", streaks.Longest)
	}
	if streaks.Current > streaks.Longest {
		t.Errorf("current %d exceeds longest %d", streaks.Current, streaks.Longest)
	}
}

func TestComputeStreaks_WideningWindow(t *testing.T) {
	// GIVEN: Logs 6, 13, and 20 days ago
	// THEN: Each successive day fits its widened window (7, 14, 21),
	//       so the current streak is 3 - while a first gap over 7 days
	//       yields no current streak at all

	today := date(2024, time.June, 1)
	var injections []engine.Injection
	for _, back := range []int{6, 13, 20} {
		d := engine.AddDays(today, -back)
		injections = append(injections, loggedDose(engine.FormatDay(d), "p1", d))
	}

	streaks := engine.ComputeStreaks(injections, today)
	if streaks.Current != 3 {
		t.Errorf("expected widening-window streak 3, got %d", streaks.Current)
	}

	stale := []engine.Injection{loggedDose("old", "p1", engine.AddDays(today, -10))}
	if got := engine.ComputeStreaks(stale, today).Current; got != 0 {
		t.Errorf("expected no current streak for a 10-day-old only log, got %d", got)
	}
}

func TestComputeStreaks_DuplicateDaysCountOnce(t *testing.T) {
	today := date(2024, time.June, 1)
	injections := []engine.Injection{
		loggedDose("a", "p1", today),
		loggedDose("b", "p1", today),
	}

	streaks := engine.ComputeStreaks(injections, today)
	if streaks.Current != 1 || streaks.Longest != 1 {
		t.Errorf("expected 1/1 from duplicate-day logs, got %d/%d", streaks.Current, streaks.Longest)
	}
	if streaks.TotalInjections != 2 {
		t.Errorf("expected 2 total injections, got %d", streaks.TotalInjections)
	}
}

// =============================================================================
// ADHERENCE
// =============================================================================

func TestComputeAdherence(t *testing.T) {
	cases := []struct {
		name  string
		stats engine.MonthStats
		want  float64
	}{
		{"zero denominator", engine.MonthStats{ScheduledDays: 0, LoggedDays: 3}, 0},
		{"perfect", engine.MonthStats{ScheduledDays: 4, LoggedDays: 4}, 1},
		{"partial", engine.MonthStats{ScheduledDays: 4, LoggedDays: 3}, 0.75},
	}
	for _, tc := range cases {
		adherence := engine.ComputeAdherence(tc.stats)
		if adherence.Ratio != tc.want {
			t.Errorf("%s: expected ratio %v, got %v", tc.name, tc.want, adherence.Ratio)
		}
		if adherence.Ratio < 0 || adherence.Ratio > 1 {
			t.Errorf("%s: ratio %v outside [0,1]", tc.name, adherence.Ratio)
		}
		if adherence.ScheduledDays != tc.stats.ScheduledDays || adherence.LoggedDays != tc.stats.LoggedDays {
			t.Errorf("%s: raw counts not carried alongside the ratio", tc.name)
		}
	}
}
