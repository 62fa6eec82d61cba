package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/dose-engine/engine"
)

func TestDailyTotals_FixedLengthEndingToday(t *testing.T) {
	today := date(2024, time.April, 20)
	injections := []engine.Injection{
		loggedDose("a", "p1", today),
		loggedDose("b", "p1", engine.AddDays(today, -5)),
		loggedDose("c", "p1", engine.AddDays(today, -5)),
		loggedDose("old", "p1", engine.AddDays(today, -40)), // outside the window
	}

	points := engine.DailyTotals(injections, today)
	if len(points) != engine.DailyTrendDays {
		t.Fatalf("expected %d points, got %d", engine.DailyTrendDays, len(points))
	}
	if !points[len(points)-1].Date.Equal(today) {
		t.Errorf("expected the series to end today")
	}
	if !points[len(points)-1].TotalMg.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100 mg today, got %s", points[len(points)-1].TotalMg)
	}
	if !points[len(points)-6].TotalMg.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected 200 mg five days back, got %s", points[len(points)-6].TotalMg)
	}
}

func TestWeeklyTotals_SundayAlignedMostRecentLast(t *testing.T) {
	// GIVEN: Today is a Wednesday; one log this week, one three weeks back
	today := date(2024, time.April, 17)
	injections := []engine.Injection{
		loggedDose("now", "p1", engine.AddDays(today, -2)),
		loggedDose("past", "p1", engine.AddDays(today, -21)),
	}

	points := engine.WeeklyTotals(injections, today)
	if len(points) != engine.WeeklyTrendWeeks {
		t.Fatalf("expected %d weeks, got %d", engine.WeeklyTrendWeeks, len(points))
	}
	for i, p := range points {
		if p.Date.Weekday() != time.Sunday {
			t.Errorf("week %d starts on %s, expected Sunday", i, p.Date.Weekday())
		}
		if i > 0 && engine.DaysBetween(points[i-1].Date, p.Date) != 7 {
			t.Errorf("weeks %d and %d are not consecutive", i-1, i)
		}
	}
	if !points[3].TotalMg.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100 mg in the current week, got %s", points[3].TotalMg)
	}
	if !points[0].TotalMg.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100 mg three weeks back, got %s", points[0].TotalMg)
	}
}

func TestMonthlyTotals_SixCalendarMonths(t *testing.T) {
	today := date(2024, time.June, 15)
	injections := []engine.Injection{
		loggedDose("jun", "p1", date(2024, time.June, 3)),
		loggedDose("feb", "p1", date(2024, time.February, 27)),
		loggedDose("dec", "p1", date(2023, time.December, 31)), // before the window
	}

	points := engine.MonthlyTotals(injections, today)
	if len(points) != engine.MonthlyTrendMonths {
		t.Fatalf("expected %d months, got %d", engine.MonthlyTrendMonths, len(points))
	}
	if !points[0].Date.Equal(date(2024, time.January, 1)) || !points[5].Date.Equal(date(2024, time.June, 1)) {
		t.Errorf("unexpected month window %s..%s",
			engine.FormatDay(points[0].Date), engine.FormatDay(points[5].Date))
	}
	if !points[5].TotalMg.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100 mg in June, got %s", points[5].TotalMg)
	}
	if !points[1].TotalMg.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100 mg in February, got %s", points[1].TotalMg)
	}
	if !points[0].TotalMg.IsZero() {
		t.Errorf("expected December log outside the window, got %s in January", points[0].TotalMg)
	}
}

func TestMonthlyTotals_EndOfMonthToday(t *testing.T) {
	// GIVEN: Today is May 31; stepping whole months back from the 31st
	//        must not skid past short months
	// THEN: Six distinct months Dec..May, with the Feb and Apr logs counted

	today := date(2024, time.May, 31)
	injections := []engine.Injection{
		loggedDose("feb", "p1", date(2024, time.February, 10)),
		loggedDose("apr", "p1", date(2024, time.April, 30)),
	}

	points := engine.MonthlyTotals(injections, today)
	want := []time.Time{
		date(2023, time.December, 1),
		date(2024, time.January, 1),
		date(2024, time.February, 1),
		date(2024, time.March, 1),
		date(2024, time.April, 1),
		date(2024, time.May, 1),
	}
	for i, p := range points {
		if !p.Date.Equal(want[i]) {
			t.Errorf("month %d: expected %s, got %s", i, engine.FormatDay(want[i]), engine.FormatDay(p.Date))
		}
	}
	if !points[2].TotalMg.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100 mg in February, got %s", points[2].TotalMg)
	}
	if !points[4].TotalMg.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100 mg in April, got %s", points[4].TotalMg)
	}
}

func TestHeatmap_42DaysWithCounts(t *testing.T) {
	today := date(2024, time.April, 20)
	injections := []engine.Injection{
		loggedDose("a", "p1", today),
		loggedDose("b", "p1", today),
		loggedDose("trashed", "p1", today),
	}
	injections[2].IsTrashed = true

	cells := engine.Heatmap(injections, today)
	if len(cells) != engine.HeatmapDays {
		t.Fatalf("expected %d cells, got %d", engine.HeatmapDays, len(cells))
	}
	last := cells[len(cells)-1]
	if !last.Date.Equal(today) || last.Count != 2 {
		t.Errorf("expected 2 logs today, got %d on %s", last.Count, engine.FormatDay(last.Date))
	}
	if !last.TotalMg.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected 200 mg today, got %s", last.TotalMg)
	}
}
