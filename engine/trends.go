/*
trends.go - Fixed-length trend series

PURPOSE:
  Pure re-bucketing of the injection set by day, week, and month into the
  fixed-length series the presentation layer charts: a 30-day daily mg
  series, a 4-week Sunday-aligned weekly series, a 6-month calendar-month
  series, and a 42-day per-day heatmap. All series end at (or include)
  today and order most recent last.
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Series lengths.
const (
	DailyTrendDays     = 30
	WeeklyTrendWeeks   = 4
	MonthlyTrendMonths = 6
	HeatmapDays        = 42
)

// TrendPoint is one bucket of a mg-total series. Date is the bucket's
// first day (the day itself, the week's Sunday, or the month's first).
type TrendPoint struct {
	Date    time.Time
	TotalMg decimal.Decimal
}

// HeatmapCell is one day of the heatmap series.
type HeatmapCell struct {
	Date    time.Time
	Count   int
	TotalMg decimal.Decimal
}

// mgByDay buckets non-trashed injections into per-day totals and counts.
func mgByDay(injections []Injection) (map[int64]decimal.Decimal, map[int64]int) {
	totals := make(map[int64]decimal.Decimal)
	counts := make(map[int64]int)
	for _, inj := range injections {
		if inj.IsTrashed {
			continue
		}
		key := DayKey(inj.Date)
		totals[key] = totals[key].Add(inj.EffectiveDoseMg())
		counts[key]++
	}
	return totals, counts
}

// DailyTotals returns the 30-day daily total-mg series ending today.
func DailyTotals(injections []Injection, today time.Time) []TrendPoint {
	totals, _ := mgByDay(injections)
	end := StartOfDay(today)

	points := make([]TrendPoint, DailyTrendDays)
	for i := range points {
		date := AddDays(end, i-(DailyTrendDays-1))
		points[i] = TrendPoint{Date: date, TotalMg: totals[DayKey(date)]}
	}
	return points
}

// WeeklyTotals returns the 4-week series of Sunday-aligned weekly mg sums,
// most recent week last.
func WeeklyTotals(injections []Injection, today time.Time) []TrendPoint {
	totals, _ := mgByDay(injections)
	thisWeek := StartOfWeek(today)

	points := make([]TrendPoint, WeeklyTrendWeeks)
	for i := range points {
		weekStart := AddDays(thisWeek, -7*(WeeklyTrendWeeks-1-i))
		sum := decimal.Zero
		for offset := 0; offset < 7; offset++ {
			sum = sum.Add(totals[DayKey(AddDays(weekStart, offset))])
		}
		points[i] = TrendPoint{Date: weekStart, TotalMg: sum}
	}
	return points
}

// MonthlyTotals returns the 6-month series of calendar-month mg sums,
// most recent month last.
func MonthlyTotals(injections []Injection, today time.Time) []TrendPoint {
	// Anchor on the month's first day before stepping. AddDate normalizes
	// overflowed days (May 31 minus 3 months would land in March), which
	// would duplicate some months and drop others.
	base := StartOfMonth(today)

	points := make([]TrendPoint, MonthlyTrendMonths)
	for i := range points {
		points[i] = TrendPoint{Date: base.AddDate(0, i-(MonthlyTrendMonths-1), 0), TotalMg: decimal.Zero}
	}

	for _, inj := range injections {
		if inj.IsTrashed {
			continue
		}
		monthStart := StartOfMonth(inj.Date)
		for i := range points {
			if points[i].Date.Equal(monthStart) {
				points[i].TotalMg = points[i].TotalMg.Add(inj.EffectiveDoseMg())
				break
			}
		}
	}
	return points
}

// Heatmap returns the 42-day per-day {count, totalMg} series ending today.
func Heatmap(injections []Injection, today time.Time) []HeatmapCell {
	totals, counts := mgByDay(injections)
	end := StartOfDay(today)

	cells := make([]HeatmapCell, HeatmapDays)
	for i := range cells {
		date := AddDays(end, i-(HeatmapDays-1))
		key := DayKey(date)
		cells[i] = HeatmapCell{Date: date, Count: counts[key], TotalMg: totals[key]}
	}
	return cells
}
