package engine

import "time"

// =============================================================================
// MONTH GRID - Fixed 6-week calendar layout
// =============================================================================

// GridCell is one day cell in a month grid.
type GridCell struct {
	Date time.Time
	// IsCurrentMonth is true iff the cell's month/year equals the grid's.
	IsCurrentMonth bool
}

// MonthGrid is a fixed 42-cell (6 full weeks, Sunday-first) layout for one
// month, including leading/trailing filler days from neighboring months.
// RangeStart/RangeEnd are the first and last cell's dates, the natural
// query range for aggregation.
type MonthGrid struct {
	Month      time.Time // first day of the displayed month
	Cells      []GridCell
	RangeStart time.Time
	RangeEnd   time.Time
}

// GridCellCount is the fixed number of cells in a month grid.
const GridCellCount = 42

// BuildMonthGrid produces the grid for the month containing the given
// date. Deterministic for a given month regardless of locale: the grid
// always begins on the Sunday on/before the 1st and spans exactly 42 days.
func BuildMonthGrid(month time.Time) MonthGrid {
	first := StartOfMonth(month)
	gridStart := AddDays(first, -int(first.Weekday()))

	cells := make([]GridCell, GridCellCount)
	for i := range cells {
		date := AddDays(gridStart, i)
		cells[i] = GridCell{
			Date:           date,
			IsCurrentMonth: date.Month() == first.Month() && date.Year() == first.Year(),
		}
	}

	return MonthGrid{
		Month:      first,
		Cells:      cells,
		RangeStart: gridStart,
		RangeEnd:   AddDays(gridStart, GridCellCount-1),
	}
}
