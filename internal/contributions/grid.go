package contributions

import (
	"time"

	"github.com/thedailydev/dailydev-backend/internal/answers"
)

const (
	Weeks       = 52
	DaysPerWeek = 7
)

// Grid maps (week, weekday) coordinates of the contributions calendar to
// dates. When Year is Today's year the grid is a rolling window ending in the
// current week; otherwise it lays out the calendar year starting on the
// Sunday on or before January 1.
type Grid struct {
	Year  int
	Today time.Time
}

// NewGrid normalizes today to its calendar date.
func NewGrid(year int, today time.Time) Grid {
	return Grid{Year: year, Today: answers.DayKey(today)}
}

// Rolling reports whether the grid shows the trailing 52 weeks.
func (g Grid) Rolling() bool {
	return g.Year == g.Today.Year()
}

// DateFor returns the date at (week, weekday), with week in 0..51 and weekday
// in 0..6 (Sunday first). ok is false for future dates in rolling mode, for
// dates outside Year in fixed mode, and for out-of-range coordinates.
func (g Grid) DateFor(week, weekday int) (date time.Time, ok bool) {
	if week < 0 || week >= Weeks || weekday < 0 || weekday >= DaysPerWeek {
		return time.Time{}, false
	}
	today := answers.DayKey(g.Today)

	if g.Rolling() {
		sunday := today.AddDate(0, 0, -int(today.Weekday()))
		date = sunday.AddDate(0, 0, -7*(Weeks-1-week)+weekday)
		if date.After(today) {
			return time.Time{}, false
		}
		return date, true
	}

	jan1 := time.Date(g.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	start := jan1.AddDate(0, 0, -int(jan1.Weekday()))
	date = start.AddDate(0, 0, week*DaysPerWeek+weekday)
	if date.Year() != g.Year {
		return time.Time{}, false
	}
	return date, true
}

// MonthLabels returns, per week column, the abbreviation of the month whose
// first day falls in that column. A column carries at most one label.
func (g Grid) MonthLabels() map[int]string {
	labels := make(map[int]string)
	for week := 0; week < Weeks; week++ {
		for weekday := 0; weekday < DaysPerWeek; weekday++ {
			date, ok := g.DateFor(week, weekday)
			if !ok || date.Day() != 1 {
				continue
			}
			labels[week] = date.Month().String()[:3]
			break
		}
	}
	return labels
}

// Bounds returns the first and last dates the grid shows.
func (g Grid) Bounds() (first, last time.Time, ok bool) {
	for week := 0; week < Weeks; week++ {
		for weekday := 0; weekday < DaysPerWeek; weekday++ {
			date, valid := g.DateFor(week, weekday)
			if !valid {
				continue
			}
			if !ok || date.Before(first) {
				first = date
			}
			if !ok || date.After(last) {
				last = date
			}
			ok = true
		}
	}
	return first, last, ok
}
