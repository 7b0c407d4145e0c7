// Package calendar provides date arithmetic and business-day calendars used
// by the time-series and backtesting packages. Dates are time.Time values in
// UTC; daily data is truncated to midnight.
package calendar

import (
	"time"

	"github.com/sawpanic/folio/internal/errs"
)

// DateLayout is the on-the-wire date format.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errs.Newf(errs.InvalidInput, "invalid date %q: %v", s, err)
	}
	return t.UTC(), nil
}

// FormatDate renders d as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// Day truncates d to UTC midnight.
func Day(d time.Time) time.Time {
	y, m, dd := d.UTC().Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

// AddDays returns d shifted by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// AddMonths returns d shifted by n months, clamping the day-of-month to the
// target month's last valid day (Jan 31 + 1 month = Feb 28/29).
func AddMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	h, min, sec := d.Clock()
	first := time.Date(y, m, 1, h, min, sec, d.Nanosecond(), d.Location()).AddDate(0, n, 0)
	last := daysIn(first.Year(), first.Month())
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, h, min, sec, d.Nanosecond(), d.Location())
}

// AddYears returns d shifted by n years with end-of-month clamping
// (Feb 29 + 1 year = Feb 28).
func AddYears(d time.Time, n int) time.Time {
	return AddMonths(d, 12*n)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// IsWeekday reports whether d falls on Monday through Friday.
func IsWeekday(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// BusinessCalendar tracks holidays on top of a Sat/Sun weekend policy. The
// holiday set is owned by the instance; do not mutate a calendar shared
// across concurrent analyses.
type BusinessCalendar struct {
	holidays map[time.Time]struct{}
}

// NewBusinessCalendar creates an empty calendar (weekends only).
func NewBusinessCalendar() *BusinessCalendar {
	return &BusinessCalendar{holidays: make(map[time.Time]struct{})}
}

// AddHoliday marks d as a holiday.
func (c *BusinessCalendar) AddHoliday(d time.Time) {
	c.holidays[Day(d)] = struct{}{}
}

// RemoveHoliday unmarks d.
func (c *BusinessCalendar) RemoveHoliday(d time.Time) {
	delete(c.holidays, Day(d))
}

// IsHoliday reports whether d is in the holiday set.
func (c *BusinessCalendar) IsHoliday(d time.Time) bool {
	_, ok := c.holidays[Day(d)]
	return ok
}

// IsBusinessDay reports whether d is a weekday and not a holiday.
func (c *BusinessCalendar) IsBusinessDay(d time.Time) bool {
	return IsWeekday(d) && !c.IsHoliday(d)
}

// BusinessDaysBetween counts business days in (a, b], walking forward from a.
func (c *BusinessCalendar) BusinessDaysBetween(a, b time.Time) int {
	start, end := Day(a), Day(b)
	if end.Before(start) {
		return -c.BusinessDaysBetween(b, a)
	}
	count := 0
	for d := start.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.IsBusinessDay(d) {
			count++
		}
	}
	return count
}
