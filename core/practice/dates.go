package practice

import (
	"time"

	"github.com/trezcool/riyaaz/core"
)

// calendarDay reduces t to its calendar day in its own location, as midnight UTC.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Day returns the calendar day of the instant t in loc, as midnight UTC.
// Practice dates are stored in that form.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return calendarDay(t.In(loc))
}

// ParseDay parses a YYYY-MM-DD date into its calendar day.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(core.DateLayout, s)
}

// daysBetween returns the number of calendar days from a to b; both must be calendar days.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
