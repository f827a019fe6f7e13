package practice

import (
	"sort"
	"time"
)

type Streaks struct {
	Current int `json:"current_streak"`
	Longest int `json:"longest_streak"`
}

// CalculateStreaks derives the current and longest streaks of consecutive practice days.
// Every date, today included, is reduced to its calendar day in its own location,
// so instants must be converted to the classroom location beforehand.
// The current streak is 0 unless the latest practice day is today or yesterday.
func CalculateStreaks(dates []time.Time, today time.Time) Streaks {
	if len(dates) == 0 {
		return Streaks{}
	}

	seen := make(map[time.Time]struct{}, len(dates))
	days := make([]time.Time, 0, len(dates))
	for _, date := range dates {
		day := calendarDay(date)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	var streaks Streaks
	if daysBetween(days[0], calendarDay(today)) <= 1 {
		streaks.Current = 1
		for i := 1; i < len(days) && daysBetween(days[i], days[i-1]) == 1; i++ {
			streaks.Current++
		}
	}

	run := 1
	streaks.Longest = 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i], days[i-1]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > streaks.Longest {
			streaks.Longest = run
		}
	}
	return streaks
}
