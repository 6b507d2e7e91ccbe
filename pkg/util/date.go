package util

import "time"

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// OutsideHours reports whether t's hour is before open or after close.
// The close hour itself still counts as inside.
func OutsideHours(t time.Time, open, close int) bool {
	h := t.Hour()
	return h < open || h > close
}

// WeekdayIndex returns Monday=0 .. Sunday=6.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
