package util

import (
	"testing"
	"time"
)

func TestMarketCalendar(t *testing.T) {
	sat := time.Date(2024, 10, 12, 12, 0, 0, 0, time.UTC)
	if !IsWeekend(sat) {
		t.Fatalf("saturday should be weekend")
	}
	if WeekdayIndex(sat) != 5 {
		t.Fatalf("saturday index = %d", WeekdayIndex(sat))
	}
	cases := []struct {
		hour int
		out  bool
	}{{8, true}, {9, false}, {16, false}, {17, true}}
	for _, c := range cases {
		ts := time.Date(2024, 10, 10, c.hour, 30, 0, 0, time.UTC)
		if got := OutsideHours(ts, 9, 16); got != c.out {
			t.Errorf("hour %d: outside=%v, want %v", c.hour, got, c.out)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(1.23456); got != 1.23 {
		t.Fatalf("Round2 = %v", got)
	}
	if got := ClampInt(500, 1, 200); got != 200 {
		t.Fatalf("ClampInt = %v", got)
	}
}
