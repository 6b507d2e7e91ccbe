package repository

import (
	"testing"
	"time"
)

func TestParseTimeframe(t *testing.T) {
	cases := []struct {
		in      string
		want    Timeframe
		width   time.Duration
		wantErr bool
	}{
		{"", TF1m, time.Minute, false},
		{"1s", TF1s, time.Second, false},
		{"1m", TF1m, time.Minute, false},
		{"5m", TF5m, 5 * time.Minute, false},
		{"1d", "", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseTimeframe(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeframe(%q) = %s, want error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseTimeframe(%q) = %s, %v, want %s", tc.in, got, err, tc.want)
			continue
		}
		if got.Width() != tc.width {
			t.Errorf("%s.Width() = %v, want %v", got, got.Width(), tc.width)
		}
	}
}
