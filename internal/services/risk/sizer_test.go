package risk

import (
	"testing"

	"AutoTrade/internal/domain/models"
)

func TestSizerQuantity(t *testing.T) {
	s := Sizer{MaxPositionSize: 0.1}
	cases := []struct {
		level models.RiskLevel
		value float64
		price float64
		want  int
	}{
		{models.RiskLow, 100000, 100, 100},
		{models.RiskMedium, 100000, 100, 50},
		{models.RiskHigh, 100000, 100, 0},
		{models.RiskLow, 100000, 333, 30},
		{models.RiskLow, 100000, 0, 0},
		{models.RiskLow, 100000, -5, 0},
		{models.RiskLow, 0, 100, 0},
		{models.RiskLow, 500, 100, 0},
	}
	for _, c := range cases {
		if got := s.Quantity(c.level, c.value, c.price); got != c.want {
			t.Errorf("Quantity(%s, %v, %v) = %d, want %d", c.level, c.value, c.price, got, c.want)
		}
	}
}
