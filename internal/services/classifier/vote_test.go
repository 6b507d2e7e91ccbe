package classifier

import (
	"testing"

	"AutoTrade/internal/domain/models"
)

func votes(rsi, macd, signal, bb, t20, t50 float64) models.FeatureVector {
	return models.FeatureVector{
		{Name: "rsi", Value: rsi},
		{Name: "macd", Value: macd},
		{Name: "macd_signal", Value: signal},
		{Name: "bb_position", Value: bb},
		{Name: "trend_20", Value: t20},
		{Name: "trend_50", Value: t50},
	}
}

func TestSelectSide(t *testing.T) {
	cases := []struct {
		name string
		fv   models.FeatureVector
		want models.Side
	}{
		{"rsi 25 macd above bb 0.1 both trends votes 4-0 buy", votes(25, 1, 0, 0.1, 1, 1), models.SideBuy},
		{"all sell", votes(75, -1, 0, 0.9, 0, 0), models.SideSell},
		{"rsi 50 macd below bb 0.5 split trends sells on the macd vote", votes(50, -1, 0, 0.5, 1, 0), models.SideSell},
		{"two against two", votes(25, -1, 0, 0.1, 0, 0), models.SideHold},
		{"one against one", votes(50, 1, 0, 0.9, 1, 0), models.SideHold},
		{"equal macd votes sell", votes(50, 0, 0, 0.5, 1, 0), models.SideSell},
	}
	for _, c := range cases {
		if got := SelectSide(c.fv); got != c.want {
			t.Errorf("SelectSide(%s) = %s, want %s", c.name, got, c.want)
		}
	}
}
