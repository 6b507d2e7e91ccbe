package risk

import (
	"math"
	"testing"
	"time"

	"AutoTrade/internal/domain/models"
)

// Wednesday inside market hours.
var midSession = time.Date(2024, 3, 6, 11, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func flatSnapshot(price float64, n int) *models.MarketSnapshot {
	s := &models.MarketSnapshot{Symbol: "AAPL", CurrentPrice: price}
	for i := 0; i < n; i++ {
		s.Candles = append(s.Candles, models.Candle{Close: price, Volume: 1000})
	}
	return s
}

func volatileSnapshot(price float64, n int) *models.MarketSnapshot {
	s := flatSnapshot(price, n)
	for i := range s.Candles {
		if i%2 == 0 {
			s.Candles[i].Close = price / 2
		} else {
			s.Candles[i].Close = price * 1.5
		}
	}
	return s
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScoreWeighting(t *testing.T) {
	plain := NewAssessor(DefaultConfig())
	if got := plain.Score([]float64{0.5, 0.1}); !approx(got, 0.18) {
		t.Fatalf("Score = %v, want 0.18", got)
	}
	cfg := DefaultConfig()
	cfg.Renormalize = true
	if got := NewAssessor(cfg).Score([]float64{0.5, 0.1}); !approx(got, 0.3) {
		t.Fatalf("renormalized Score = %v, want 0.3", got)
	}
	if got := plain.Score([]float64{1, 1, 1, 1, 1}); got != 1 {
		t.Fatalf("Score all ones = %v", got)
	}
}

func TestFactorsPresence(t *testing.T) {
	a := NewAssessor(DefaultConfig(), fixedClock(midSession))
	sig := models.Signal{Confidence: 0.8}

	got := a.Factors(nil, nil, sig)
	if len(got) != 2 || !approx(got[0], 0.2) || got[1] != 0.1 {
		t.Fatalf("factors without data = %v", got)
	}

	got = a.Factors(flatSnapshot(100, 25), models.ExternalFactors{models.FactorMarketSentiment: -1}, sig)
	want := []float64{0, 0.2, 1, 0, 0.1}
	if len(got) != len(want) {
		t.Fatalf("factors = %v, want %v", got, want)
	}
	for i := range want {
		if !approx(got[i], want[i]) {
			t.Fatalf("factor %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestVolumeFactorSource(t *testing.T) {
	a := NewAssessor(DefaultConfig(), fixedClock(midSession))
	sig := models.Signal{Confidence: 1}
	cases := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{"snapshot ratio used", 0.25, 0.75},
		{"snapshot ratio above one", 1.5, 0},
		{"zero falls back to candles", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := flatSnapshot(100, 25)
			s.VolumeRatio = tc.ratio
			got := a.Factors(s, nil, sig)
			// volatility, confidence, volume, time
			if len(got) != 4 || !approx(got[2], tc.want) {
				t.Fatalf("factors = %v, want volume factor %v", got, tc.want)
			}
		})
	}
}

func TestTimeRisk(t *testing.T) {
	a := NewAssessor(DefaultConfig())
	cases := []struct {
		at   time.Time
		want float64
	}{
		{time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC), 0.5},
		{time.Date(2024, 3, 6, 8, 59, 0, 0, time.UTC), 0.3},
		{time.Date(2024, 3, 6, 17, 0, 0, 0, time.UTC), 0.3},
		{time.Date(2024, 3, 6, 16, 30, 0, 0, time.UTC), 0.1},
		{time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC), 0.1},
	}
	for _, c := range cases {
		if got := a.timeRisk(c.at); got != c.want {
			t.Errorf("timeRisk(%v) = %v, want %v", c.at, got, c.want)
		}
	}
}

func TestAssessLowRiskSizesPosition(t *testing.T) {
	a := NewAssessor(DefaultConfig(), fixedClock(midSession))
	out := a.Assess(flatSnapshot(100, 25), nil, models.Signal{Confidence: 0.9})
	if out.Level != models.RiskLow {
		t.Fatalf("level = %s (score %v)", out.Level, out.Score)
	}
	if out.RecommendedQuantity != 100 {
		t.Fatalf("quantity = %d, want 100", out.RecommendedQuantity)
	}
	if !approx(out.StopLoss, 95) || !approx(out.TakeProfit, 110) || !approx(out.MaxLoss, 500) {
		t.Fatalf("levels = %+v", out)
	}
	if a.CurrentLevel() != models.RiskLow {
		t.Fatalf("current level = %s", a.CurrentLevel())
	}
}

func TestAssessHighRiskZeroQuantity(t *testing.T) {
	a := NewAssessor(DefaultConfig(), fixedClock(time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)))
	out := a.Assess(volatileSnapshot(100, 25), models.ExternalFactors{models.FactorMarketSentiment: -1}, models.Signal{Confidence: 0})
	if out.Level != models.RiskHigh || out.RecommendedQuantity != 0 {
		t.Fatalf("assessment = %+v", out)
	}
	if len(out.Warnings) != 1 || out.Warnings[0] != WarnRiskTooHigh {
		t.Fatalf("warnings = %v", out.Warnings)
	}
	if a.CurrentLevel() != models.RiskHigh {
		t.Fatalf("current level = %s", a.CurrentLevel())
	}
}

func TestDailyLossOverride(t *testing.T) {
	a := NewAssessor(DefaultConfig(), fixedClock(midSession))
	a.RecordPnL(-5000)
	if a.DailyLossBreached() {
		t.Fatalf("exactly at the limit is not a breach")
	}
	a.RecordPnL(-0.01)
	out := a.Assess(flatSnapshot(100, 25), nil, models.Signal{Confidence: 0.95})
	if out.Score >= models.RiskLowBelow {
		t.Fatalf("score %v should be LOW on its own", out.Score)
	}
	if out.Level != models.RiskHigh || out.RecommendedQuantity != 0 {
		t.Fatalf("assessment = %+v", out)
	}
	if out.Warnings[len(out.Warnings)-1] != WarnDailyLossHit {
		t.Fatalf("warnings = %v", out.Warnings)
	}

	a.ResetDaily()
	if out := a.Assess(flatSnapshot(100, 25), nil, models.Signal{Confidence: 0.95}); out.Level != models.RiskLow {
		t.Fatalf("after reset level = %s", out.Level)
	}
}

func TestSetLimits(t *testing.T) {
	a := NewAssessor(DefaultConfig())
	l := a.Limits()
	l.MaxDailyLoss = 1.5
	if err := a.SetLimits(l); err == nil {
		t.Fatalf("expected validation error")
	}
	l.MaxDailyLoss = 0.02
	if err := a.SetLimits(l); err != nil {
		t.Fatalf("SetLimits: %v", err)
	}
	if st := a.State(); st.MaxDailyLoss != 0.02 || st.PortfolioValue != 100000 {
		t.Fatalf("state = %+v", st)
	}
}

func TestCheckPortfolioRisk(t *testing.T) {
	a := NewAssessor(DefaultConfig())
	if ok, _ := a.CheckPortfolioRisk(2000); !ok {
		t.Fatalf("2%% of portfolio should be allowed")
	}
	ok, msg := a.CheckPortfolioRisk(2001)
	if ok || msg != "Trade would exceed 2% portfolio risk limit" {
		t.Fatalf("CheckPortfolioRisk = %v %q", ok, msg)
	}
}

func TestValueAtRisk(t *testing.T) {
	if v := ValueAtRisk(nil, 0.95); v != 0 {
		t.Fatalf("empty VaR = %v", v)
	}
	if v := ValueAtRisk([]float64{3000, 1000, 2000}, 0.95); !approx(v, 22) {
		t.Fatalf("VaR = %v, want 22", v)
	}
}
