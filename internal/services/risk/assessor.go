package risk

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"AutoTrade/internal/domain/models"
	"AutoTrade/internal/services/features"
	"AutoTrade/pkg/util"
)

// Factor weights in evaluation order: volatility, confidence, sentiment, volume, time.
// Weights are taken by position among the factors actually present.
var weights = []float64{0.3, 0.3, 0.2, 0.1, 0.1}

const (
	WarnRiskTooHigh   = "Risk level too high for trading"
	WarnDailyLossHit  = "Daily loss limit reached"
	varDailyVol       = 0.02
	volatilityWindow  = 20
	volatilityScaling = 10
)

type Config struct {
	Limits          models.RiskLimits
	PortfolioValue  float64
	MarketOpenHour  int
	MarketCloseHour int
	// Renormalize divides the weighted sum by the weights of the factors present.
	Renormalize bool
}

func DefaultConfig() Config {
	return Config{
		Limits: models.RiskLimits{
			MaxPositionSize:  0.1,
			MaxDailyLoss:     0.05,
			MaxPortfolioRisk: 0.02,
			StopLossPct:      0.05,
			TakeProfitPct:    0.1,
		},
		PortfolioValue:  100000,
		MarketOpenHour:  9,
		MarketCloseHour: 16,
	}
}

// Assessor scores cycle risk and tracks daily P&L. The scheduler worker is the
// only writer of the running state; limits may change from the control path.
type Assessor struct {
	mu             sync.RWMutex
	limits         models.RiskLimits
	portfolioValue float64
	dailyPnL       float64
	current        models.RiskLevel

	open, close int
	renormalize bool
	now         func() time.Time
}

type Option func(*Assessor)

func WithClock(now func() time.Time) Option {
	return func(a *Assessor) { a.now = now }
}

func NewAssessor(cfg Config, opts ...Option) *Assessor {
	a := &Assessor{
		limits:         cfg.Limits,
		portfolioValue: cfg.PortfolioValue,
		current:        models.RiskLow,
		open:           cfg.MarketOpenHour,
		close:          cfg.MarketCloseHour,
		renormalize:    cfg.Renormalize,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Factors returns the risk factors present for this cycle, in weight order.
func (a *Assessor) Factors(s *models.MarketSnapshot, f models.ExternalFactors, sig models.Signal) []float64 {
	var out []float64

	if s != nil {
		closes := s.Closes()
		if std, ok := features.RollingStd(closes, volatilityWindow); ok && closes[len(closes)-1] > 0 {
			out = append(out, math.Min(std/closes[len(closes)-1]*volatilityScaling, 1))
		}
	}

	out = append(out, 1-sig.Confidence)

	if f.Has(models.FactorMarketSentiment) {
		out = append(out, clamp01((1-f[models.FactorMarketSentiment])/2))
	}

	if s != nil {
		if ratio, ok := volumeRatio(s); ok {
			out = append(out, math.Max(0, 1-ratio))
		}
	}

	out = append(out, a.timeRisk(a.now()))
	return out
}

// volumeRatio prefers the ratio already carried on the snapshot and derives
// it from the candles only when the snapshot has none.
func volumeRatio(s *models.MarketSnapshot) (float64, bool) {
	if s.VolumeRatio > 0 {
		return s.VolumeRatio, true
	}
	return features.VolumeRatio(s.Volumes(), volatilityWindow)
}

func (a *Assessor) timeRisk(t time.Time) float64 {
	switch {
	case util.IsWeekend(t):
		return 0.5
	case util.OutsideHours(t, a.open, a.close):
		return 0.3
	default:
		return 0.1
	}
}

// Score combines factors with the positional weights, capped at 1.
func (a *Assessor) Score(factors []float64) float64 {
	var sum, wsum float64
	for i, v := range factors {
		if i >= len(weights) {
			break
		}
		sum += v * weights[i]
		wsum += weights[i]
	}
	if a.renormalize && wsum > 0 {
		sum /= wsum
	}
	return math.Min(sum, 1)
}

// Assess produces the cycle's RiskAssessment and records the resulting level.
func (a *Assessor) Assess(s *models.MarketSnapshot, f models.ExternalFactors, sig models.Signal) models.RiskAssessment {
	score := a.Score(a.Factors(s, f, sig))

	a.mu.Lock()
	defer a.mu.Unlock()

	out := models.RiskAssessment{
		Level:    models.LevelForScore(score),
		Score:    score,
		Warnings: []string{},
	}

	if out.Level != models.RiskHigh {
		price := 0.0
		if s != nil {
			price = s.CurrentPrice
		}
		out.RecommendedQuantity = Sizer{MaxPositionSize: a.limits.MaxPositionSize}.Quantity(out.Level, a.portfolioValue, price)
		if price > 0 {
			out.StopLoss = price * (1 - a.limits.StopLossPct)
			out.TakeProfit = price * (1 + a.limits.TakeProfitPct)
			out.MaxLoss = float64(out.RecommendedQuantity) * price * a.limits.StopLossPct
		}
	} else {
		out.Warnings = append(out.Warnings, WarnRiskTooHigh)
	}

	if a.dailyLossBreachedLocked() {
		out.Level = models.RiskHigh
		out.RecommendedQuantity = 0
		out.Warnings = append(out.Warnings, WarnDailyLossHit)
	}

	a.current = out.Level
	return out
}

func (a *Assessor) dailyLossBreachedLocked() bool {
	return a.dailyPnL < -(a.portfolioValue * a.limits.MaxDailyLoss)
}

// DailyLossBreached reports whether the daily loss limit is currently hit.
func (a *Assessor) DailyLossBreached() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dailyLossBreachedLocked()
}

func (a *Assessor) CurrentLevel() models.RiskLevel {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

func (a *Assessor) RecordPnL(pnl float64) {
	a.mu.Lock()
	a.dailyPnL += pnl
	a.mu.Unlock()
}

// ResetDaily clears the cumulative daily P&L at the start of a trading day.
func (a *Assessor) ResetDaily() {
	a.mu.Lock()
	a.dailyPnL = 0
	a.mu.Unlock()
}

func (a *Assessor) SetPortfolioValue(v float64) {
	a.mu.Lock()
	a.portfolioValue = v
	a.mu.Unlock()
}

func (a *Assessor) Limits() models.RiskLimits {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.limits
}

// SetLimits replaces the tunable limits after validating them.
func (a *Assessor) SetLimits(l models.RiskLimits) error {
	switch {
	case l.MaxPositionSize <= 0 || l.MaxPositionSize > 1:
		return fmt.Errorf("max_position_size must be within (0,1], got %v", l.MaxPositionSize)
	case l.MaxDailyLoss <= 0 || l.MaxDailyLoss >= 1:
		return fmt.Errorf("max_daily_loss must be within (0,1), got %v", l.MaxDailyLoss)
	case l.MaxPortfolioRisk <= 0 || l.MaxPortfolioRisk > 1:
		return fmt.Errorf("max_portfolio_risk must be within (0,1], got %v", l.MaxPortfolioRisk)
	case l.StopLossPct <= 0 || l.StopLossPct >= 1:
		return fmt.Errorf("stop_loss_pct must be within (0,1), got %v", l.StopLossPct)
	case l.TakeProfitPct <= 0:
		return fmt.Errorf("take_profit_pct must be positive, got %v", l.TakeProfitPct)
	}
	a.mu.Lock()
	a.limits = l
	a.mu.Unlock()
	return nil
}

func (a *Assessor) State() models.RiskState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return models.RiskState{
		RiskLimits:       a.limits,
		CurrentRiskLevel: a.current,
		DailyPnL:         a.dailyPnL,
		PortfolioValue:   a.portfolioValue,
	}
}

// CheckPortfolioRisk reports whether a trade of tradeValue stays within the
// per-trade share of portfolio value.
func (a *Assessor) CheckPortfolioRisk(tradeValue float64) (bool, string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.portfolioValue <= 0 {
		return false, "Portfolio value unavailable"
	}
	if tradeValue/a.portfolioValue > a.limits.MaxPortfolioRisk {
		return false, fmt.Sprintf("Trade would exceed %g%% portfolio risk limit", a.limits.MaxPortfolioRisk*100)
	}
	return true, "Trade within risk limits"
}

// ValueAtRisk is a simplified VaR over position values assuming a flat 2% daily
// move, taken at the (1-confidence) percentile with linear interpolation.
func ValueAtRisk(positionValues []float64, confidence float64) float64 {
	if len(positionValues) == 0 {
		return 0
	}
	losses := make([]float64, len(positionValues))
	for i, v := range positionValues {
		losses[i] = v * varDailyVol
	}
	sort.Float64s(losses)
	pos := (1 - confidence) * float64(len(losses)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	v := losses[lo] + (losses[hi]-losses[lo])*(pos-float64(lo))
	return math.Abs(v)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
