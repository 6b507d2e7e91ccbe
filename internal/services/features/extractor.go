package features

import (
	"fmt"
	"math"
	"time"

	"AutoTrade/internal/domain/models"
	"AutoTrade/pkg/util"
)

// MinHistory is the fewest candles the extractor accepts at all.
const MinHistory = 20

// Feature names in classifier input order. Changing this order invalidates trained models.
var Names = []string{
	"price",
	"price_change",
	"price_volatility",
	"volume",
	"volume_ratio",
	"rsi",
	"macd",
	"macd_signal",
	"bb_upper",
	"bb_lower",
	"bb_position",
	"sma_20",
	"sma_50",
	"ema_12",
	"ema_26",
	"trend_20",
	"trend_50",
	"ema_cross",
	models.FactorNewsSentiment,
	models.FactorMarketSentiment,
	models.FactorVolatilityIndex,
	models.FactorInterestRate,
	models.FactorEconomicIndicator,
	"hour",
	"day_of_week",
	"month",
}

// Neutral values used for absent external factors.
var neutralFactors = map[string]float64{
	models.FactorNewsSentiment:     0,
	models.FactorMarketSentiment:   0,
	models.FactorVolatilityIndex:   20,
	models.FactorInterestRate:      0,
	models.FactorEconomicIndicator: 0,
}

// Extractor is a pure transform from snapshot and factors to a FeatureVector.
type Extractor struct {
	now func() time.Time
}

func NewExtractor() *Extractor {
	return &Extractor{now: time.Now}
}

// NewExtractorWithClock uses now for calendar features when a snapshot carries no timestamp.
func NewExtractorWithClock(now func() time.Time) *Extractor {
	return &Extractor{now: now}
}

// Extract builds the full feature vector or fails with ErrInsufficientHistory.
func (e *Extractor) Extract(s *models.MarketSnapshot, factors models.ExternalFactors) (models.FeatureVector, error) {
	if s == nil {
		return nil, models.ErrDataUnavailable
	}
	if len(s.Candles) < MinHistory {
		return nil, fmt.Errorf("%w: have %d candles, need %d", models.ErrInsufficientHistory, len(s.Candles), MinHistory)
	}

	closes := s.Closes()
	volumes := s.Volumes()
	last := closes[len(closes)-1]
	prev := closes[len(closes)-2]

	var missing []string
	need := func(name string, v float64, ok bool) float64 {
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			missing = append(missing, name)
		}
		return v
	}

	priceChange := math.NaN()
	if prev != 0 {
		priceChange = (last - prev) / prev
	}
	vol, okVol := RollingStd(closes, 20)
	vr, okVR := VolumeRatio(volumes, 20)
	rsi, okRSI := RSI(closes, 14)
	macd, macdSig, okMACD := MACD(closes)
	bbU, bbL, okBB := Bollinger(closes, 20, 2)
	sma20, ok20 := SMA(closes, 20)
	sma50, ok50 := SMA(closes, 50)
	ema12, ok12 := EMA(closes, 12)
	ema26, ok26 := EMA(closes, 26)

	asOf := s.AsOf
	if asOf.IsZero() {
		asOf = e.now()
	}

	values := map[string]float64{
		"price":            last,
		"price_change":     need("price_change", priceChange, true),
		"price_volatility": need("price_volatility", vol, okVol),
		"volume":           volumes[len(volumes)-1],
		"volume_ratio":     need("volume_ratio", vr, okVR),
		"rsi":              need("rsi", rsi, okRSI),
		"macd":             need("macd", macd, okMACD),
		"macd_signal":      need("macd_signal", macdSig, okMACD),
		"bb_upper":         need("bb_upper", bbU, okBB),
		"bb_lower":         need("bb_lower", bbL, okBB),
		"sma_20":           need("sma_20", sma20, ok20),
		"sma_50":           need("sma_50", sma50, ok50),
		"ema_12":           need("ema_12", ema12, ok12),
		"ema_26":           need("ema_26", ema26, ok26),
		"hour":             float64(asOf.Hour()),
		"day_of_week":      float64(util.WeekdayIndex(asOf)),
		"month":            float64(asOf.Month()),
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: undefined %v", models.ErrInsufficientHistory, missing)
	}

	values["bb_position"] = BandPosition(last, bbU, bbL)
	values["trend_20"] = flag(last > sma20)
	values["trend_50"] = flag(last > sma50)
	values["ema_cross"] = flag(ema12 > ema26)
	for name, def := range neutralFactors {
		values[name] = factors.Get(name, def)
	}

	out := make(models.FeatureVector, len(Names))
	for i, name := range Names {
		out[i] = models.Feature{Name: name, Value: values[name]}
	}
	return out, nil
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
