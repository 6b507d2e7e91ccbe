package classifier

import "AutoTrade/internal/domain/models"

// Vote thresholds of the side heuristic.
const (
	rsiOversold   = 30
	rsiOverbought = 70
	bandLow       = 0.2
	bandHigh      = 0.8
)

// SelectSide runs the four-vote side heuristic. MACD always votes: above its
// signal line for BUY, otherwise SELL. Equal vote counts give HOLD.
func SelectSide(fv models.FeatureVector) models.Side {
	get := func(name string, def float64) float64 {
		if v, ok := fv.Get(name); ok {
			return v
		}
		return def
	}

	var buy, sell int

	switch rsi := get("rsi", 50); {
	case rsi < rsiOversold:
		buy++
	case rsi > rsiOverbought:
		sell++
	}

	if get("macd", 0) > get("macd_signal", 0) {
		buy++
	} else {
		sell++
	}

	switch pos := get("bb_position", 0.5); {
	case pos < bandLow:
		buy++
	case pos > bandHigh:
		sell++
	}

	t20, t50 := get("trend_20", 0), get("trend_50", 0)
	switch {
	case t20 == 1 && t50 == 1:
		buy++
	case t20 == 0 && t50 == 0:
		sell++
	}

	switch {
	case buy > sell:
		return models.SideBuy
	case sell > buy:
		return models.SideSell
	default:
		return models.SideHold
	}
}
