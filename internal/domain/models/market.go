package models

import "time"

// Candle is one OHLCV bucket.
type Candle struct {
	Bucket time.Time `json:"bucket"`
	Symbol string    `json:"symbol"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceTick is a single trade print from the live stream.
type PriceTick struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"t"` // unix seconds
}

// MarketSnapshot is the immutable market view one cycle works on.
// Candles are ordered oldest first.
type MarketSnapshot struct {
	Symbol       string    `json:"symbol"`
	Candles      []Candle  `json:"candles"`
	CurrentPrice float64   `json:"current_price"`
	VolumeRatio  float64   `json:"volume_ratio"`
	AsOf         time.Time `json:"as_of"`
}

// Closes returns the close series.
func (s *MarketSnapshot) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Volumes returns the volume series.
func (s *MarketSnapshot) Volumes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Volume
	}
	return out
}

// LastVolume is the volume of the newest candle, 0 when empty.
func (s *MarketSnapshot) LastVolume() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Volume
}

// External factor names.
const (
	FactorVolatilityIndex   = "volatility_index"
	FactorNewsSentiment     = "news_sentiment"
	FactorMarketSentiment   = "market_sentiment"
	FactorInterestRate      = "interest_rate"
	FactorEconomicIndicator = "economic_indicator"
	FactorMarketHours       = "market_hours"
	FactorWeekend           = "weekend"
)

// ExternalFactors maps factor names to scalar readings. Absent keys mean
// the reading was not available this cycle.
type ExternalFactors map[string]float64

// Get returns the named factor or def when absent.
func (f ExternalFactors) Get(name string, def float64) float64 {
	if v, ok := f[name]; ok {
		return v
	}
	return def
}

// Has reports whether the factor is present.
func (f ExternalFactors) Has(name string) bool {
	_, ok := f[name]
	return ok
}
