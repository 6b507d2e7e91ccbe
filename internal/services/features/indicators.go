package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// tail returns the last n values, or nil when fewer exist.
func tail(x []float64, n int) []float64 {
	if n <= 0 || len(x) < n {
		return nil
	}
	return x[len(x)-n:]
}

// SMA is the simple mean of the last window values.
func SMA(x []float64, window int) (float64, bool) {
	w := tail(x, window)
	if w == nil {
		return math.NaN(), false
	}
	return stat.Mean(w, nil), true
}

// RollingStd is the sample (n-1) standard deviation of the last window values.
func RollingStd(x []float64, window int) (float64, bool) {
	w := tail(x, window)
	if w == nil || window < 2 {
		return math.NaN(), false
	}
	return stat.StdDev(w, nil), true
}

// EMASeries runs an exponential average with alpha 2/(span+1), seeded by the
// first value. Entries before span-1 are NaN.
func EMASeries(x []float64, span int) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 || span <= 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	avg := x[0]
	for i, v := range x {
		if i > 0 {
			avg = alpha*v + (1-alpha)*avg
		}
		if i < span-1 {
			out[i] = math.NaN()
		} else {
			out[i] = avg
		}
	}
	return out
}

// EMA is the last value of EMASeries.
func EMA(x []float64, span int) (float64, bool) {
	if len(x) < span {
		return math.NaN(), false
	}
	s := EMASeries(x, span)
	return s[len(s)-1], true
}

// RSI uses Wilder smoothing (alpha 1/window) of gains and losses.
// A series without losses reads 100.
func RSI(closes []float64, window int) (float64, bool) {
	if window <= 0 || len(closes) < window+1 {
		return math.NaN(), false
	}
	alpha := 1.0 / float64(window)
	var up, down float64
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := math.Max(d, 0), math.Max(-d, 0)
		if i == 1 {
			up, down = g, l
			continue
		}
		up = alpha*g + (1-alpha)*up
		down = alpha*l + (1-alpha)*down
	}
	if down == 0 {
		return 100, true
	}
	return 100 - 100/(1+up/down), true
}

// MACD returns the 12/26 MACD line and its 9-period signal line.
// The signal EMA starts at the first defined MACD value.
func MACD(closes []float64) (line, signal float64, ok bool) {
	const fast, slow, sig = 12, 26, 9
	if len(closes) < slow+sig-1 {
		return math.NaN(), math.NaN(), false
	}
	ef := EMASeries(closes, fast)
	es := EMASeries(closes, slow)
	macd := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		macd = append(macd, ef[i]-es[i])
	}
	sl := EMASeries(macd, sig)
	return macd[len(macd)-1], sl[len(sl)-1], true
}

// Bollinger returns SMA(window) +/- k population standard deviations.
func Bollinger(closes []float64, window int, k float64) (upper, lower float64, ok bool) {
	w := tail(closes, window)
	if w == nil {
		return math.NaN(), math.NaN(), false
	}
	mean, std := stat.PopMeanStdDev(w, nil)
	return mean + k*std, mean - k*std, true
}

// BandPosition places price between the bands on [0,1]. Collapsed bands read 0.5.
func BandPosition(price, upper, lower float64) float64 {
	width := upper - lower
	if width <= 0 {
		return 0.5
	}
	return math.Min(1, math.Max(0, (price-lower)/width))
}

// VolumeRatio is the last volume over the window mean; 0 when the mean is 0.
func VolumeRatio(volumes []float64, window int) (float64, bool) {
	w := tail(volumes, window)
	if w == nil {
		return math.NaN(), false
	}
	mean := floats.Sum(w) / float64(len(w))
	if mean == 0 {
		return 0, true
	}
	return w[len(w)-1] / mean, true
}
