package repository

import (
	"fmt"
	"time"
)

// IsValidTimeframe returns true if tf is a supported candle resolution.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1s, TF1m, TF5m:
		return true
	default:
		return false
	}
}

// ParseTimeframe validates a configured timeframe label. Empty means 1m.
func ParseTimeframe(s string) (Timeframe, error) {
	if s == "" {
		return TF1m, nil
	}
	tf := Timeframe(s)
	if !IsValidTimeframe(tf) {
		return "", fmt.Errorf("unsupported timeframe %q", s)
	}
	return tf, nil
}

// Width is the bucket width of tf.
func (tf Timeframe) Width() time.Duration {
	switch tf {
	case TF1s:
		return time.Second
	case TF5m:
		return 5 * time.Minute
	default:
		return time.Minute
	}
}
