package models

import (
	"errors"
	"fmt"
)

var (
	ErrDataUnavailable     = errors.New("market data unavailable")
	ErrInsufficientHistory = errors.New("insufficient price history")
	ErrModelUntrained      = errors.New("model untrained")
	ErrPriceUnavailable    = errors.New("price unavailable")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrNoPosition          = errors.New("no position to sell")
	ErrInsufficientShares  = errors.New("insufficient shares to sell")
	ErrRiskLimitExceeded   = errors.New("daily loss limit reached")
	ErrPersistence         = errors.New("persistence failure")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrAlreadyRunning      = errors.New("trading session already running")
	ErrUnknownTrade        = errors.New("unknown trade")
)

// Rejection is a typed refusal of a trade attempt. It unwraps to its reason.
type Rejection struct {
	Reason   error
	Symbol   string
	Side     Side
	Quantity int
	Price    float64
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("trade rejected: %s %d %s: %v", r.Side, r.Quantity, r.Symbol, r.Reason)
}

func (r *Rejection) Unwrap() error { return r.Reason }

// ErrorKind returns a short stable label for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, ErrModelUntrained):
		return "model_untrained"
	case errors.Is(err, ErrPriceUnavailable):
		return "price_unavailable"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrNoPosition):
		return "no_position"
	case errors.Is(err, ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, ErrRiskLimitExceeded):
		return "risk_limit_exceeded"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrInvalidOrder):
		return "invalid_order"
	case errors.Is(err, ErrUnknownTrade):
		return "unknown_trade"
	default:
		return "internal"
	}
}
