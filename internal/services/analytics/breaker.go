package analytics

import (
	"errors"
	"time"

	svcmetrics "AutoTrade/internal/service/metrics"

	"github.com/sony/gobreaker"
)

// ErrServiceUnavailable is returned while the breaker is open.
var ErrServiceUnavailable = errors.New("service unavailable: circuit breaker is open")

type BreakerSettings struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// Breaker wraps gobreaker and mirrors its state into a gauge.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewBreaker(st BreakerSettings) *Breaker {
	ratio := st.FailureRatio
	if ratio <= 0 {
		ratio = 0.5
	}
	minReq := st.MinRequests
	if minReq == 0 {
		minReq = 5
	}
	svcmetrics.BreakerState.WithLabelValues(st.Name).Set(float64(gobreaker.StateClosed))
	return &Breaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        st.Name,
		MaxRequests: st.MaxRequests,
		Interval:    st.Interval,
		Timeout:     st.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= minReq && float64(c.TotalFailures)/float64(c.Requests) >= ratio
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			svcmetrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})}
}

// Do runs fn under the breaker.
func (b *Breaker) Do(fn func() error) error {
	if b == nil || b.cb == nil {
		return fn()
	}
	_, err := b.cb.Execute(func() (interface{}, error) { return nil, fn() })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrServiceUnavailable
	}
	return err
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	if b == nil || b.cb == nil {
		return gobreaker.StateClosed
	}
	return b.cb.State()
}
