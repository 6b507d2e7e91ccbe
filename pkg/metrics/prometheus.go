package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	ticks          *prometheus.CounterVec
	tickDuration   prometheus.Histogram
	trades         *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	lastPrice      *prometheus.GaugeVec
	riskScore      *prometheus.GaugeVec
	portfolioValue prometheus.Gauge
	cash           prometheus.Gauge
	modelAccuracy  prometheus.Gauge
	retrains       prometheus.Counter
}

// New registers the trading metrics on reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		ticks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "autotrade_ticks_total",
			Help: "Scheduler ticks by result (traded, no_trade, degraded)",
		}, []string{"result"}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "autotrade_tick_duration_seconds",
			Help:    "Wall time of one decision cycle, sleep excluded",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		trades: f.NewCounterVec(prometheus.CounterOpts{
			Name: "autotrade_trades_total",
			Help: "Executed simulated trades",
		}, []string{"symbol", "side"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "autotrade_trade_rejections_total",
			Help: "Ledger rejections by reason",
		}, []string{"reason"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "autotrade_errors_total",
			Help: "Total number of errors encountered",
		}, []string{"kind"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "autotrade_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		lastPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autotrade_last_price",
			Help: "Last recorded price for a symbol",
		}, []string{"symbol"}),
		riskScore: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autotrade_risk_score",
			Help: "Latest risk score per symbol",
		}, []string{"symbol"}),
		portfolioValue: f.NewGauge(prometheus.GaugeOpts{
			Name: "autotrade_portfolio_value",
			Help: "Marked-to-market portfolio value",
		}),
		cash: f.NewGauge(prometheus.GaugeOpts{
			Name: "autotrade_portfolio_cash",
			Help: "Available cash",
		}),
		modelAccuracy: f.NewGauge(prometheus.GaugeOpts{
			Name: "autotrade_model_accuracy",
			Help: "Held-out accuracy of the latest retrain",
		}),
		retrains: f.NewCounter(prometheus.CounterOpts{
			Name: "autotrade_model_retrains_total",
			Help: "Completed classifier retrains",
		}),
	}
}

func (r *Recorder) RecordTick(result string, d time.Duration) {
	r.ticks.WithLabelValues(result).Inc()
	r.tickDuration.Observe(d.Seconds())
}

func (r *Recorder) RecordTrade(symbol, side string) {
	r.trades.WithLabelValues(symbol, side).Inc()
}

func (r *Recorder) RecordRejection(reason string) {
	r.rejections.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordRiskScore(symbol string, score float64) {
	r.riskScore.WithLabelValues(symbol).Set(score)
}

func (r *Recorder) RecordPortfolio(value, cash float64) {
	r.portfolioValue.Set(value)
	r.cash.Set(cash)
}

func (r *Recorder) RecordRetrain(accuracy float64) {
	r.retrains.Inc()
	r.modelAccuracy.Set(accuracy)
}
