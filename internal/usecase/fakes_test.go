package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"AutoTrade/internal/domain/models"
)

type nopMetrics struct{}

func (nopMetrics) RecordTick(string, time.Duration) {}
func (nopMetrics) RecordTrade(string, string) {}
func (nopMetrics) RecordRejection(string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordRiskScore(string, float64) {}
func (nopMetrics) RecordPortfolio(float64, float64) {}
func (nopMetrics) RecordRetrain(float64) {}

type quotes map[string]float64

func (q quotes) LastPrice(symbol string) (float64, bool) {
	p, ok := q[symbol]
	return p, ok
}

func candles(n int, start float64) []models.Candle {
	out := make([]models.Candle, n)
	t0 := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	for i := range out {
		c := start + float64(i)
		out[i] = models.Candle{Bucket: t0.Add(time.Duration(i) * time.Minute), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	return out
}

type fakeMarket struct {
	mu        sync.Mutex
	snap      func(symbol string) (*models.MarketSnapshot, error)
	factorErr error
	asked     []string
}

func (m *fakeMarket) Snapshot(_ context.Context, symbol string) (*models.MarketSnapshot, error) {
	m.mu.Lock()
	m.asked = append(m.asked, symbol)
	m.mu.Unlock()
	if m.snap != nil {
		return m.snap(symbol)
	}
	return &models.MarketSnapshot{Symbol: symbol, Candles: candles(30, 90), CurrentPrice: 100}, nil
}

func (m *fakeMarket) ExternalFactors(context.Context, string) (models.ExternalFactors, error) {
	return models.ExternalFactors{models.FactorMarketSentiment: 0.2}, m.factorErr
}

func (m *fakeMarket) symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.asked...)
}

type fakeExtractor struct {
	panicWith string
	err       error
}

func (e fakeExtractor) Extract(*models.MarketSnapshot, models.ExternalFactors) (models.FeatureVector, error) {
	if e.panicWith != "" {
		panic(e.panicWith)
	}
	if e.err != nil {
		return nil, e.err
	}
	return models.FeatureVector{{Name: "price", Value: 100}, {Name: "rsi", Value: 25}}, nil
}

type fakeModel struct {
	mu       sync.Mutex
	signal   models.Signal
	updates  []string
	pending  map[string]bool
	resolved map[string]models.Outcome
}

func newFakeModel(sig models.Signal) *fakeModel {
	return &fakeModel{signal: sig, pending: map[string]bool{}, resolved: map[string]models.Outcome{}}
}

func (m *fakeModel) Analyze(fv models.FeatureVector, symbol string) models.Signal {
	s := m.signal
	s.Symbol = symbol
	s.Features = fv
	return s
}

func (m *fakeModel) Update(_ context.Context, _ models.FeatureVector, tradeID string, _ models.Outcome) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, tradeID)
	if tradeID != "" {
		m.pending[tradeID] = true
	}
	return "sample", nil
}

func (m *fakeModel) ResolveLabel(tradeID string, outcome models.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pending[tradeID] {
		return models.ErrUnknownTrade
	}
	delete(m.pending, tradeID)
	m.resolved[tradeID] = outcome
	return nil
}

func (m *fakeModel) AwaitingLabel(tradeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[tradeID]
}

func (m *fakeModel) Status() models.ModelStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.ModelStatus{TrainingSamples: len(m.updates), PendingLabels: len(m.pending)}
}

func (m *fakeModel) updateIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.updates...)
}

type fakeRisk struct {
	mu    sync.Mutex
	level models.RiskLevel
	qty   int
	pnl   float64
}

func (r *fakeRisk) Assess(*models.MarketSnapshot, models.ExternalFactors, models.Signal) models.RiskAssessment {
	return models.RiskAssessment{Level: r.level, Score: 0.2, RecommendedQuantity: r.qty}
}
func (r *fakeRisk) SetPortfolioValue(float64) {}
func (r *fakeRisk) RecordPnL(p float64) {
	r.mu.Lock()
	r.pnl += p
	r.mu.Unlock()
}
func (r *fakeRisk) CurrentLevel() models.RiskLevel { return r.level }

type fakeTrades struct {
	mu       sync.Mutex
	saved    []models.TradeRecord
	outcomes []models.TradeOutcome
	saveErr  error
}

func (s *fakeTrades) Save(_ context.Context, t models.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, t)
	return s.saveErr
}

func (s *fakeTrades) UpdateOutcome(_ context.Context, o models.TradeOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
	return nil
}

func (s *fakeTrades) Recent(context.Context, int) ([]models.TradeRecord, error) { return nil, nil }
func (s *fakeTrades) Performance(context.Context) (models.PerformanceSummary, error) {
	return models.PerformanceSummary{}, nil
}

type chanSink struct{ ch chan models.TradeRecord }

func (s chanSink) OnTrade(_ context.Context, t models.TradeRecord) error {
	s.ch <- t
	return nil
}

type failingSink struct{}

func (failingSink) OnTrade(context.Context, models.TradeRecord) error {
	return errors.New("sink down")
}
