package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"AutoTrade/internal/domain/models"
	domrepo "AutoTrade/internal/domain/repository"
	dsvc "AutoTrade/internal/domain/service"
	"AutoTrade/internal/services/features"
	"AutoTrade/pkg/cache"
	"AutoTrade/pkg/logger"
	"AutoTrade/pkg/util"

	"golang.org/x/sync/errgroup"
)

const (
	sentimentSymbols = 5
	sentimentWindow  = 5
)

// MarketDataConfig controls snapshot assembly.
type MarketDataConfig struct {
	Symbols     []string
	Timeframe   domrepo.Timeframe
	Lookback    int
	SnapshotTTL time.Duration
	OpenHour    int
	CloseHour   int
}

// MarketData implements MarketDataProvider over the candle store, the live
// price book and the external factors service.
type MarketData struct {
	cfg     MarketDataConfig
	candles domrepo.CandleStore
	prices  domrepo.PriceSource
	factors dsvc.FactorsSource
	cache   cache.Service
	metrics domrepo.Metrics
	log     *logger.Logger
	now     func() time.Time

	mu        sync.Mutex
	lastPrice map[string]float64
}

func NewMarketData(
	cfg MarketDataConfig,
	candles domrepo.CandleStore,
	prices domrepo.PriceSource,
	factors dsvc.FactorsSource,
	c cache.Service,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *MarketData {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 200
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = domrepo.TF1m
	}
	// cached history must not outlive the bucket it ends in
	if w := cfg.Timeframe.Width(); cfg.SnapshotTTL > w {
		cfg.SnapshotTTL = w
	}
	if log == nil {
		log = logger.Nop()
	}
	return &MarketData{
		cfg:       cfg,
		candles:   candles,
		prices:    prices,
		factors:   factors,
		cache:     c,
		metrics:   metrics,
		log:       log.With(logger.String("component", "market_data")),
		now:       time.Now,
		lastPrice: make(map[string]float64),
	}
}

// history returns candles for symbol, oldest first, from cache when fresh.
func (m *MarketData) history(ctx context.Context, symbol string) ([]models.Candle, error) {
	key := cache.Key("candles", symbol, string(m.cfg.Timeframe), m.cfg.Lookback)
	if m.cache != nil && m.cfg.SnapshotTTL > 0 {
		cached, ok, err := cache.GetTyped[[]models.Candle](ctx, m.cache, key)
		if err != nil {
			m.log.Warn("snapshot cache read failed", logger.String("symbol", symbol), logger.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	start := time.Now()
	candles, err := m.candles.GetLatestNCandles(ctx, symbol, m.cfg.Lookback, m.cfg.Timeframe)
	m.metrics.RecordLatency("candles", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if m.cache != nil && m.cfg.SnapshotTTL > 0 && len(candles) > 0 {
		if err := m.cache.Set(ctx, key, candles, m.cfg.SnapshotTTL); err != nil {
			m.log.Warn("snapshot cache write failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return candles, nil
}

// Snapshot builds the cycle's market view. It returns (nil, nil) when there
// is neither history nor a live price for symbol.
func (m *MarketData) Snapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	candles, err := m.history(ctx, symbol)
	if err != nil {
		m.metrics.RecordError("candles")
		return nil, fmt.Errorf("%w: candles for %s: %v", models.ErrDataUnavailable, symbol, err)
	}

	price, ok := 0.0, false
	if m.prices != nil {
		price, ok = m.prices.LastPrice(symbol)
	}
	if !ok && len(candles) > 0 {
		price, ok = candles[len(candles)-1].Close, true
	}
	if !ok || price <= 0 {
		return nil, nil
	}

	snap := &models.MarketSnapshot{
		Symbol:       symbol,
		Candles:      candles,
		CurrentPrice: price,
		AsOf:         m.now(),
	}
	if vr, ok := features.VolumeRatio(snap.Volumes(), features.MinHistory); ok {
		snap.VolumeRatio = vr
	}
	m.mu.Lock()
	m.lastPrice[symbol] = price
	m.mu.Unlock()
	m.metrics.RecordLastPrice(symbol, price)
	return snap, nil
}

// LastPrice implements PriceSource: the live price when fresh, otherwise the
// price of the latest snapshot taken for symbol.
func (m *MarketData) LastPrice(symbol string) (float64, bool) {
	if m.prices != nil {
		if p, ok := m.prices.LastPrice(symbol); ok {
			return p, true
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.lastPrice[symbol]
	return p, ok && p > 0
}

// ExternalFactors merges remote factor readings with locally derived market
// sentiment and calendar flags. Remote failures degrade to the local subset.
func (m *MarketData) ExternalFactors(ctx context.Context, symbol string) (models.ExternalFactors, error) {
	var (
		remote    models.ExternalFactors
		remoteErr error
		sentiment float64
		hasSent   bool
	)

	g, gctx := errgroup.WithContext(ctx)
	if m.factors != nil {
		g.Go(func() error {
			start := time.Now()
			remote, remoteErr = m.factors.Fetch(gctx, symbol)
			m.metrics.RecordLatency("factors", time.Since(start).Seconds())
			return nil
		})
	}
	g.Go(func() error {
		sentiment, hasSent = m.marketSentiment(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := models.ExternalFactors{}
	for k, v := range remote {
		out[k] = v
	}
	if hasSent && !out.Has(models.FactorMarketSentiment) {
		out[models.FactorMarketSentiment] = sentiment
	}

	now := m.now()
	out[models.FactorMarketHours] = 1
	if util.OutsideHours(now, m.cfg.OpenHour, m.cfg.CloseHour) {
		out[models.FactorMarketHours] = 0
	}
	out[models.FactorWeekend] = 0
	if util.IsWeekend(now) {
		out[models.FactorWeekend] = 1
	}

	if remoteErr != nil {
		m.metrics.RecordError("factors")
		return out, fmt.Errorf("external factors: %w", remoteErr)
	}
	return out, nil
}

// marketSentiment averages a short-horizon momentum and volume reading over
// the first few configured symbols.
func (m *MarketData) marketSentiment(ctx context.Context) (float64, bool) {
	symbols := m.cfg.Symbols
	if len(symbols) > sentimentSymbols {
		symbols = symbols[:sentimentSymbols]
	}
	var sum float64
	var n int
	for _, sym := range symbols {
		candles, err := m.history(ctx, sym)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			continue
		}
		if s, ok := SymbolSentiment(candles); ok {
			sum += s
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// SymbolSentiment is 0.7 x the 5-bar price change plus 0.3 x the volume
// surge over the 5-bar mean, capped at 0.5.
func SymbolSentiment(candles []models.Candle) (float64, bool) {
	if len(candles) < sentimentWindow {
		return 0, false
	}
	w := candles[len(candles)-sentimentWindow:]
	first, last := w[0].Close, w[len(w)-1].Close
	if first <= 0 {
		return 0, false
	}
	var vsum float64
	for _, c := range w {
		vsum += c.Volume
	}
	volRatio := 1.0
	if mean := vsum / float64(len(w)); mean > 0 {
		volRatio = w[len(w)-1].Volume / mean
	}
	s := (last-first)/first*0.7 + math.Min(volRatio-1, 0.5)*0.3
	return s, !math.IsNaN(s)
}
