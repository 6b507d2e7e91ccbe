package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"AutoTrade/internal/domain/models"
	domrepo "AutoTrade/internal/domain/repository"
	"AutoTrade/pkg/cache"
)

type fakeCandles struct {
	bySymbol map[string][]models.Candle
	calls    int
	err      error
}

func (f *fakeCandles) GetCandles(context.Context, string, time.Time, time.Time, domrepo.Timeframe) ([]models.Candle, error) {
	return nil, errors.New("not used")
}

func (f *fakeCandles) GetLatestNCandles(_ context.Context, symbol string, n int, _ domrepo.Timeframe) ([]models.Candle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cs := f.bySymbol[symbol]
	if len(cs) > n {
		cs = cs[len(cs)-n:]
	}
	return cs, nil
}

type fakeFactors struct {
	f   models.ExternalFactors
	err error
}

func (f fakeFactors) Fetch(context.Context, string) (models.ExternalFactors, error) {
	return f.f, f.err
}

func newMarketData(store *fakeCandles, prices quotes, factors fakeFactors, c cache.Service) *MarketData {
	md := NewMarketData(MarketDataConfig{
		Symbols:     []string{"AAPL", "MSFT"},
		Timeframe:   domrepo.TF1m,
		Lookback:    50,
		SnapshotTTL: time.Minute,
		OpenHour:    9,
		CloseHour:   16,
	}, store, prices, factors, c, nopMetrics{}, nil)
	md.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) } // Saturday
	return md
}

func TestSnapshotPrefersLivePriceAndCaches(t *testing.T) {
	store := &fakeCandles{bySymbol: map[string][]models.Candle{"AAPL": candles(30, 100)}}
	c := cache.NewMemoryCache()
	defer c.Close()
	md := newMarketData(store, quotes{"AAPL": 150}, fakeFactors{}, c)

	snap, err := md.Snapshot(context.Background(), "AAPL")
	if err != nil || snap == nil {
		t.Fatalf("Snapshot: %v %v", snap, err)
	}
	if snap.CurrentPrice != 150 || len(snap.Candles) != 30 {
		t.Fatalf("unexpected snapshot price=%v candles=%d", snap.CurrentPrice, len(snap.Candles))
	}
	if math.Abs(snap.VolumeRatio-1) > 1e-9 {
		t.Fatalf("flat volume should give ratio 1, got %v", snap.VolumeRatio)
	}

	if _, err := md.Snapshot(context.Background(), "AAPL"); err != nil {
		t.Fatalf("second Snapshot: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("history should be served from cache, store calls=%d", store.calls)
	}
}

func TestSnapshotFallsBackToLastClose(t *testing.T) {
	store := &fakeCandles{bySymbol: map[string][]models.Candle{"AAPL": candles(25, 100)}}
	md := newMarketData(store, quotes{}, fakeFactors{}, nil)

	snap, err := md.Snapshot(context.Background(), "AAPL")
	if err != nil || snap == nil {
		t.Fatalf("Snapshot: %v %v", snap, err)
	}
	if snap.CurrentPrice != 124 {
		t.Fatalf("price = %v, want last close 124", snap.CurrentPrice)
	}
	if p, ok := md.LastPrice("AAPL"); !ok || p != 124 {
		t.Fatalf("LastPrice should fall back to the snapshot price, got %v %v", p, ok)
	}
}

func TestSnapshotUnavailable(t *testing.T) {
	md := newMarketData(&fakeCandles{}, quotes{}, fakeFactors{}, nil)
	snap, err := md.Snapshot(context.Background(), "TSLA")
	if err != nil || snap != nil {
		t.Fatalf("no data should give (nil, nil), got %v %v", snap, err)
	}

	md = newMarketData(&fakeCandles{err: errors.New("ch down")}, quotes{}, fakeFactors{}, nil)
	if _, err := md.Snapshot(context.Background(), "AAPL"); !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("store failure should map to data unavailable, got %v", err)
	}
}

func TestExternalFactorsMergesLocalReadings(t *testing.T) {
	store := &fakeCandles{bySymbol: map[string][]models.Candle{
		"AAPL": candles(10, 100),
		"MSFT": candles(10, 200),
	}}
	md := newMarketData(store, quotes{}, fakeFactors{f: models.ExternalFactors{models.FactorNewsSentiment: 0.3}}, nil)

	f, err := md.ExternalFactors(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("ExternalFactors: %v", err)
	}
	if f.Get(models.FactorNewsSentiment, 0) != 0.3 {
		t.Fatalf("remote factor lost: %v", f)
	}
	if f.Get(models.FactorWeekend, 0) != 1 || f.Get(models.FactorMarketHours, -1) != 1 {
		t.Fatalf("calendar flags wrong: %v", f)
	}
	a, _ := SymbolSentiment(candles(10, 100))
	b, _ := SymbolSentiment(candles(10, 200))
	if got := f.Get(models.FactorMarketSentiment, 99); math.Abs(got-(a+b)/2) > 1e-12 {
		t.Fatalf("market sentiment = %v, want %v", got, (a+b)/2)
	}
}

func TestExternalFactorsRemoteFailureKeepsLocal(t *testing.T) {
	store := &fakeCandles{bySymbol: map[string][]models.Candle{"AAPL": candles(10, 100)}}
	md := newMarketData(store, quotes{}, fakeFactors{err: errors.New("timeout")}, nil)

	f, err := md.ExternalFactors(context.Background(), "AAPL")
	if err == nil {
		t.Fatalf("remote failure should be reported")
	}
	if !f.Has(models.FactorWeekend) || !f.Has(models.FactorMarketSentiment) {
		t.Fatalf("local factors should survive: %v", f)
	}
}

func TestSymbolSentiment(t *testing.T) {
	cs := []models.Candle{
		{Close: 100, Volume: 100},
		{Close: 101, Volume: 100},
		{Close: 102, Volume: 100},
		{Close: 103, Volume: 100},
		{Close: 110, Volume: 300},
	}
	got, ok := SymbolSentiment(cs)
	if !ok {
		t.Fatalf("expected a reading")
	}
	// change 0.10 * 0.7 + min(300/140 - 1, 0.5) * 0.3
	want := 0.1*0.7 + 0.5*0.3
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("sentiment = %v, want %v", got, want)
	}
	if _, ok := SymbolSentiment(cs[:4]); ok {
		t.Fatalf("fewer than five candles should give no reading")
	}
}

func TestSnapshotTTLCappedAtBucketWidth(t *testing.T) {
	cases := []struct {
		tf   domrepo.Timeframe
		ttl  time.Duration
		want time.Duration
	}{
		{domrepo.TF1s, time.Minute, time.Second},
		{domrepo.TF1m, 5 * time.Minute, time.Minute},
		{domrepo.TF5m, time.Minute, time.Minute},
		{domrepo.TF5m, 0, 0},
	}
	for _, tc := range cases {
		md := NewMarketData(MarketDataConfig{Timeframe: tc.tf, SnapshotTTL: tc.ttl}, &fakeCandles{}, nil, nil, nil, nopMetrics{}, nil)
		if md.cfg.SnapshotTTL != tc.want {
			t.Errorf("%s ttl %v: got %v, want %v", tc.tf, tc.ttl, md.cfg.SnapshotTTL, tc.want)
		}
	}
}
