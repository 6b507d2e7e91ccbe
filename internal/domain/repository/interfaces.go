package repository

import (
	"context"
	"time"

	"AutoTrade/internal/domain/models"
)

// MarketDataProvider supplies the per-cycle market view. A nil snapshot with a
// nil error means data is unavailable for this cycle.
type MarketDataProvider interface {
	Snapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error)
	ExternalFactors(ctx context.Context, symbol string) (models.ExternalFactors, error)
}

// PriceSource resolves the current price of a symbol without blocking.
type PriceSource interface {
	LastPrice(symbol string) (float64, bool)
}

// MarketStream is a live trade feed.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PriceTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// TickStore keeps raw price ticks; candle tables are derived from it.
type TickStore interface {
	StoreBatch(ctx context.Context, ticks []*models.PriceTick) error
}

// ModelStore persists the classifier state as an opaque blob.
// Load returns (nil, nil) when nothing was saved yet.
type ModelStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, state []byte) error
}

// TradeStore is durable trade history.
type TradeStore interface {
	Save(ctx context.Context, t models.TradeRecord) error
	UpdateOutcome(ctx context.Context, o models.TradeOutcome) error
	Recent(ctx context.Context, limit int) ([]models.TradeRecord, error)
	Performance(ctx context.Context) (models.PerformanceSummary, error)
}

// NotificationSink is told about executed trades. Callers never wait on it
// from the decision loop.
type NotificationSink interface {
	OnTrade(ctx context.Context, t models.TradeRecord) error
}

type Metrics interface {
	RecordTick(result string, d time.Duration)
	RecordTrade(symbol, side string)
	RecordRejection(reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordLastPrice(symbol string, price float64)
	RecordRiskScore(symbol string, score float64)
	RecordPortfolio(value, cash float64)
	RecordRetrain(accuracy float64)
}
