package ledger

import (
	"context"

	"AutoTrade/internal/domain/models"
	"AutoTrade/internal/domain/repository"
	"AutoTrade/pkg/logger"
)

// Executor runs one trade attempt: price lookup, then ledger booking.
type Executor struct {
	ledger  *Ledger
	prices  repository.PriceSource
	metrics repository.Metrics
	log     *logger.Logger
}

func NewExecutor(l *Ledger, prices repository.PriceSource, metrics repository.Metrics, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{ledger: l, prices: prices, metrics: metrics, log: log}
}

// Execute returns the booked trade or a *models.Rejection.
func (e *Executor) Execute(ctx context.Context, symbol string, side models.Side, qty int, strategy string) (models.TradeRecord, error) {
	price, ok := 0.0, false
	if e.prices != nil {
		price, ok = e.prices.LastPrice(symbol)
	}
	if !ok || price <= 0 {
		return e.rejected(&models.Rejection{Reason: models.ErrPriceUnavailable, Symbol: symbol, Side: side, Quantity: qty})
	}

	rec, err := e.ledger.Apply(symbol, side, qty, price, strategy)
	if err != nil {
		return e.rejected(err)
	}

	if e.metrics != nil {
		e.metrics.RecordTrade(symbol, string(side))
		e.metrics.RecordPortfolio(e.ledger.TotalValue(), e.ledger.Cash())
	}
	e.log.Info("trade executed",
		logger.String("id", rec.ID),
		logger.String("symbol", symbol),
		logger.String("side", string(side)),
		logger.Int("quantity", qty),
		logger.Float64("price", price),
		logger.Float64("cash", e.ledger.Cash()))
	return rec, nil
}

func (e *Executor) rejected(err error) (models.TradeRecord, error) {
	if e.metrics != nil {
		e.metrics.RecordRejection(models.ErrorKind(err))
	}
	e.log.Debug("trade rejected", logger.Error(err))
	return models.TradeRecord{}, err
}

func (e *Executor) Ledger() *Ledger { return e.ledger }
