package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"AutoTrade/internal/domain/models"
	"AutoTrade/internal/domain/repository"
	"AutoTrade/pkg/util"
)

// Ledger is the simulated cash and position book. Cash never goes negative.
// Writes come from the trading worker only; reads may come from anywhere.
type Ledger struct {
	mu        sync.RWMutex
	initial   decimal.Decimal
	cash      decimal.Decimal
	positions map[string]int
	lastPrice map[string]float64
	total     decimal.Decimal
	history   []models.TradeRecord

	prices repository.PriceSource
	now    func() time.Time
	newID  func() string
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithIDs(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

func New(initialCash float64, prices repository.PriceSource, opts ...Option) *Ledger {
	cash := decimal.NewFromFloat(initialCash)
	l := &Ledger{
		initial:   cash,
		cash:      cash,
		total:     cash,
		positions: make(map[string]int),
		lastPrice: make(map[string]float64),
		prices:    prices,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Apply validates and books a trade at price. Checks run in order and stop at
// the first failure; a rejected trade leaves the ledger untouched.
func (l *Ledger) Apply(symbol string, side models.Side, qty int, price float64, strategy string) (models.TradeRecord, error) {
	reject := func(reason error) (models.TradeRecord, error) {
		return models.TradeRecord{}, &models.Rejection{Reason: reason, Symbol: symbol, Side: side, Quantity: qty, Price: price}
	}
	if qty <= 0 || (side != models.SideBuy && side != models.SideSell) {
		return reject(models.ErrInvalidOrder)
	}
	if price <= 0 {
		return reject(models.ErrPriceUnavailable)
	}

	value := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty)))

	l.mu.Lock()
	defer l.mu.Unlock()

	switch side {
	case models.SideBuy:
		if value.GreaterThan(l.cash) {
			return reject(models.ErrInsufficientFunds)
		}
		l.cash = l.cash.Sub(value)
		l.positions[symbol] += qty
	case models.SideSell:
		held, ok := l.positions[symbol]
		if !ok {
			return reject(models.ErrNoPosition)
		}
		if held < qty {
			return reject(models.ErrInsufficientShares)
		}
		l.cash = l.cash.Add(value)
		if held == qty {
			delete(l.positions, symbol)
		} else {
			l.positions[symbol] = held - qty
		}
	}
	l.lastPrice[symbol] = price

	rec := models.TradeRecord{
		ID:        l.newID(),
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Value:     value.InexactFloat64(),
		Strategy:  strategy,
		Timestamp: l.now().UTC(),
		Outcome:   models.OutcomePending,
	}
	l.history = append(l.history, rec)
	l.revalueLocked()
	return rec, nil
}

// Revalue recomputes total value from scratch and returns it.
func (l *Ledger) Revalue() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.revalueLocked().InexactFloat64()
}

// revalueLocked prices every held symbol afresh and stores the result.
func (l *Ledger) revalueLocked() decimal.Decimal {
	total := l.cash
	for sym, qty := range l.positions {
		price := l.quoteLocked(sym)
		l.lastPrice[sym] = price
		total = total.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))))
	}
	l.total = total
	return total
}

// valueLocked is cash plus every position at its current quote. It does not
// write to the book.
func (l *Ledger) valueLocked() decimal.Decimal {
	total := l.cash
	for sym, qty := range l.positions {
		total = total.Add(decimal.NewFromFloat(l.quoteLocked(sym)).Mul(decimal.NewFromInt(int64(qty))))
	}
	return total
}

// quoteLocked is the current quote for sym, or its last known price when
// there is none.
func (l *Ledger) quoteLocked(sym string) float64 {
	if l.prices != nil {
		if p, ok := l.prices.LastPrice(sym); ok && p > 0 {
			return p
		}
	}
	return l.lastPrice[sym]
}

func (l *Ledger) Cash() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cash.InexactFloat64()
}

// TotalValue is the value computed by the last revaluation.
func (l *Ledger) TotalValue() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total.InexactFloat64()
}

// Position returns the held quantity, 0 when absent.
func (l *Ledger) Position(symbol string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.positions[symbol]
}

func (l *Ledger) Positions() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]int, len(l.positions))
	for k, v := range l.positions {
		out[k] = v
	}
	return out
}

// PositionValues returns qty*last price per held symbol, ordered by symbol.
func (l *Ledger) PositionValues() []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	syms := make([]string, 0, len(l.positions))
	for s := range l.positions {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	out := make([]float64, len(syms))
	for i, s := range syms {
		out[i] = float64(l.positions[s]) * l.lastPrice[s]
	}
	return out
}

// Status values the book at current quotes and reports it rounded to cents.
// The stored total is only moved by Apply and Revalue.
func (l *Ledger) Status() models.PortfolioStatus {
	l.mu.RLock()
	total := l.valueLocked()
	cash := l.cash
	positions := make(map[string]int, len(l.positions))
	for k, v := range l.positions {
		positions[k] = v
	}
	initial := l.initial
	l.mu.RUnlock()

	ret := total.Sub(initial)
	pct := decimal.Zero
	if initial.IsPositive() {
		pct = ret.Div(initial).Mul(decimal.NewFromInt(100))
	}
	return models.PortfolioStatus{
		Cash:             cash.Round(2).InexactFloat64(),
		Positions:        positions,
		TotalValue:       total.Round(2).InexactFloat64(),
		TotalReturn:      ret.Round(2).InexactFloat64(),
		ReturnPercentage: util.Round2(pct.InexactFloat64()),
	}
}

// History returns up to limit most recent trades, oldest first.
func (l *Ledger) History(limit int) []models.TradeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	start := 0
	if limit > 0 && len(l.history) > limit {
		start = len(l.history) - limit
	}
	out := make([]models.TradeRecord, len(l.history)-start)
	copy(out, l.history[start:])
	return out
}

// SetOutcome records a resolved label on a trade in history.
func (l *Ledger) SetOutcome(o models.TradeOutcome) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.history) - 1; i >= 0; i-- {
		if l.history[i].ID == o.TradeID {
			l.history[i].Outcome = o.Outcome
			l.history[i].PnL = o.PnL
			return true
		}
	}
	return false
}

// UnrealizedPnL marks a BUY to priceNow. SELL trades are realized elsewhere and report 0.
func UnrealizedPnL(t models.TradeRecord, priceNow float64) float64 {
	if t.Side != models.SideBuy {
		return 0
	}
	return (priceNow - t.Price) * float64(t.Quantity)
}
