package repository

import (
	"sync"
	"time"

	"AutoTrade/internal/domain/models"
	domrepo "AutoTrade/internal/domain/repository"
)

type quote struct {
	price float64
	at    time.Time
}

// PriceBook holds the latest streamed price per symbol.
// Quotes older than maxAge are reported as unavailable; maxAge <= 0 disables the check.
type PriceBook struct {
	mu     sync.RWMutex
	quotes map[string]quote
	maxAge time.Duration
	now    func() time.Time
}

func NewPriceBook(maxAge time.Duration) *PriceBook {
	return &PriceBook{quotes: make(map[string]quote), maxAge: maxAge, now: time.Now}
}

// Update records a tick if it is not older than the stored quote.
func (b *PriceBook) Update(t *models.PriceTick) {
	if t == nil || t.Price <= 0 {
		return
	}
	at := time.Unix(t.Timestamp, 0)
	b.mu.Lock()
	if q, ok := b.quotes[t.Symbol]; !ok || !at.Before(q.at) {
		b.quotes[t.Symbol] = quote{price: t.Price, at: at}
	}
	b.mu.Unlock()
}

func (b *PriceBook) LastPrice(symbol string) (float64, bool) {
	b.mu.RLock()
	q, ok := b.quotes[symbol]
	b.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if b.maxAge > 0 && b.now().Sub(q.at) > b.maxAge {
		return 0, false
	}
	return q.price, true
}

var _ domrepo.PriceSource = (*PriceBook)(nil)
