package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"AutoTrade/internal/domain/models"
	drepo "AutoTrade/internal/domain/repository"
	"AutoTrade/internal/repository"
	"AutoTrade/pkg/logger"
)

// TickProcessor updates the live price book and batches raw ticks into the
// tick store, from which candle tables are derived.
type TickProcessor struct {
	book    *repository.PriceBook
	store   drepo.TickStore
	metrics drepo.Metrics
	log     *logger.Logger
	batchSz int
	batchTO time.Duration

	mu      sync.Mutex
	pending []*models.PriceTick
	stopCh  chan struct{}
	done    chan struct{}
}

// NewTickProcessor creates a TickProcessor. A nil store keeps prices in
// memory only.
func NewTickProcessor(
	book *repository.PriceBook,
	store drepo.TickStore,
	metrics drepo.Metrics,
	log *logger.Logger,
	batchSz int,
	batchTO time.Duration,
) *TickProcessor {
	if batchSz <= 0 {
		batchSz = 500
	}
	if batchTO <= 0 {
		batchTO = time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TickProcessor{
		book:    book,
		store:   store,
		metrics: metrics,
		log:     log.With(logger.String("component", "tick_processor")),
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Process applies one tick. It flushes synchronously when the batch is full.
func (p *TickProcessor) Process(ctx context.Context, t *models.PriceTick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}
	p.book.Update(t)
	p.metrics.RecordLastPrice(t.Symbol, t.Price)
	if p.store == nil {
		return nil
	}

	p.mu.Lock()
	p.pending = append(p.pending, t)
	full := len(p.pending) >= p.batchSz
	p.mu.Unlock()
	if full {
		return p.Flush(ctx)
	}
	return nil
}

// Flush writes every pending tick. On failure the batch is kept for the next flush.
func (p *TickProcessor) Flush(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	if err := p.store.StoreBatch(ctx, batch); err != nil {
		p.metrics.RecordError("tick_store")
		p.mu.Lock()
		if len(p.pending)+len(batch) <= p.batchSz*10 {
			p.pending = append(batch, p.pending...)
		}
		p.mu.Unlock()
		return fmt.Errorf("store ticks: %w", err)
	}
	p.metrics.RecordLatency("tick_store", time.Since(start).Seconds())
	return nil
}

// Start flushes on the batch timeout until Stop.
func (p *TickProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	if p.stopCh != nil {
		p.mu.Unlock()
		return
	}
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stopCh, p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.batchTO)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.Flush(ctx); err != nil {
					p.log.Warn("tick flush failed", logger.Error(err))
				}
			}
		}
	}()
}

// Close stops the flusher and writes what is left.
func (p *TickProcessor) Close(ctx context.Context) error {
	p.mu.Lock()
	stop, done := p.stopCh, p.done
	p.stopCh = nil
	p.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
	return p.Flush(ctx)
}
