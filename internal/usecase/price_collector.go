package usecase

import (
	"context"
	"errors"

	"AutoTrade/internal/domain/models"
	drepo "AutoTrade/internal/domain/repository"
	mid "AutoTrade/internal/middleware"
	"AutoTrade/pkg/logger"
)

// PriceCollector reads the live market stream and feeds it through the pipeline.
type PriceCollector struct {
	stream  drepo.MarketStream
	proc    *TickProcessor
	metrics drepo.Metrics
	pipe    *mid.RealtimePipeline
	log     *logger.Logger
}

func NewPriceCollector(stream drepo.MarketStream, proc *TickProcessor, metrics drepo.Metrics, pipe *mid.RealtimePipeline, log *logger.Logger) *PriceCollector {
	if log == nil {
		log = logger.Nop()
	}
	return &PriceCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe, log: log.With(logger.String("component", "price_collector"))}
}

// IsConnected returns true if the market stream is connected.
func (c *PriceCollector) IsConnected() bool {
	return c.stream != nil && c.stream.IsConnected()
}

func (c *PriceCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.proc.Start(ctx)
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	go c.run(ctx)
	return nil
}

// run reads until ctx ends, reconnecting whenever the stream fails.
func (c *PriceCollector) run(ctx context.Context) {
	for ctx.Err() == nil {
		ticks, errs := c.stream.Read(ctx)
		err := c.consume(ctx, ticks, errs)
		if ctx.Err() != nil {
			return
		}
		c.metrics.RecordError("stream")
		c.log.Warn("market stream dropped, reconnecting", logger.Error(err))
		for ctx.Err() == nil {
			if rerr := c.stream.Reconnect(ctx); rerr == nil {
				break
			} else {
				c.log.Warn("reconnect failed", logger.Error(rerr))
			}
		}
	}
}

func (c *PriceCollector) consume(ctx context.Context, ticks <-chan *models.PriceTick, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if ok && err != nil {
				return err
			}
			errs = nil
		case t, ok := <-ticks:
			if !ok {
				return errors.New("stream closed")
			}
			c.handle(ctx, t)
		}
	}
}

func (c *PriceCollector) handle(ctx context.Context, t *models.PriceTick) {
	var err error
	if c.pipe != nil {
		err = c.pipe.Process(ctx, t)
	} else {
		err = c.proc.Process(ctx, t)
	}
	if err != nil && !errors.Is(err, mid.ErrThrottled) {
		c.log.Debug("tick rejected", logger.String("symbol", t.Symbol), logger.Error(err))
	}
}

// Shutdown stops the pipeline, flushes pending ticks and closes the stream.
func (c *PriceCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	if err := c.proc.Close(ctx); err != nil {
		c.log.Warn("final tick flush failed", logger.Error(err))
	}
	return c.stream.Close()
}
