package usecase

import (
	"context"
	"sync"
	"time"

	"AutoTrade/internal/domain/models"
	drepo "AutoTrade/internal/domain/repository"
	"AutoTrade/pkg/logger"
)

// Notifier fans executed trades out to every sink without blocking the caller.
type Notifier struct {
	sinks   []drepo.NotificationSink
	timeout time.Duration
	metrics drepo.Metrics
	log     *logger.Logger
	wg      sync.WaitGroup
}

func NewNotifier(timeout time.Duration, metrics drepo.Metrics, log *logger.Logger, sinks ...drepo.NotificationSink) *Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	out := make([]drepo.NotificationSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Notifier{sinks: out, timeout: timeout, metrics: metrics, log: log.With(logger.String("component", "notifier"))}
}

// Notify returns immediately; delivery failures are logged.
func (n *Notifier) Notify(t models.TradeRecord) {
	for _, sink := range n.sinks {
		n.wg.Add(1)
		go func(sink drepo.NotificationSink) {
			defer n.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
			defer cancel()
			if err := sink.OnTrade(ctx, t); err != nil {
				n.metrics.RecordError("notify")
				n.log.Warn("trade notification failed", logger.String("trade_id", t.ID), logger.Error(err))
			}
		}(sink)
	}
}

// Wait blocks until in-flight notifications finish or ctx ends.
func (n *Notifier) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
