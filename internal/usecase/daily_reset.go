package usecase

import (
	"context"
	"fmt"

	"AutoTrade/pkg/logger"

	"github.com/robfig/cron/v3"
)

// DailyResetter is the part of the risk assessor the reset job needs.
type DailyResetter interface {
	ResetDaily()
}

// DailyReset clears the cumulative daily P&L on a cron schedule.
type DailyReset struct {
	cron *cron.Cron
	log  *logger.Logger
}

func NewDailyReset(spec string, target DailyResetter, log *logger.Logger) (*DailyReset, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.String("component", "daily_reset"))
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		target.ResetDaily()
		log.Info("daily pnl reset")
	}); err != nil {
		return nil, fmt.Errorf("daily reset schedule %q: %w", spec, err)
	}
	return &DailyReset{cron: c, log: log}, nil
}

func (d *DailyReset) Start() { d.cron.Start() }

// Stop waits for a running reset to finish or ctx to end.
func (d *DailyReset) Stop(ctx context.Context) {
	select {
	case <-d.cron.Stop().Done():
	case <-ctx.Done():
	}
}
