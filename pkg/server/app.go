package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"AutoTrade/internal/domain/models"
	"AutoTrade/internal/service/push"
	"AutoTrade/internal/usecase"
	"AutoTrade/pkg/cache"
	pkgch "AutoTrade/pkg/clickhouse"
	"AutoTrade/pkg/config"
	xhttp "AutoTrade/pkg/http"
	pkgkafka "AutoTrade/pkg/kafka"
	applogger "AutoTrade/pkg/logger"
)

// Deps are the components the application owns. Collector, Consumer,
// Producer and Redis are optional.
type Deps struct {
	Config    *config.Config
	Log       *applogger.Logger
	Session   *usecase.Session
	Notifier  *usecase.Notifier
	Collector *usecase.PriceCollector
	Consumer  *pkgkafka.Consumer
	Outcomes  *usecase.OutcomeHandler
	Reset     *usecase.DailyReset
	HTTP      *xhttp.Server
	Hub       *push.Hub
	Producer  *pkgkafka.Producer
	CH        *pkgch.Client
	Redis     *cache.RedisCache
}

// App encapsulates the entire application lifecycle.
type App struct {
	Deps
	log *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(d Deps) *App {
	log := d.Log
	if log == nil {
		log = applogger.Nop()
	}
	return &App{Deps: d, log: log.With(applogger.String("component", "app"))}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and shuts down once ctx ends.
func (a *App) RunContext(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.Collector != nil {
		if err := a.Collector.Start(runCtx); err != nil {
			// Trading continues on stored candles.
			a.log.Error("price collector start failed", applogger.Error(err))
		} else {
			a.log.Info("price collector started", applogger.Strings("symbols", a.Config.Trading.Symbols))
		}
	}

	if a.Consumer != nil && a.Outcomes != nil {
		a.Consumer.RegisterHandler(a.Outcomes)
		if err := a.Consumer.Start(runCtx); err != nil {
			a.log.Error("kafka consumer start failed", applogger.Error(err))
		} else {
			a.log.Info("kafka consumer started", applogger.String("topic", a.Outcomes.Topic()))
		}
	}

	if a.Reset != nil {
		a.Reset.Start()
	}

	if err := a.HTTP.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.Config.Trading.AutoStart {
		if err := a.Session.Start(runCtx, a.Config.Trading.Strategy); err != nil && !errors.Is(err, models.ErrAlreadyRunning) {
			a.log.Error("trading auto start failed", applogger.Error(err))
		}
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+a.Config.Trading.TickTimeout)
	defer cancelShutdown()
	return a.shutdown(shutdownCtx)
}

// shutdown gracefully stops all services. An in-flight decision cycle is
// allowed to finish before stores are closed.
func (a *App) shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")
	var errs []error

	a.Session.Stop()
	if err := a.Session.Wait(ctx); err != nil {
		a.log.Warn("trading session did not stop in time", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.Notifier != nil {
		a.Notifier.Wait(ctx)
	}

	if err := a.HTTP.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.Hub != nil {
		a.Hub.Close()
	}

	if a.Collector != nil {
		if err := a.Collector.Shutdown(ctx); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}
	if a.Consumer != nil {
		if err := a.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.Reset != nil {
		a.Reset.Stop(ctx)
	}

	a.log.Info("shutdown complete")
	a.log.DetachCollector()

	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.CH != nil {
		if err := a.CH.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
