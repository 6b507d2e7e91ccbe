package di

import (
	"context"
	"fmt"
	"time"

	"AutoTrade/internal/domain/models"
	domrepo "AutoTrade/internal/domain/repository"
	dsvc "AutoTrade/internal/domain/service"
	"AutoTrade/internal/handler/api"
	mid "AutoTrade/internal/middleware"
	internalrepo "AutoTrade/internal/repository"
	"AutoTrade/internal/service/finnhub"
	svcmetrics "AutoTrade/internal/service/metrics"
	"AutoTrade/internal/service/push"
	"AutoTrade/internal/services/analytics"
	"AutoTrade/internal/services/classifier"
	"AutoTrade/internal/services/features"
	"AutoTrade/internal/services/ledger"
	"AutoTrade/internal/services/risk"
	"AutoTrade/internal/usecase"
	"AutoTrade/pkg/cache"
	pkgch "AutoTrade/pkg/clickhouse"
	"AutoTrade/pkg/config"
	xhttp "AutoTrade/pkg/http"
	pkgkafka "AutoTrade/pkg/kafka"
	"AutoTrade/pkg/logger"
	"AutoTrade/pkg/metrics"
	"AutoTrade/pkg/server"
)

const (
	startupTimeout = 10 * time.Second
	cacheL1TTL     = 30 * time.Second
)

// ProvideLogger builds the application logger. With Kafka configured and the
// collector enabled, warn and error events are shipped to the logs topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Logger.Collector.Enabled && producer != nil {
		l.AttachCollector(&logger.CollectionConfig{
			Service:        "autotrade",
			TimeInterval:   cfg.Logger.Collector.Interval,
			CountThreshold: cfg.Logger.Collector.CountThreshold,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producer,
		})
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideClickHouseClient creates a ClickHouse client and applies the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the outcomes consumer, or nil when no brokers are configured.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers, cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvideRedisCache connects to Redis, or returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	rc, err := cache.NewRedisCache(ctx,
		cache.WithRedisAddress(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideCache puts a memory layer in front of Redis when available.
func ProvideCache(rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache()
	}
	return cache.NewLayeredCache(rc, cacheL1TTL)
}

// ProvideMetrics registers the Prometheus collectors.
func ProvideMetrics() domrepo.Metrics {
	svcmetrics.Register()
	return metrics.New(nil)
}

func ProvideModelStore(cfg *config.Config, rc *cache.RedisCache) domrepo.ModelStore {
	if cfg.Model.Store == "redis" && rc != nil {
		return internalrepo.NewRedisModelStore(rc.Client(), cfg.Model.Key)
	}
	return internalrepo.NewFileModelStore(cfg.Model.Dir)
}

func ProvideCandleStore(ch *pkgch.Client, cfg *config.Config, log *logger.Logger) domrepo.CandleStore {
	return internalrepo.NewCHCandleStore(ch.DB(), cfg.ClickHouse.Database, log)
}

func ProvideTradeStore(ch *pkgch.Client, cfg *config.Config) domrepo.TradeStore {
	return internalrepo.NewCHTradeStore(ch.DB(), cfg.ClickHouse.Database)
}

func ProvideTickStore(ch *pkgch.Client, cfg *config.Config) domrepo.TickStore {
	return internalrepo.NewCHTickStore(ch.DB(), cfg.ClickHouse.Database)
}

func ProvidePriceBook(cfg *config.Config) *internalrepo.PriceBook {
	return internalrepo.NewPriceBook(cfg.Finnhub.PriceMaxAge)
}

func ProvideFactorsSource(cfg *config.Config) dsvc.FactorsSource {
	return analytics.NewFactorsClient(cfg)
}

// ProvideMarketData composes candles, live prices and external factors.
func ProvideMarketData(
	cfg *config.Config,
	candles domrepo.CandleStore,
	book *internalrepo.PriceBook,
	factors dsvc.FactorsSource,
	c cache.Service,
	m domrepo.Metrics,
	log *logger.Logger,
) (*usecase.MarketData, error) {
	tf, err := domrepo.ParseTimeframe(cfg.Market.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("market data: %w", err)
	}
	return usecase.NewMarketData(usecase.MarketDataConfig{
		Symbols:     cfg.Trading.Symbols,
		Timeframe:   tf,
		Lookback:    cfg.Market.Lookback,
		SnapshotTTL: cfg.Market.SnapshotTTL,
		OpenHour:    cfg.Risk.MarketOpenHour,
		CloseHour:   cfg.Risk.MarketCloseHour,
	}, candles, book, factors, c, m, log), nil
}

func ProvideExtractor() dsvc.FeatureExtractor {
	return features.NewExtractor()
}

// ProvideClassifier builds the classifier and restores any saved state.
// A state that cannot be read is logged and the model starts untrained.
func ProvideClassifier(cfg *config.Config, store domrepo.ModelStore, m domrepo.Metrics, log *logger.Logger) *classifier.Classifier {
	cc := classifier.DefaultConfig()
	cc.Trees = cfg.Model.Trees
	cc.MaxDepth = cfg.Model.MaxDepth
	cc.Seed = cfg.Model.Seed
	cc.ConfidenceThreshold = cfg.Trading.ConfidenceThreshold

	c := classifier.New(cc, store, log, classifier.WithMetrics(m))
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := c.Restore(ctx); err != nil {
		log.Warn("model restore failed, starting untrained", logger.Error(err))
	}
	return c
}

func ProvideAssessor(cfg *config.Config) *risk.Assessor {
	return risk.NewAssessor(risk.Config{
		Limits: models.RiskLimits{
			MaxPositionSize:  cfg.Risk.MaxPositionSize,
			MaxDailyLoss:     cfg.Risk.MaxDailyLoss,
			MaxPortfolioRisk: cfg.Risk.MaxPortfolioRisk,
			StopLossPct:      cfg.Risk.StopLossPct,
			TakeProfitPct:    cfg.Risk.TakeProfitPct,
		},
		PortfolioValue:  cfg.Trading.InitialCash,
		MarketOpenHour:  cfg.Risk.MarketOpenHour,
		MarketCloseHour: cfg.Risk.MarketCloseHour,
		Renormalize:     cfg.Risk.RenormalizeWeights,
	})
}

func ProvideLedger(cfg *config.Config, md *usecase.MarketData) *ledger.Ledger {
	return ledger.New(cfg.Trading.InitialCash, md)
}

func ProvideExecutor(l *ledger.Ledger, md *usecase.MarketData, m domrepo.Metrics, log *logger.Logger) *ledger.Executor {
	return ledger.NewExecutor(l, md, m, log)
}

func ProvideHub(log *logger.Logger) *push.Hub {
	return push.NewHub(log)
}

// ProvideNotifier fans executed trades out to WebSocket clients and, when
// Kafka is configured, to the trades topic.
func ProvideNotifier(cfg *config.Config, hub *push.Hub, producer *pkgkafka.Producer, m domrepo.Metrics, log *logger.Logger) *usecase.Notifier {
	sinks := []domrepo.NotificationSink{hub}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaTradeNotifier(producer, cfg.Kafka.TradesTopic))
	}
	return usecase.NewNotifier(cfg.Kafka.Producer.WriteTimeout, m, log, sinks...)
}

func ProvideOutcomeQueue() *usecase.OutcomeQueue {
	return usecase.NewOutcomeQueue()
}

func ProvideSession(
	cfg *config.Config,
	md *usecase.MarketData,
	extractor dsvc.FeatureExtractor,
	model *classifier.Classifier,
	assessor *risk.Assessor,
	executor *ledger.Executor,
	trades domrepo.TradeStore,
	notifier *usecase.Notifier,
	outcomes *usecase.OutcomeQueue,
	m domrepo.Metrics,
	log *logger.Logger,
) *usecase.Session {
	return usecase.NewSession(usecase.SessionConfig{
		Symbols:     cfg.Trading.Symbols,
		Interval:    cfg.Trading.Interval,
		TickTimeout: cfg.Trading.TickTimeout,
		Strategy:    cfg.Trading.Strategy,
	}, md, extractor, model, assessor, executor, trades, notifier, outcomes, m, log)
}

// ProvidePriceCollector builds the live price path: Finnhub stream, rate
// limited pipeline and batching tick processor. Nil when Finnhub is disabled.
func ProvidePriceCollector(
	cfg *config.Config,
	book *internalrepo.PriceBook,
	ticks domrepo.TickStore,
	m domrepo.Metrics,
	log *logger.Logger,
) *usecase.PriceCollector {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	stream := finnhub.New(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		cfg.Trading.Symbols,
		cfg.Finnhub.ReconnectDelay,
		cfg.Finnhub.PingInterval,
		log,
	)
	proc := usecase.NewTickProcessor(book, ticks, m, log, cfg.Finnhub.BatchSize, cfg.Finnhub.BatchTimeout)
	pipe := mid.NewRealtimePipeline(proc, m,
		mid.WithMaxRPS(cfg.Finnhub.MaxRPS),
		mid.WithBufferSize(cfg.Finnhub.BufferSize),
	)
	return usecase.NewPriceCollector(stream, proc, m, pipe, log)
}

func ProvideOutcomeHandler(cfg *config.Config, session *usecase.Session, m domrepo.Metrics, log *logger.Logger) *usecase.OutcomeHandler {
	return usecase.NewOutcomeHandler(cfg.Kafka.OutcomesTopic, session, m, log)
}

func ProvideDailyReset(cfg *config.Config, assessor *risk.Assessor, log *logger.Logger) (*usecase.DailyReset, error) {
	return usecase.NewDailyReset(cfg.Risk.DailyResetCron, assessor, log)
}

func ProvideTradingHandler(
	log *logger.Logger,
	session *usecase.Session,
	model *classifier.Classifier,
	l *ledger.Ledger,
	assessor *risk.Assessor,
	trades domrepo.TradeStore,
	md *usecase.MarketData,
) *api.TradingEchoHandler {
	return api.NewTradingEchoHandler(log, session, model, l, assessor, trades, md)
}

// ProvideHTTPServer mounts the control API and the push hub.
func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, h *api.TradingEchoHandler, hub *push.Hub) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	return xhttp.NewServer(log, []xhttp.Handler{h, hub}, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	session *usecase.Session,
	notifier *usecase.Notifier,
	collector *usecase.PriceCollector,
	consumer *pkgkafka.Consumer,
	outcomes *usecase.OutcomeHandler,
	reset *usecase.DailyReset,
	httpServer *xhttp.Server,
	hub *push.Hub,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	rc *cache.RedisCache,
) *server.App {
	return server.New(server.Deps{
		Config:    cfg,
		Log:       log,
		Session:   session,
		Notifier:  notifier,
		Collector: collector,
		Consumer:  consumer,
		Outcomes:  outcomes,
		Reset:     reset,
		HTTP:      httpServer,
		Hub:       hub,
		Producer:  producer,
		CH:        ch,
		Redis:     rc,
	})
}
