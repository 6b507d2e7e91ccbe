//go:build wireinject
// +build wireinject

package di

import (
	"AutoTrade/pkg/config"
	"AutoTrade/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideCache,

		// Repositories
		ProvideModelStore,
		ProvideCandleStore,
		ProvideTradeStore,
		ProvideTickStore,
		ProvidePriceBook,
		ProvideFactorsSource,

		// Services
		ProvideMarketData,
		ProvideExtractor,
		ProvideClassifier,
		ProvideAssessor,
		ProvideLedger,
		ProvideExecutor,
		ProvideHub,
		ProvideNotifier,
		ProvideOutcomeQueue,

		// Use cases
		ProvideSession,
		ProvidePriceCollector,
		ProvideOutcomeHandler,
		ProvideDailyReset,

		// Transport
		ProvideTradingHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
