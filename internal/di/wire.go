//go:build wireinject
// +build wireinject

package di

import (
	"PriceWatch/pkg/config"
	"PriceWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideHTTPClient,
		ProvideSteamClient,

		// Repositories and sinks
		ProvideAlertStore,
		ProvideLocker,
		ProvideArchive,
		ProvideItemResolver,
		ProvideHistorySource,
		ProvidePriceSource,
		ProvideWebhookNotifier,
		ProvideNotifier,
		ProvideStreamHub,

		// Use cases
		ProvideAlertEvaluator,
		ProvidePollScheduler,
		ProvideAlertService,
		ProvideSessionManager,
		ProvideNotificationDispatcher,

		// Transport and application
		ProvideItemsHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
