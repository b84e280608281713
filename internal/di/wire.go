//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FinCast/internal/handler/api"
	"FinCast/internal/usecase"
	"FinCast/pkg/config"
	"FinCast/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// The cleanup func releases the infrastructure clients.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvidePriceStore,
		ProvideForecastCache,
		ProvideForecastPublisher,

		// Pipeline
		ProvideDatasetBuilder,
		ProvidePipelineOptions,
		usecase.NewForecastPipeline,
		ProvideForecaster,

		// Transports
		ProvideKafkaForecastHandler,
		ProvideKafkaConsumer,
		api.NewForecastEchoHandler,
		ProvideRateLimiter,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
