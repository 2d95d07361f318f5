//go:build wireinject
// +build wireinject

package di

import (
	"VolScan/pkg/config"
	"VolScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,
		ProvideKafkaPublisher,

		// Repositories
		ProvideMarketData,
		ProvideTickerSource,
		ProvideLatestStore,
		ProvideReportHub,
		ProvideSinks,

		// Domain services
		ProvideHorizons,
		ProvideEstimator,
		ProvideAggregator,
		ProvideComparator,
		ProvideAnalysisParams,

		// Use cases
		ProvidePipeline,
		ProvideRunner,

		// Application server
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
