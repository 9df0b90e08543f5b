//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"SignalDesk/pkg/config"
	"SignalDesk/pkg/server"
)

var infraSet = wire.NewSet(
	ProvideKafkaProducer,
	ProvideLogger,
	ProvideMetrics,
	ProvideClickHouseClient,
	ProvideCache,
	ProvideBarStore,
)

var pipelineSet = wire.NewSet(
	ProvidePriceProvider,
	ProvideHub,
	ProvideProposer,
	ProvideWeights,
	ProvideAnalyst,
	ProvideManager,
	ProvidePortfolioSource,
	ProvidePublisher,
	ProvideArchive,
	ProvideTradingCycle,
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		infraSet,
		pipelineSet,
		ProvideCycleRequestHandler,
		ProvideKafkaConsumer,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeRunner wires the pipeline for one-shot CLI runs.
func InitializeRunner(cfg *config.Config) (*Runner, error) {
	wire.Build(
		infraSet,
		pipelineSet,
		ProvideRunner,
	)
	return &Runner{}, nil
}
