//go:build wireinject
// +build wireinject

package di

import (
	"FinPredict/pkg/config"
	"FinPredict/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,
		ProvideCacheService,
		ProvideEventPublisher,

		// Storage
		ProvideBarStore,
		ProvideRegistry,
		ProvideTrainingLedger,

		// Use cases
		ProvideTrainer,
		ProvidePredictor,
		ProvideTrainSymbolJob,
		ProvideTrainingQueue,
		ProvideQueueService,
		ProvideTrainingTrigger,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
