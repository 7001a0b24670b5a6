//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"engram/application/commands"
	"engram/application/commands/bus"
	turnhandlers "engram/application/commands/handlers"
	"engram/application/ports"
	querybus "engram/application/queries/bus"
	"engram/infrastructure/config"
	"engram/pkg/auth"
	"github.com/google/wire"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config             *config.Config
	Logger             *zap.Logger
	GraphRepo          ports.GraphRepository
	MessageRepo        ports.MessageRepository
	AccountRepo        ports.AccountRepository
	EventBus           ports.EventBus
	EventPublisher     ports.EventPublisher
	EventStore         ports.EventStore
	Cache              ports.Cache
	Locker             ports.UserLocker
	Registry           ports.ProviderRegistry
	UserLimiter        auth.RateLimiter
	CommandBus         *bus.CommandBus
	QueryBus           *querybus.QueryBus
	Orchestrator       *turnhandlers.SubmitTurnOrchestrator
	StoreHandler       *commands.StoreMemoryHandler
	MaintenanceHandler *commands.RunMaintenanceHandler
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideGraphRepository,
	ProvideMessageRepository,
	ProvideAccountRepository,
	ProvideUserLocker,
	ProvideEventStore,
	ProvideEventBus,
	ProvideEventPublisher,
	ProvideUserRateLimiter,
	ProvideCache,
	ProvideClock,
	ProvideTextGenerator,
	ProvideFactExtractor,
	ProvideProviderRegistry,
	ProvideExtractionService,
	ProvideStrategyService,
	ProvideLinkerService,
	ProvideProfileService,
	ProvideAccountingService,
	ProvideDashboardService,
	ProvideStoreMemoryHandler,
	ProvideForgetMemoryHandler,
	ProvideCyclesHandler,
	ProvideDeleteUserDataHandler,
	ProvideRunMaintenanceHandler,
	ProvideUpdateProfileHandler,
	ProvideProviderAdminHandler,
	ProvideUsageMetrics,
	ProvideSubmitTurnOrchestrator,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
