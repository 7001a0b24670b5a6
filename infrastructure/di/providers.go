package di

import (
	"context"
	"time"

	"engram/application/commands"
	"engram/application/commands/bus"
	turnhandlers "engram/application/commands/handlers"
	"engram/application/ports"
	"engram/application/queries"
	querybus "engram/application/queries/bus"
	"engram/application/services"
	domainconfig "engram/domain/config"
	"engram/infrastructure/ai"
	"engram/infrastructure/config"
	"engram/infrastructure/messaging/eventbridge"
	dynamodbstore "engram/infrastructure/persistence/dynamodb"
	memorystore "engram/infrastructure/persistence/memory"
	"engram/pkg/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogger creates the logger for the configured environment
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideDomainConfig supplies the tuning knobs for decay, linking and
// retrieval, preset per environment
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return domainconfig.LoadDomainConfig(cfg.Environment)
}

// ProvideAWSConfig loads the AWS SDK configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideGraphRepository selects the graph store for the configured backend
func ProvideGraphRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.GraphRepository {
	if cfg.StorageBackend == config.BackendDynamoDB {
		return dynamodbstore.NewGraphRepository(client, cfg.DynamoDBTable, logger)
	}
	return memorystore.NewGraphRepository()
}

// ProvideMessageRepository selects the conversation log store
func ProvideMessageRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.MessageRepository {
	if cfg.StorageBackend == config.BackendDynamoDB {
		return dynamodbstore.NewMessageRepository(client, cfg.DynamoDBTable, logger)
	}
	return memorystore.NewMessageRepository()
}

// ProvideAccountRepository selects the account store
func ProvideAccountRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.AccountRepository {
	if cfg.StorageBackend == config.BackendDynamoDB {
		return dynamodbstore.NewAccountRepository(client, cfg.DynamoDBTable, logger)
	}
	return memorystore.NewAccountRepository()
}

// ProvideUserLocker selects the per-user lock implementation. DynamoDB
// locks hold across instances; the in-process locker only guards one.
func ProvideUserLocker(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.UserLocker {
	if cfg.StorageBackend == config.BackendDynamoDB {
		return dynamodbstore.NewUserLocker(client, cfg.DynamoDBTable, logger)
	}
	return memorystore.NewUserLocker()
}

// ProvideEventStore selects the domain event store
func ProvideEventStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.EventStore {
	if cfg.StorageBackend == config.BackendDynamoDB {
		return dynamodbstore.NewEventStore(client, cfg.DynamoDBTable, cfg.IndexName, logger)
	}
	return memorystore.NewEventStore()
}

// ProvideEventBus creates the in-process event bus
func ProvideEventBus(logger *zap.Logger) ports.EventBus {
	return memorystore.NewEventBus(logger)
}

// ProvideEventPublisher routes domain events to EventBridge when running
// against DynamoDB, otherwise to the in-process bus
func ProvideEventPublisher(
	cfg *config.Config,
	client *awseventbridge.Client,
	eventBus ports.EventBus,
	logger *zap.Logger,
) ports.EventPublisher {
	if cfg.StorageBackend == config.BackendDynamoDB {
		return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
	}
	return eventBus
}

// ProvideUserRateLimiter selects the per-user request limiter. The
// DynamoDB-backed limiter shares its counters across instances.
func ProvideUserRateLimiter(cfg *config.Config, client *awsdynamodb.Client) auth.RateLimiter {
	if cfg.StorageBackend == config.BackendDynamoDB {
		return auth.NewDistributedUserRateLimiter(client, cfg.DynamoDBTable, 200)
	}
	return auth.NewUserRateLimiter(200)
}

// ProvideCache creates the in-process cache
func ProvideCache() ports.Cache {
	return memorystore.NewCache()
}

// ProvideClock supplies wall-clock time
func ProvideClock() ports.Clock {
	return memorystore.NewSystemClock()
}

// ProvideTextGenerator creates the chat completion client
func ProvideTextGenerator(cfg *config.Config, logger *zap.Logger) *ai.OpenAIGenerator {
	providerCfg := ai.DefaultProviderConfig()
	providerCfg.APIKey = cfg.OpenAIAPIKey
	providerCfg.Model = cfg.OpenAIModel
	if cfg.AIRequestLimit > 0 {
		providerCfg.MaxTokens = cfg.AIRequestLimit
	}
	if cfg.AITimeoutMillis > 0 {
		providerCfg.Timeout = time.Duration(cfg.AITimeoutMillis) * time.Millisecond
	}
	return ai.NewOpenAIGenerator(providerCfg, logger)
}

// ProvideFactExtractor creates the model-backed fact extractor
func ProvideFactExtractor(generator *ai.OpenAIGenerator, logger *zap.Logger) ports.FactExtractor {
	return ai.NewModelFactExtractor(generator, logger)
}

// ProvideProviderRegistry registers the configured generators with their
// cost multipliers
func ProvideProviderRegistry(cfg *config.Config, generator *ai.OpenAIGenerator) ports.ProviderRegistry {
	return ai.NewRegistry(generator, cfg.AICostMultiplier)
}

// ProvideExtractionService creates the knowledge extraction service
func ProvideExtractionService(extractor ports.FactExtractor, logger *zap.Logger) *services.ExtractionService {
	return services.NewExtractionService(extractor, logger)
}

// ProvideStrategyService creates the response strategy selector
func ProvideStrategyService(domainCfg *domainconfig.DomainConfig, logger *zap.Logger) *services.StrategyService {
	return services.NewStrategyService(domainCfg, logger)
}

// ProvideLinkerService creates the edge inference service
func ProvideLinkerService(domainCfg *domainconfig.DomainConfig, logger *zap.Logger) *services.LinkerService {
	return services.NewLinkerService(domainCfg, logger)
}

// ProvideProfileService creates the profile learning service
func ProvideProfileService(logger *zap.Logger) *services.ProfileService {
	return services.NewProfileService(logger)
}

// ProvideAccountingService creates the cycles accounting service
func ProvideAccountingService(
	accountRepo ports.AccountRepository,
	registry ports.ProviderRegistry,
	logger *zap.Logger,
) *services.AccountingService {
	return services.NewAccountingService(accountRepo, registry, logger)
}

// ProvideDashboardService creates the dashboard projection service
func ProvideDashboardService(
	graphRepo ports.GraphRepository,
	accountRepo ports.AccountRepository,
	clock ports.Clock,
	logger *zap.Logger,
) *services.DashboardService {
	return services.NewDashboardService(graphRepo, accountRepo, clock, logger)
}

// ProvideStoreMemoryHandler creates the direct memory store handler
func ProvideStoreMemoryHandler(
	graphRepo ports.GraphRepository,
	locker ports.UserLocker,
	linker *services.LinkerService,
	publisher ports.EventPublisher,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *commands.StoreMemoryHandler {
	return commands.NewStoreMemoryHandler(graphRepo, locker, linker, publisher, domainCfg, logger)
}

// ProvideForgetMemoryHandler creates the memory removal handler
func ProvideForgetMemoryHandler(
	graphRepo ports.GraphRepository,
	locker ports.UserLocker,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *commands.ForgetMemoryHandler {
	return commands.NewForgetMemoryHandler(graphRepo, locker, publisher, logger)
}

// ProvideCyclesHandler creates the account mutation handler
func ProvideCyclesHandler(
	accounting *services.AccountingService,
	publisher ports.EventPublisher,
	clock ports.Clock,
	logger *zap.Logger,
) *commands.CyclesHandler {
	return commands.NewCyclesHandler(accounting, publisher, clock, logger)
}

// ProvideDeleteUserDataHandler creates the data erasure handler
func ProvideDeleteUserDataHandler(
	graphRepo ports.GraphRepository,
	messageRepo ports.MessageRepository,
	accountRepo ports.AccountRepository,
	locker ports.UserLocker,
	publisher ports.EventPublisher,
	clock ports.Clock,
	logger *zap.Logger,
) *commands.DeleteUserDataHandler {
	return commands.NewDeleteUserDataHandler(graphRepo, messageRepo, accountRepo, locker, publisher, clock, logger)
}

// ProvideUpdateProfileHandler creates the explicit profile edit handler
func ProvideUpdateProfileHandler(
	graphRepo ports.GraphRepository,
	locker ports.UserLocker,
	publisher ports.EventPublisher,
	clock ports.Clock,
	logger *zap.Logger,
) *commands.UpdateProfileHandler {
	return commands.NewUpdateProfileHandler(graphRepo, locker, publisher, clock, logger)
}

// ProvideProviderAdminHandler creates the provider registry admin handler
func ProvideProviderAdminHandler(
	registry ports.ProviderRegistry,
	logger *zap.Logger,
) *commands.ProviderAdminHandler {
	return commands.NewProviderAdminHandler(registry, logger)
}

// ProvideRunMaintenanceHandler creates the decay and archival handler
func ProvideRunMaintenanceHandler(
	graphRepo ports.GraphRepository,
	locker ports.UserLocker,
	publisher ports.EventPublisher,
	clock ports.Clock,
	logger *zap.Logger,
) *commands.RunMaintenanceHandler {
	return commands.NewRunMaintenanceHandler(graphRepo, locker, publisher, clock, logger)
}

// ProvideSubmitTurnOrchestrator wires the full chat turn pipeline
func ProvideSubmitTurnOrchestrator(
	graphRepo ports.GraphRepository,
	messageRepo ports.MessageRepository,
	extraction *services.ExtractionService,
	strategy *services.StrategyService,
	linker *services.LinkerService,
	profiles *services.ProfileService,
	accounting *services.AccountingService,
	registry ports.ProviderRegistry,
	locker ports.UserLocker,
	publisher ports.EventPublisher,
	clock ports.Clock,
	usage *services.UsageMetrics,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *turnhandlers.SubmitTurnOrchestrator {
	return turnhandlers.NewSubmitTurnOrchestrator(
		graphRepo, messageRepo, extraction, strategy, linker, profiles,
		accounting, registry, locker, publisher, clock, usage, domainCfg, logger,
	)
}

// ProvideUsageMetrics creates the in-process engine counters
func ProvideUsageMetrics(clock ports.Clock) *services.UsageMetrics {
	return services.NewUsageMetrics(clock)
}

// zapLoggerAdapter adapts zap to the command bus logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Sugar().Infow(msg, keysAndValues...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Sugar().Errorw(msg, keysAndValues...)
}

// ProvideCommandBus registers every command handler behind the logging
// middleware. Handlers that return values are also reachable directly;
// the bus path discards results for callers that only need the effect.
func ProvideCommandBus(
	storeHandler *commands.StoreMemoryHandler,
	forgetHandler *commands.ForgetMemoryHandler,
	cyclesHandler *commands.CyclesHandler,
	deleteHandler *commands.DeleteUserDataHandler,
	maintenanceHandler *commands.RunMaintenanceHandler,
	profileHandler *commands.UpdateProfileHandler,
	providerAdmin *commands.ProviderAdminHandler,
	logger *zap.Logger,
) *bus.CommandBus {
	commandBus := bus.NewCommandBus()
	logged := bus.LoggingMiddleware(&zapLoggerAdapter{logger})

	commandBus.Register(commands.StoreMemoryCommand{}, logged(bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) error {
			_, err := storeHandler.Handle(ctx, cmd.(commands.StoreMemoryCommand))
			return err
		})))
	commandBus.Register(commands.ForgetMemoryCommand{}, logged(bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) error {
			return forgetHandler.Handle(ctx, cmd.(commands.ForgetMemoryCommand))
		})))
	commandBus.Register(commands.DepositCyclesCommand{}, logged(bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) error {
			_, err := cyclesHandler.HandleDeposit(ctx, cmd.(commands.DepositCyclesCommand))
			return err
		})))
	commandBus.Register(commands.AssignTierCommand{}, logged(bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) error {
			_, err := cyclesHandler.HandleAssignTier(ctx, cmd.(commands.AssignTierCommand))
			return err
		})))
	commandBus.Register(commands.UpdateRatesCommand{}, logged(bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) error {
			return cyclesHandler.HandleUpdateRates(ctx, cmd.(commands.UpdateRatesCommand))
		})))
	commandBus.Register(commands.DeleteUserDataCommand{}, logged(bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) error {
			return deleteHandler.Handle(ctx, cmd.(commands.DeleteUserDataCommand))
		})))
	commandBus.Register(commands.RunMaintenanceCommand{}, logged(bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) error {
			_, err := maintenanceHandler.Handle(ctx, cmd.(commands.RunMaintenanceCommand))
			return err
		})))
	commandBus.Register(commands.UpdateProfileCommand{}, logged(bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) error {
			_, err := profileHandler.Handle(ctx, cmd.(commands.UpdateProfileCommand))
			return err
		})))
	commandBus.Register(commands.SetProviderMultiplierCommand{}, logged(bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) error {
			return providerAdmin.HandleSetMultiplier(ctx, cmd.(commands.SetProviderMultiplierCommand))
		})))

	return commandBus
}

// ProvideQueryBus registers every query handler. Metrics answers are
// cached briefly since they scan whole partitions.
func ProvideQueryBus(
	graphRepo ports.GraphRepository,
	messageRepo ports.MessageRepository,
	accountRepo ports.AccountRepository,
	dashboard *services.DashboardService,
	registry ports.ProviderRegistry,
	cache ports.Cache,
	clock ports.Clock,
	usage *services.UsageMetrics,
) *querybus.QueryBus {
	queryBus := querybus.NewQueryBus()

	graphHandler := queries.NewGetKnowledgeGraphHandler(graphRepo, cache)
	queryBus.Register(queries.GetKnowledgeGraphQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return graphHandler.Handle(ctx, q.(queries.GetKnowledgeGraphQuery))
		}))

	memoriesHandler := queries.NewGetMemoriesHandler(graphRepo, clock)
	queryBus.Register(queries.GetMemoriesQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return memoriesHandler.Handle(ctx, q.(queries.GetMemoriesQuery))
		}))

	conversationsHandler := queries.NewGetConversationsHandler(messageRepo)
	queryBus.Register(queries.GetConversationsQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return conversationsHandler.Handle(ctx, q.(queries.GetConversationsQuery))
		}))

	dashboardHandler := queries.NewGetDashboardHandler(dashboard, cache)
	queryBus.Register(queries.GetDashboardQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return dashboardHandler.Handle(ctx, q.(queries.GetDashboardQuery))
		}))

	balanceHandler := queries.NewGetBalanceHandler(accountRepo)
	queryBus.Register(queries.GetBalanceQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return balanceHandler.Handle(ctx, q.(queries.GetBalanceQuery))
		}))

	profileHandler := queries.NewGetProfileHandler(graphRepo)
	queryBus.Register(queries.GetProfileQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return profileHandler.Handle(ctx, q.(queries.GetProfileQuery))
		}))

	providersHandler := queries.NewGetProvidersHandler(registry)
	queryBus.Register(queries.GetProvidersQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return providersHandler.Handle(ctx, q.(queries.GetProvidersQuery))
		}))

	metricsHandler := queries.NewGetMetricsHandler(graphRepo, accountRepo, registry, usage)
	cached := querybus.NewCachingMiddleware(cache, 30)
	queryBus.Register(queries.GetMetricsQuery{}, cached.Wrap(querybus.QueryHandlerFunc(
		func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return metricsHandler.Handle(ctx, q.(queries.GetMetricsQuery))
		})))

	return queryBus
}
