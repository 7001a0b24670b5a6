package rest

import (
	"net/http"

	"engram/application/commands"
	"engram/application/commands/bus"
	turnhandlers "engram/application/commands/handlers"
	querybus "engram/application/queries/bus"
	"engram/infrastructure/config"
	"engram/interfaces/http/rest/handlers"
	"engram/interfaces/http/rest/middleware"
	"engram/pkg/auth"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus         *bus.CommandBus
	queryBus           *querybus.QueryBus
	orchestrator       *turnhandlers.SubmitTurnOrchestrator
	storeHandler       *commands.StoreMemoryHandler
	maintenanceHandler *commands.RunMaintenanceHandler
	userLimiter        auth.RateLimiter
	cfg                *config.Config
	logger             *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	orchestrator *turnhandlers.SubmitTurnOrchestrator,
	storeHandler *commands.StoreMemoryHandler,
	maintenanceHandler *commands.RunMaintenanceHandler,
	userLimiter auth.RateLimiter,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus:         commandBus,
		queryBus:           queryBus,
		orchestrator:       orchestrator,
		storeHandler:       storeHandler,
		maintenanceHandler: maintenanceHandler,
		userLimiter:        userLimiter,
		cfg:                cfg,
		logger:             logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.engram.dev"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.cfg, rt.userLimiter, rt.logger))

		chatHandler := handlers.NewChatHandler(rt.orchestrator, rt.logger)
		r.Post("/chat", chatHandler.SubmitTurn)

		memoryHandler := handlers.NewMemoryHandler(rt.storeHandler, rt.commandBus, rt.queryBus, rt.logger)
		r.Route("/memories", func(r chi.Router) {
			r.Post("/", memoryHandler.StoreMemory)
			r.Get("/", memoryHandler.SearchMemories)
			r.Delete("/{nodeID}", memoryHandler.ForgetMemory)
		})

		graphHandler := handlers.NewGraphHandler(rt.commandBus, rt.queryBus, rt.logger)
		r.Get("/graph", graphHandler.GetGraph)
		r.Get("/dashboard", graphHandler.GetDashboard)
		r.Get("/profile", graphHandler.GetProfile)
		r.Patch("/profile", graphHandler.UpdateProfile)

		providerHandler := handlers.NewProviderHandler(rt.queryBus, rt.logger)
		r.Get("/providers", providerHandler.ListProviders)

		conversationHandler := handlers.NewConversationHandler(rt.queryBus, rt.logger)
		r.Get("/conversations", conversationHandler.GetConversations)

		accountHandler := handlers.NewAccountHandler(rt.commandBus, rt.queryBus, rt.logger)
		r.Route("/account", func(r chi.Router) {
			r.Get("/balance", accountHandler.GetBalance)
			r.Post("/deposit", accountHandler.Deposit)
			r.Delete("/data", accountHandler.DeleteUserData)
		})

		adminHandler := handlers.NewAdminHandler(rt.maintenanceHandler, rt.commandBus, rt.queryBus, rt.logger)
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))
			r.Put("/rates", adminHandler.UpdateRates)
			r.Put("/providers/{provider}/multiplier", adminHandler.SetProviderMultiplier)
			r.Put("/users/{userID}/tier", adminHandler.AssignTier)
			r.Post("/users/{userID}/maintenance", adminHandler.RunMaintenance)
			r.Get("/metrics", adminHandler.GetMetrics)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
