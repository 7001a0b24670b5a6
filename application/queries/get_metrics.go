package queries

import (
	"context"
	"time"

	"engram/application/ports"
	"engram/application/services"
)

// GetMetricsQuery retrieves engine-wide operational metrics. Admin only.
type GetMetricsQuery struct{}

// Validate validates the query
func (q GetMetricsQuery) Validate() error { return nil }

// GetMetricsResult represents the query result
type GetMetricsResult struct {
	TotalUsers        int       `json:"total_users"`
	TotalQueries      uint64    `json:"total_queries"`
	TotalCyclesBurned uint64    `json:"total_cycles_burned"`
	StorageUsedBytes  uint64    `json:"storage_used_bytes"`
	UptimeStart       time.Time `json:"uptime_start"`
	Providers         []string  `json:"providers"`
}

// GetMetricsHandler handles the GetMetricsQuery
type GetMetricsHandler struct {
	graphRepo   ports.GraphRepository
	accountRepo ports.AccountRepository
	registry    ports.ProviderRegistry
	usage       *services.UsageMetrics
}

// NewGetMetricsHandler creates a new handler instance
func NewGetMetricsHandler(
	graphRepo ports.GraphRepository,
	accountRepo ports.AccountRepository,
	registry ports.ProviderRegistry,
	usage *services.UsageMetrics,
) *GetMetricsHandler {
	return &GetMetricsHandler{
		graphRepo:   graphRepo,
		accountRepo: accountRepo,
		registry:    registry,
		usage:       usage,
	}
}

// Handle executes the get metrics query
func (h *GetMetricsHandler) Handle(ctx context.Context, query GetMetricsQuery) (*GetMetricsResult, error) {
	users, err := h.graphRepo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	burned, err := h.accountRepo.TotalSpent(ctx)
	if err != nil {
		return nil, err
	}
	queries, storageBytes, uptimeStart := h.usage.Snapshot()

	return &GetMetricsResult{
		TotalUsers:        users,
		TotalQueries:      queries,
		TotalCyclesBurned: burned,
		StorageUsedBytes:  storageBytes,
		UptimeStart:       uptimeStart,
		Providers:         h.registry.Names(),
	}, nil
}
