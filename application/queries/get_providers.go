package queries

import (
	"context"

	"engram/application/ports"
)

// GetProvidersQuery lists the generation providers available for the
// submit-turn provider parameter
type GetProvidersQuery struct{}

// Validate validates the query
func (q GetProvidersQuery) Validate() error { return nil }

// ProviderInfo describes one registered provider
type ProviderInfo struct {
	Name           string  `json:"name"`
	CostMultiplier float32 `json:"cost_multiplier"`
}

// GetProvidersResult represents the query result
type GetProvidersResult struct {
	Providers []ProviderInfo `json:"providers"`
}

// GetProvidersHandler handles the GetProvidersQuery
type GetProvidersHandler struct {
	registry ports.ProviderRegistry
}

// NewGetProvidersHandler creates a new handler instance
func NewGetProvidersHandler(registry ports.ProviderRegistry) *GetProvidersHandler {
	return &GetProvidersHandler{registry: registry}
}

// Handle executes the get providers query
func (h *GetProvidersHandler) Handle(ctx context.Context, query GetProvidersQuery) (*GetProvidersResult, error) {
	names := h.registry.Names()
	providers := make([]ProviderInfo, 0, len(names))
	for _, name := range names {
		providers = append(providers, ProviderInfo{
			Name:           name,
			CostMultiplier: h.registry.Multiplier(name),
		})
	}
	return &GetProvidersResult{Providers: providers}, nil
}
