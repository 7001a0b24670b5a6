package queries

import (
	"context"
	"testing"

	"engram/application/ports"
	"engram/infrastructure/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedGenerator struct {
	name string
}

func (g namedGenerator) Generate(ctx context.Context, req ports.GenerationRequest) (*ports.GenerationResult, error) {
	return &ports.GenerationResult{Content: "ok"}, nil
}

func (g namedGenerator) Name() string { return g.name }

func TestGetProvidersHandler_Handle(t *testing.T) {
	registry := ai.NewRegistry(namedGenerator{name: "openai"}, 1.0)
	registry.Add(namedGenerator{name: "anthropic"}, 1.5)
	handler := NewGetProvidersHandler(registry)

	result, err := handler.Handle(context.Background(), GetProvidersQuery{})
	require.NoError(t, err)

	require.Len(t, result.Providers, 2)
	assert.Equal(t, "anthropic", result.Providers[0].Name)
	assert.InDelta(t, 1.5, result.Providers[0].CostMultiplier, 0.0001)
	assert.Equal(t, "openai", result.Providers[1].Name)
	assert.InDelta(t, 1.0, result.Providers[1].CostMultiplier, 0.0001)
}
