package commands

import (
	"context"
	"testing"

	"engram/application/ports"
	"engram/infrastructure/ai"
	pkgerrors "engram/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticGenerator struct {
	name string
}

func (g staticGenerator) Generate(ctx context.Context, req ports.GenerationRequest) (*ports.GenerationResult, error) {
	return &ports.GenerationResult{Content: "ok"}, nil
}

func (g staticGenerator) Name() string { return g.name }

func TestProviderAdminHandler_HandleSetMultiplier(t *testing.T) {
	registry := ai.NewRegistry(staticGenerator{name: "openai"}, 1.0)
	handler := NewProviderAdminHandler(registry, zap.NewNop())

	err := handler.HandleSetMultiplier(context.Background(), SetProviderMultiplierCommand{
		Provider:   "openai",
		Multiplier: 2.5,
	})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, registry.Multiplier("openai"), 0.0001)
}

func TestProviderAdminHandler_HandleSetMultiplier_UnknownProvider(t *testing.T) {
	registry := ai.NewRegistry(staticGenerator{name: "openai"}, 1.0)
	handler := NewProviderAdminHandler(registry, zap.NewNop())

	err := handler.HandleSetMultiplier(context.Background(), SetProviderMultiplierCommand{
		Provider:   "anthropic",
		Multiplier: 2.0,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.InDelta(t, 1.0, registry.Multiplier("anthropic"), 0.0001)
}

func TestSetProviderMultiplierCommand_Validate(t *testing.T) {
	assert.Error(t, SetProviderMultiplierCommand{Multiplier: 1.5}.Validate())
	assert.Error(t, SetProviderMultiplierCommand{Provider: "openai"}.Validate())
	assert.NoError(t, SetProviderMultiplierCommand{Provider: "openai", Multiplier: 1.5}.Validate())
}
