package commands

import (
	"context"
	"errors"

	"engram/application/ports"
	"go.uber.org/zap"
)

// SetProviderMultiplierCommand adjusts the billing multiplier applied
// to one provider's storage charges
type SetProviderMultiplierCommand struct {
	Provider   string  `json:"provider" validate:"required"`
	Multiplier float32 `json:"multiplier" validate:"required,gt=0"`
}

// Validate validates the command
func (cmd SetProviderMultiplierCommand) Validate() error {
	if cmd.Provider == "" {
		return errors.New("provider is required")
	}
	if cmd.Multiplier <= 0 {
		return errors.New("multiplier must be positive")
	}
	return nil
}

// ProviderAdminHandler handles provider registry administration
type ProviderAdminHandler struct {
	registry ports.ProviderRegistry
	logger   *zap.Logger
}

// NewProviderAdminHandler creates a new handler instance
func NewProviderAdminHandler(registry ports.ProviderRegistry, logger *zap.Logger) *ProviderAdminHandler {
	return &ProviderAdminHandler{
		registry: registry,
		logger:   logger,
	}
}

// HandleSetMultiplier executes a multiplier update. The provider must
// already be registered; multipliers for unknown providers would
// silently never apply.
func (h *ProviderAdminHandler) HandleSetMultiplier(ctx context.Context, cmd SetProviderMultiplierCommand) error {
	if _, err := h.registry.Generator(cmd.Provider); err != nil {
		return err
	}
	h.registry.SetMultiplier(cmd.Provider, cmd.Multiplier)

	h.logger.Info("provider multiplier updated",
		zap.String("provider", cmd.Provider),
		zap.Float32("multiplier", cmd.Multiplier),
	)
	return nil
}
