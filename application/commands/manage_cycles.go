package commands

import (
	"context"
	"errors"

	"engram/application/ports"
	"engram/application/services"
	"engram/domain/core/entities"
	"engram/domain/events"
	"go.uber.org/zap"
)

// DepositCyclesCommand credits cycles to a user's account
type DepositCyclesCommand struct {
	UserID string `json:"user_id" validate:"required"`
	Amount uint64 `json:"amount" validate:"required,gt=0"`
}

// Validate validates the command
func (cmd DepositCyclesCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.Amount == 0 {
		return errors.New("amount must be positive")
	}
	return nil
}

// AssignTierCommand sets a user's subscription tier
type AssignTierCommand struct {
	UserID string `json:"user_id" validate:"required"`
	Tier   string `json:"tier" validate:"required,oneof=basic premium enterprise"`
}

// Validate validates the command
func (cmd AssignTierCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	switch entities.TierKind(cmd.Tier) {
	case entities.TierBasic, entities.TierPremium, entities.TierEnterprise:
		return nil
	}
	return errors.New("unknown tier: " + cmd.Tier)
}

// UpdateRatesCommand replaces the engine-wide billing rate table
type UpdateRatesCommand struct {
	QueryBaseCost         uint64  `json:"query_base_cost" validate:"required"`
	StorageCostPerKB      uint64  `json:"storage_cost_per_kb" validate:"required"`
	ComputationMultiplier float32 `json:"computation_multiplier" validate:"gt=0"`
}

// Validate validates the command
func (cmd UpdateRatesCommand) Validate() error {
	if cmd.ComputationMultiplier <= 0 {
		return errors.New("computation multiplier must be positive")
	}
	return nil
}

// tierCatalog maps tier names to their grants
var tierCatalog = map[entities.TierKind]entities.SubscriptionTier{
	entities.TierBasic: {
		Kind:           entities.TierBasic,
		CyclesIncluded: 100_000,
	},
	entities.TierPremium: {
		Kind:           entities.TierPremium,
		CyclesIncluded: 1_000_000,
		PriorityAccess: true,
	},
	entities.TierEnterprise: {
		Kind:            entities.TierEnterprise,
		CyclesIncluded:  10_000_000,
		PriorityAccess:  true,
		PrivateModels:   true,
		CustomEndpoints: true,
	},
}

// CyclesHandler handles all account-mutating commands
type CyclesHandler struct {
	accounting *services.AccountingService
	eventBus   ports.EventPublisher
	clock      ports.Clock
	logger     *zap.Logger
}

// NewCyclesHandler creates a new handler instance
func NewCyclesHandler(
	accounting *services.AccountingService,
	eventBus ports.EventPublisher,
	clock ports.Clock,
	logger *zap.Logger,
) *CyclesHandler {
	return &CyclesHandler{
		accounting: accounting,
		eventBus:   eventBus,
		clock:      clock,
		logger:     logger,
	}
}

// HandleDeposit executes a deposit command
func (h *CyclesHandler) HandleDeposit(ctx context.Context, cmd DepositCyclesCommand) (*entities.Account, error) {
	account, err := h.accounting.Deposit(ctx, cmd.UserID, cmd.Amount)
	if err != nil {
		return nil, err
	}

	event := events.NewCyclesDeposited(cmd.UserID, cmd.Amount, account.Balance(), h.clock.Now())
	if err := h.eventBus.Publish(ctx, event); err != nil {
		h.logger.Warn("failed to publish deposit event", zap.Error(err))
	}
	return account, nil
}

// HandleAssignTier executes a tier assignment command
func (h *CyclesHandler) HandleAssignTier(ctx context.Context, cmd AssignTierCommand) (*entities.Account, error) {
	tier, ok := tierCatalog[entities.TierKind(cmd.Tier)]
	if !ok {
		return nil, errors.New("unknown tier: " + cmd.Tier)
	}
	return h.accounting.AssignTier(ctx, cmd.UserID, tier)
}

// HandleUpdateRates executes a rate table update
func (h *CyclesHandler) HandleUpdateRates(ctx context.Context, cmd UpdateRatesCommand) error {
	return h.accounting.UpdateRates(ctx, entities.CyclesRates{
		QueryBaseCost:         cmd.QueryBaseCost,
		StorageCostPerKB:      cmd.StorageCostPerKB,
		ComputationMultiplier: cmd.ComputationMultiplier,
	})
}
