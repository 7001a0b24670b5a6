package services

import (
	"context"
	"fmt"

	"engram/application/ports"
	"engram/domain/core/entities"
	pkgerrors "engram/pkg/errors"
	"go.uber.org/zap"
)

// AccountingService meters cycles for turn processing. A turn is quoted
// before any side effects happen and charged only once the turn commits,
// so a turn either completes fully paid or leaves no trace.
type AccountingService struct {
	accountRepo ports.AccountRepository
	registry    ports.ProviderRegistry
	logger      *zap.Logger
}

// NewAccountingService creates an accounting service
func NewAccountingService(
	accountRepo ports.AccountRepository,
	registry ports.ProviderRegistry,
	logger *zap.Logger,
) *AccountingService {
	return &AccountingService{
		accountRepo: accountRepo,
		registry:    registry,
		logger:      logger,
	}
}

// Quote computes the cycles cost of a turn that will write newBytes of
// fresh data using the named provider
func (s *AccountingService) Quote(ctx context.Context, provider string, newBytes int) (uint64, error) {
	rates, err := s.accountRepo.GetRates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load rates: %w", err)
	}

	kb := uint64(newBytes+1023) / 1024
	storage := float64(rates.StorageCostPerKB) * float64(kb) * float64(rates.ComputationMultiplier)

	multiplier := float64(1)
	if s.registry != nil {
		multiplier = float64(s.registry.Multiplier(provider))
		if multiplier <= 0 {
			multiplier = 1
		}
	}

	return rates.QueryBaseCost + uint64(storage*multiplier), nil
}

// Precheck verifies the user can afford cost without consuming anything
func (s *AccountingService) Precheck(ctx context.Context, userID string, cost uint64) error {
	account, err := s.accountRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if !account.CanAfford(cost) {
		return pkgerrors.NewInsufficientResourcesError(cost, account.IncludedRemaining()+account.Balance())
	}
	return nil
}

// Charge debits cost from the user's account and persists it. Included
// tier cycles are consumed before the deposited balance.
func (s *AccountingService) Charge(ctx context.Context, userID string, cost uint64) (*entities.Account, error) {
	account, err := s.accountRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if err := account.Charge(cost); err != nil {
		return nil, err
	}
	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.logger.Debug("cycles charged",
		zap.String("userID", userID),
		zap.Uint64("cost", cost),
		zap.Uint64("balance", account.Balance()),
		zap.Uint64("includedRemaining", account.IncludedRemaining()),
	)
	return account, nil
}

// Deposit credits cycles to the user's account
func (s *AccountingService) Deposit(ctx context.Context, userID string, amount uint64) (*entities.Account, error) {
	account, err := s.accountRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	account.Deposit(amount)
	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.logger.Info("cycles deposited",
		zap.String("userID", userID),
		zap.Uint64("amount", amount),
		zap.Uint64("balance", account.Balance()),
	)
	return account, nil
}

// AssignTier sets a user's subscription tier, granting its included cycles
func (s *AccountingService) AssignTier(ctx context.Context, userID string, tier entities.SubscriptionTier) (*entities.Account, error) {
	account, err := s.accountRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	account.AssignTier(tier)
	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}
	return account, nil
}

// UpdateRates replaces the engine-wide billing rate table
func (s *AccountingService) UpdateRates(ctx context.Context, rates entities.CyclesRates) error {
	if rates.ComputationMultiplier <= 0 {
		rates.ComputationMultiplier = 1.0
	}
	if err := s.accountRepo.SaveRates(ctx, rates); err != nil {
		return fmt.Errorf("failed to save rates: %w", err)
	}
	s.logger.Info("cycles rates updated",
		zap.Uint64("queryBaseCost", rates.QueryBaseCost),
		zap.Uint64("storageCostPerKB", rates.StorageCostPerKB),
		zap.Float32("computationMultiplier", rates.ComputationMultiplier),
	)
	return nil
}
