package memory

import (
	"context"
	"sync"

	"engram/application/ports"
	"engram/domain/core/entities"
	pkgerrors "engram/pkg/errors"
)

// AccountRepository stores cycles accounts and the engine-wide rate table.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*entities.Account
	rates    entities.CyclesRates
}

// NewAccountRepository creates an in-memory account repository seeded with
// the default rate table.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[string]*entities.Account),
		rates:    entities.DefaultCyclesRates(),
	}
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

// Save persists an account.
func (r *AccountRepository) Save(ctx context.Context, account *entities.Account) error {
	if account == nil {
		return pkgerrors.NewValidationError("account cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.UserID()] = account
	return nil
}

// GetByUserID retrieves a user's account.
func (r *AccountRepository) GetByUserID(ctx context.Context, userID string) (*entities.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[userID]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("account for user " + userID)
	}
	return account, nil
}

// GetOrCreate retrieves a user's account, creating an empty one when none exists.
func (r *AccountRepository) GetOrCreate(ctx context.Context, userID string) (*entities.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account, exists := r.accounts[userID]; exists {
		return account, nil
	}

	account, err := entities.NewAccount(userID)
	if err != nil {
		return nil, err
	}
	r.accounts[userID] = account
	return account, nil
}

// Delete removes a user's account.
func (r *AccountRepository) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, userID)
	return nil
}

// GetRates returns the engine-wide billing rate table.
func (r *AccountRepository) GetRates(ctx context.Context) (entities.CyclesRates, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rates, nil
}

// SaveRates replaces the engine-wide billing rate table.
func (r *AccountRepository) SaveRates(ctx context.Context, rates entities.CyclesRates) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates = rates
	return nil
}

// TotalSpent returns lifetime cycles consumed across all accounts.
func (r *AccountRepository) TotalSpent(ctx context.Context) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total uint64
	for _, account := range r.accounts {
		total += account.TotalSpent()
	}
	return total, nil
}
