package queries

import (
	"context"
	"errors"

	"engram/application/ports"
)

// GetBalanceQuery retrieves a user's cycles account state
type GetBalanceQuery struct {
	UserID string `json:"user_id"`
}

// Validate validates the query
func (q GetBalanceQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// GetBalanceResult represents the query result
type GetBalanceResult struct {
	Balance           uint64 `json:"balance"`
	IncludedRemaining uint64 `json:"included_remaining"`
	TotalAvailable    uint64 `json:"total_available"`
	TotalSpent        uint64 `json:"total_spent"`
	Tier              string `json:"tier,omitempty"`
}

// GetBalanceHandler handles the GetBalanceQuery
type GetBalanceHandler struct {
	accountRepo ports.AccountRepository
}

// NewGetBalanceHandler creates a new handler instance
func NewGetBalanceHandler(accountRepo ports.AccountRepository) *GetBalanceHandler {
	return &GetBalanceHandler{accountRepo: accountRepo}
}

// Handle executes the get balance query
func (h *GetBalanceHandler) Handle(ctx context.Context, query GetBalanceQuery) (*GetBalanceResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	account, err := h.accountRepo.GetOrCreate(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	result := &GetBalanceResult{
		Balance:           account.Balance(),
		IncludedRemaining: account.IncludedRemaining(),
		TotalAvailable:    account.Balance() + account.IncludedRemaining(),
		TotalSpent:        account.TotalSpent(),
	}
	if tier := account.Tier(); tier != nil {
		result.Tier = string(tier.Kind)
	}
	return result, nil
}
