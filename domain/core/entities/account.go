package entities

import (
	"time"

	pkgerrors "engram/pkg/errors"
)

// TierKind names a subscription tier variant
type TierKind string

const (
	TierBasic      TierKind = "basic"
	TierPremium    TierKind = "premium"
	TierEnterprise TierKind = "enterprise"
)

// SubscriptionTier grants included cycles and tier-specific capabilities
type SubscriptionTier struct {
	Kind            TierKind `json:"kind"`
	CyclesIncluded  uint64   `json:"cycles_included"`
	PriorityAccess  bool     `json:"priority_access,omitempty"`
	PrivateModels   bool     `json:"private_models,omitempty"`
	CustomEndpoints bool     `json:"custom_endpoints,omitempty"`
}

// CyclesRates is the billing rate table. Administration of the table is
// external; the accountant honors whatever table is supplied.
type CyclesRates struct {
	QueryBaseCost         uint64  `json:"query_base_cost"`
	StorageCostPerKB      uint64  `json:"storage_cost_per_kb"`
	ComputationMultiplier float32 `json:"computation_multiplier"`
}

// DefaultCyclesRates returns the rate table used until an admin sets one
func DefaultCyclesRates() CyclesRates {
	return CyclesRates{
		QueryBaseCost:         1000,
		StorageCostPerKB:      100,
		ComputationMultiplier: 1.0,
	}
}

// Account tracks one user's metered resources
type Account struct {
	userID            string
	balance           uint64
	includedRemaining uint64
	tier              *SubscriptionTier
	totalSpent        uint64
	createdAt         time.Time
}

// NewAccount creates an account with a zero balance
func NewAccount(userID string) (*Account, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	return &Account{
		userID:    userID,
		createdAt: time.Now(),
	}, nil
}

// ReconstructAccount recreates an account from stored data
func ReconstructAccount(userID string, balance, includedRemaining, totalSpent uint64, tier *SubscriptionTier, createdAt time.Time) *Account {
	return &Account{
		userID:            userID,
		balance:           balance,
		includedRemaining: includedRemaining,
		tier:              tier,
		totalSpent:        totalSpent,
		createdAt:         createdAt,
	}
}

// UserID returns the account owner
func (a *Account) UserID() string { return a.userID }

// Balance returns the deposited cycles balance
func (a *Account) Balance() uint64 { return a.balance }

// IncludedRemaining returns unconsumed tier-included cycles
func (a *Account) IncludedRemaining() uint64 { return a.includedRemaining }

// Tier returns the subscription tier, nil when none assigned
func (a *Account) Tier() *SubscriptionTier {
	if a.tier == nil {
		return nil
	}
	t := *a.tier
	return &t
}

// TotalSpent returns lifetime cycles consumed
func (a *Account) TotalSpent() uint64 { return a.totalSpent }

// CreatedAt returns when the account was created
func (a *Account) CreatedAt() time.Time { return a.createdAt }

// Deposit credits cycles to the balance
func (a *Account) Deposit(amount uint64) {
	a.balance += amount
}

// AssignTier sets the subscription tier and grants its included cycles
func (a *Account) AssignTier(tier SubscriptionTier) {
	a.tier = &tier
	a.includedRemaining += tier.CyclesIncluded
}

// CanAfford reports whether a charge of cost would succeed
func (a *Account) CanAfford(cost uint64) bool {
	return a.includedRemaining+a.balance >= cost
}

// Charge debits cost from the account, consuming tier-included cycles
// before the deposited balance. A charge that cannot be covered fails
// without consuming anything.
func (a *Account) Charge(cost uint64) error {
	if !a.CanAfford(cost) {
		return pkgerrors.NewInsufficientResourcesError(cost, a.includedRemaining+a.balance)
	}

	fromIncluded := cost
	if fromIncluded > a.includedRemaining {
		fromIncluded = a.includedRemaining
	}
	a.includedRemaining -= fromIncluded
	a.balance -= cost - fromIncluded
	a.totalSpent += cost
	return nil
}
