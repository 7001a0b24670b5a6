package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"engram/application/ports"
	"engram/domain/core/entities"
	memorystore "engram/infrastructure/persistence/memory"
	pkgerrors "engram/pkg/errors"
)

type stubRegistry struct {
	multipliers map[string]float32
}

func (r *stubRegistry) Generator(name string) (ports.TextGenerator, error) { return nil, nil }
func (r *stubRegistry) Multiplier(name string) float32                     { return r.multipliers[name] }
func (r *stubRegistry) SetMultiplier(name string, m float32)               { r.multipliers[name] = m }
func (r *stubRegistry) Names() []string                                    { return nil }

func newAccountingFixture() (*AccountingService, *memorystore.AccountRepository) {
	repo := memorystore.NewAccountRepository()
	registry := &stubRegistry{multipliers: map[string]float32{"openai": 1.0, "premium": 2.0}}
	return NewAccountingService(repo, registry, zap.NewNop()), repo
}

func TestAccountingService_Quote(t *testing.T) {
	svc, repo := newAccountingFixture()
	ctx := context.Background()

	t.Run("base cost only for zero bytes", func(t *testing.T) {
		cost, err := svc.Quote(ctx, "openai", 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(1000), cost)
	})

	t.Run("storage rounds up to whole kilobytes", func(t *testing.T) {
		cost, err := svc.Quote(ctx, "openai", 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(1000+100), cost)

		cost, err = svc.Quote(ctx, "openai", 2048)
		require.NoError(t, err)
		assert.Equal(t, uint64(1000+200), cost)
	})

	t.Run("provider multiplier scales storage", func(t *testing.T) {
		cost, err := svc.Quote(ctx, "premium", 1024)
		require.NoError(t, err)
		assert.Equal(t, uint64(1000+200), cost)
	})

	t.Run("unknown provider falls back to multiplier 1", func(t *testing.T) {
		cost, err := svc.Quote(ctx, "nobody", 1024)
		require.NoError(t, err)
		assert.Equal(t, uint64(1000+100), cost)
	})

	t.Run("updated rates apply to new quotes", func(t *testing.T) {
		require.NoError(t, repo.SaveRates(ctx, entities.CyclesRates{
			QueryBaseCost:         500,
			StorageCostPerKB:      50,
			ComputationMultiplier: 2.0,
		}))
		cost, err := svc.Quote(ctx, "openai", 1024)
		require.NoError(t, err)
		assert.Equal(t, uint64(500+100), cost)
	})
}

func TestAccountingService_PrecheckAndCharge(t *testing.T) {
	svc, _ := newAccountingFixture()
	ctx := context.Background()

	err := svc.Precheck(ctx, "user123", 100)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInsufficientResources(err))

	_, err = svc.Deposit(ctx, "user123", 500)
	require.NoError(t, err)

	require.NoError(t, svc.Precheck(ctx, "user123", 500))

	// precheck consumes nothing
	account, err := svc.Charge(ctx, "user123", 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), account.Balance())
	assert.Equal(t, uint64(500), account.TotalSpent())

	_, err = svc.Charge(ctx, "user123", 1)
	assert.True(t, pkgerrors.IsInsufficientResources(err))
}

func TestAccountingService_ChargeConsumesIncludedFirst(t *testing.T) {
	svc, _ := newAccountingFixture()
	ctx := context.Background()

	_, err := svc.Deposit(ctx, "user123", 1000)
	require.NoError(t, err)
	_, err = svc.AssignTier(ctx, "user123", entities.SubscriptionTier{
		Kind:           entities.TierPremium,
		CyclesIncluded: 400,
	})
	require.NoError(t, err)

	account, err := svc.Charge(ctx, "user123", 600)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), account.IncludedRemaining())
	assert.Equal(t, uint64(800), account.Balance())
}

func TestAccountingService_UpdateRates(t *testing.T) {
	svc, repo := newAccountingFixture()
	ctx := context.Background()

	// a non-positive multiplier is normalized to 1
	require.NoError(t, svc.UpdateRates(ctx, entities.CyclesRates{
		QueryBaseCost:    100,
		StorageCostPerKB: 10,
	}))

	rates, err := repo.GetRates(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), rates.ComputationMultiplier)
}
