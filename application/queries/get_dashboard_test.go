package queries

import (
	"context"
	"testing"

	"engram/application/services"
	memorystore "engram/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetDashboardHandler_Handle_NewUser(t *testing.T) {
	dashboard := services.NewDashboardService(
		memorystore.NewGraphRepository(),
		memorystore.NewAccountRepository(),
		memorystore.NewSystemClock(),
		zap.NewNop(),
	)
	handler := NewGetDashboardHandler(dashboard, memorystore.NewCache())

	view, err := handler.Handle(context.Background(), GetDashboardQuery{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, 0, view.TotalMemories)
	assert.Equal(t, uint64(0), view.CyclesBalance)
	assert.Empty(t, view.RecentMemories)
}

func TestGetDashboardHandler_Handle_ServesSecondReadFromCache(t *testing.T) {
	graphs := memorystore.NewGraphRepository()
	dashboard := services.NewDashboardService(graphs, memorystore.NewAccountRepository(), memorystore.NewSystemClock(), zap.NewNop())
	handler := NewGetDashboardHandler(dashboard, memorystore.NewCache())
	ctx := context.Background()

	first, err := handler.Handle(ctx, GetDashboardQuery{UserID: "user-1"})
	require.NoError(t, err)

	second, err := handler.Handle(ctx, GetDashboardQuery{UserID: "user-1"})
	require.NoError(t, err)

	// The cached projection is returned as-is
	assert.Same(t, first, second)
}

func TestGetDashboardHandler_Handle_RequiresUserID(t *testing.T) {
	dashboard := services.NewDashboardService(
		memorystore.NewGraphRepository(),
		memorystore.NewAccountRepository(),
		memorystore.NewSystemClock(),
		zap.NewNop(),
	)
	handler := NewGetDashboardHandler(dashboard, memorystore.NewCache())

	_, err := handler.Handle(context.Background(), GetDashboardQuery{})
	assert.Error(t, err)
}
