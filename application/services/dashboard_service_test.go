package services

import (
	"context"
	"testing"
	"time"

	"engram/domain/config"
	"engram/domain/core/entities"
	memorystore "engram/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type frozenClock struct {
	now time.Time
}

func (c frozenClock) Now() time.Time { return c.now }

func newDashboardFixture() (*DashboardService, *memorystore.GraphRepository, *memorystore.AccountRepository) {
	graphs := memorystore.NewGraphRepository()
	accounts := memorystore.NewAccountRepository()
	clock := frozenClock{now: time.Now().Add(72 * time.Hour)}
	return NewDashboardService(graphs, accounts, clock, zap.NewNop()), graphs, accounts
}

func TestDashboardService_Project_NewUserGetsZeroedView(t *testing.T) {
	svc, _, _ := newDashboardFixture()

	view, err := svc.Project(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 0, view.TotalMemories)
	assert.Equal(t, 0, view.TotalEdges)
	assert.Equal(t, 0, view.ActiveThreads)
	assert.Equal(t, 0, view.InteractionCount)
	assert.Zero(t, view.MemoryStrength)
	assert.Zero(t, view.LearningProgress)
	assert.Equal(t, 0, view.DaysSinceFirstInteraction)
	assert.Equal(t, uint64(0), view.CyclesBalance)
	assert.Equal(t, uint64(0), view.CyclesSpent)
	assert.NotNil(t, view.MemoriesByType)
	assert.Empty(t, view.RecentMemories)
	assert.Empty(t, view.TopTopics)
}

func TestDashboardService_Project_CountsGraphContents(t *testing.T) {
	svc, graphs, accounts := newDashboardFixture()
	ctx := context.Background()
	cfg := config.DefaultDomainConfig()

	graph, err := graphs.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)

	fact, err := entities.NewMemoryNode("user-1", entities.NodeTypeFact, "lives in Lisbon", cfg)
	require.NoError(t, err)
	pref, err := entities.NewMemoryNode("user-1", entities.NodeTypePreference, "prefers tea over coffee", cfg)
	require.NoError(t, err)
	require.NoError(t, graph.AddNode(fact))
	require.NoError(t, graph.AddNode(pref))

	graph.History().InteractionCount = 7
	graph.History().RecordTopic("travel")
	graph.History().RecordTopic("travel")
	graph.History().RecordTopic("coffee")

	account, err := accounts.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	account.Deposit(5000)
	require.NoError(t, account.Charge(1200))
	require.NoError(t, accounts.Save(ctx, account))

	view, err := svc.Project(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 2, view.TotalMemories)
	assert.Equal(t, 1, view.MemoriesByType[string(entities.NodeTypeFact)])
	assert.Equal(t, 1, view.MemoriesByType[string(entities.NodeTypePreference)])
	assert.Equal(t, 7, view.InteractionCount)
	assert.Equal(t, uint64(3800), view.CyclesBalance)
	assert.Equal(t, uint64(1200), view.CyclesSpent)

	require.NotEmpty(t, view.TopTopics)
	assert.Equal(t, "travel", view.TopTopics[0].Topic)
	assert.Equal(t, 2, view.TopTopics[0].Count)

	require.Len(t, view.RecentMemories, 2)
}

func TestDashboardService_Project_LearningSummary(t *testing.T) {
	svc, graphs, _ := newDashboardFixture()
	ctx := context.Background()
	cfg := config.DefaultDomainConfig()

	graph, err := graphs.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)

	fact, err := entities.NewMemoryNode("user-1", entities.NodeTypeFact, "lives in Lisbon", cfg)
	require.NoError(t, err)
	pref, err := entities.NewMemoryNode("user-1", entities.NodeTypePreference, "prefers tea", cfg)
	require.NoError(t, err)
	require.NoError(t, graph.AddNode(fact))
	require.NoError(t, graph.AddNode(pref))
	fact.Boost(0.2, cfg)

	graph.History().InteractionCount = 10

	view, err := svc.Project(ctx, "user-1")
	require.NoError(t, err)

	// Mean of the two importance scores
	assert.InDelta(t, (fact.Importance()+pref.Importance())/2, view.MemoryStrength, 1e-9)

	// The fixture clock sits three days past node creation
	assert.Equal(t, 3, view.DaysSinceFirstInteraction)

	assert.Greater(t, view.LearningProgress, 0.0)
	assert.Less(t, view.LearningProgress, 1.0)

	// More interactions never lower the progress score
	before := view.LearningProgress
	graph.History().InteractionCount = 50
	view, err = svc.Project(ctx, "user-1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, view.LearningProgress, before)
}
