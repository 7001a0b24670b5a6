package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"engram/application/commands"
	"engram/application/ports"
	"engram/application/services"
	"engram/domain/config"
	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
	memorystore "engram/infrastructure/persistence/memory"
	pkgerrors "engram/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	name    string
	reply   string
	err     error
	lastReq *ports.GenerationRequest
}

func (g *stubGenerator) Generate(ctx context.Context, req ports.GenerationRequest) (*ports.GenerationResult, error) {
	g.lastReq = &req
	if g.err != nil {
		return nil, g.err
	}
	return &ports.GenerationResult{Content: g.reply, PromptTokens: 40, CompletionTokens: 20}, nil
}

func (g *stubGenerator) Name() string { return g.name }

type stubRegistry struct {
	generator   *stubGenerator
	multipliers map[string]float32
}

func (r *stubRegistry) Generator(name string) (ports.TextGenerator, error) {
	return r.generator, nil
}

func (r *stubRegistry) Multiplier(name string) float32 {
	if m, ok := r.multipliers[name]; ok {
		return m
	}
	return 1
}

func (r *stubRegistry) SetMultiplier(name string, multiplier float32) {
	r.multipliers[name] = multiplier
}

func (r *stubRegistry) Names() []string { return []string{r.generator.Name()} }

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type turnFixture struct {
	orchestrator *SubmitTurnOrchestrator
	accounting   *services.AccountingService
	accounts     *memorystore.AccountRepository
	graphs       *memorystore.GraphRepository
	messages     *memorystore.MessageRepository
	generator    *stubGenerator
	usage        *services.UsageMetrics
	cfg          *config.DomainConfig
}

func newTurnFixture() *turnFixture {
	logger := zap.NewNop()
	cfg := config.DefaultDomainConfig()
	graphs := memorystore.NewGraphRepository()
	messages := memorystore.NewMessageRepository()
	accounts := memorystore.NewAccountRepository()
	generator := &stubGenerator{name: "openai", reply: "Noted, thanks for telling me."}
	registry := &stubRegistry{generator: generator, multipliers: map[string]float32{"openai": 1.0}}
	accounting := services.NewAccountingService(accounts, registry, logger)
	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	usage := services.NewUsageMetrics(clock)

	orchestrator := NewSubmitTurnOrchestrator(
		graphs,
		messages,
		services.NewExtractionService(nil, logger),
		services.NewStrategyService(cfg, logger),
		services.NewLinkerService(cfg, logger),
		services.NewProfileService(logger),
		accounting,
		registry,
		memorystore.NewUserLocker(),
		memorystore.NewEventBus(logger),
		clock,
		usage,
		cfg,
		logger,
	)

	return &turnFixture{
		orchestrator: orchestrator,
		accounting:   accounting,
		accounts:     accounts,
		graphs:       graphs,
		messages:     messages,
		generator:    generator,
		usage:        usage,
		cfg:          cfg,
	}
}

func TestSubmitTurnOrchestrator_Handle_Success(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	_, err := fx.accounting.Deposit(ctx, "user-1", 100000)
	require.NoError(t, err)

	result, err := fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:   "user-1",
		Message:  "My name is Alice. I work at Initech.",
		Provider: "openai",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, fx.generator.reply, result.Reply)
	assert.Equal(t, 2, result.FactsStored)
	assert.Equal(t, string(entities.SentimentNeutral), result.Sentiment)

	// Nothing is in the graph yet, so the assistant asks before answering
	assert.Equal(t, entities.StrategyInquiryFirst, result.Strategy.Kind)

	// Base query cost plus one KB of new storage
	assert.Equal(t, uint64(1100), result.CyclesCharged)
	account, err := fx.accounts.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(100000-1100), account.Balance())
	assert.Equal(t, uint64(1100), account.TotalSpent())

	graph, err := fx.graphs.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, graph.NodeCount())

	count, err := fx.messages.CountByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSubmitTurnOrchestrator_Handle_InsufficientCycles(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	_, err := fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:  "user-1",
		Message: "My name is Alice.",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInsufficientResources(err))

	// The precheck ran before any mutation, so nothing was learned or logged
	graph, err := fx.graphs.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, graph.NodeCount())

	count, err := fx.messages.CountByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSubmitTurnOrchestrator_Handle_ConfidentialSuppressesLearning(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	_, err := fx.accounting.Deposit(ctx, "user-1", 100000)
	require.NoError(t, err)

	result, err := fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:       "user-1",
		Message:      "I live in Berlin.",
		Confidential: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.FactsStored)

	graph, err := fx.graphs.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, graph.NodeCount())

	count, err := fx.messages.CountByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Confidential turns still cost cycles
	assert.Equal(t, uint64(1100), result.CyclesCharged)
}

func TestSubmitTurnOrchestrator_Handle_GenerationFailureDegradesTurn(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()
	fx.generator.err = errors.New("rate limited")

	_, err := fx.accounting.Deposit(ctx, "user-1", 100000)
	require.NoError(t, err)

	result, err := fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:  "user-1",
		Message: "My name is Alice.",
	})
	require.NoError(t, err)

	// No reply, low-sentinel confidence, no sources
	assert.Empty(t, result.Reply)
	assert.InDelta(t, fx.cfg.FailureConfidence, result.Strategy.Confidence, 1e-9)
	assert.Empty(t, result.Strategy.Sources)

	// Learning and accounting completed despite the provider failure
	assert.Equal(t, 1, result.FactsStored)
	graph, err := fx.graphs.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, graph.NodeCount())

	count, err := fx.messages.CountByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	account, err := fx.accounts.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1100), account.TotalSpent())
}

func TestSubmitTurnOrchestrator_Handle_ValidationErrors(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  commands.SubmitTurnCommand
	}{
		{
			name: "missing user",
			cmd:  commands.SubmitTurnCommand{Message: "hello"},
		},
		{
			name: "missing message",
			cmd:  commands.SubmitTurnCommand{UserID: "user-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.orchestrator.Handle(ctx, tt.cmd)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeValidation))
		})
	}
}

func TestSubmitTurnOrchestrator_Handle_RetrievedMemoriesFeedGeneration(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	_, err := fx.accounting.Deposit(ctx, "user-1", 100000)
	require.NoError(t, err)

	graph, err := fx.graphs.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	node, err := entities.NewMemoryNode("user-1", entities.NodeTypeFact, "espresso machine maintenance schedule", fx.cfg)
	require.NoError(t, err)
	require.NoError(t, graph.AddNode(node))
	require.NoError(t, fx.graphs.Save(ctx, graph))

	result, err := fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:  "user-1",
		Message: "Tell me about my espresso machine maintenance",
	})
	require.NoError(t, err)

	require.Len(t, result.ReferencedMemories, 1)
	assert.Equal(t, node.ID().String(), result.ReferencedMemories[0])

	require.NotNil(t, fx.generator.lastReq)
	assert.Contains(t, fx.generator.lastReq.MemoryContext, "espresso machine maintenance schedule")

	// Retrieval that shaped the reply counts as an access
	assert.Equal(t, 1, node.AccessCount())
}

func TestSubmitTurnOrchestrator_Handle_ThreadTracksTurn(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	_, err := fx.accounting.Deposit(ctx, "user-1", 100000)
	require.NoError(t, err)

	threadID := valueobjects.NewThreadID()
	result, err := fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:   "user-1",
		Message:  "I am planning a trip to Japan next month.",
		ThreadID: threadID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, threadID.String(), result.ThreadID)

	graph, err := fx.graphs.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	thread, err := graph.GetThread(threadID)
	require.NoError(t, err)
	assert.False(t, thread.LastMessageAt().IsZero())

	messages, err := fx.messages.GetByUserID(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	for _, msg := range messages {
		require.NotNil(t, msg.ContextThreadID)
		assert.True(t, threadID.Equals(*msg.ContextThreadID))
	}
}

func TestSubmitTurnOrchestrator_Handle_ConflictingPreferenceOutranksOlder(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	_, err := fx.accounting.Deposit(ctx, "user-1", 100000)
	require.NoError(t, err)

	_, err = fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:  "user-1",
		Message: "I prefer detailed explanations",
	})
	require.NoError(t, err)

	_, err = fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:  "user-1",
		Message: "I prefer concise answers",
	})
	require.NoError(t, err)

	graph, err := fx.graphs.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	nodes := graph.Nodes()
	require.Len(t, nodes, 2)

	var older, newer *entities.MemoryNode
	for _, node := range nodes {
		if strings.Contains(node.Content(), "concise") {
			newer = node
		} else {
			older = node
		}
	}
	require.NotNil(t, older)
	require.NotNil(t, newer)

	// Both statements survive, and the newer one outranks the older
	assert.Greater(t, newer.Importance(), older.Importance())
}

func TestSubmitTurnOrchestrator_Handle_TaskStatementsTrackedOnThread(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	_, err := fx.accounting.Deposit(ctx, "user-1", 100000)
	require.NoError(t, err)

	threadID := valueobjects.NewThreadID()
	_, err = fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:   "user-1",
		Message:  "I need to finish the quarterly report by friday.",
		ThreadID: threadID.String(),
	})
	require.NoError(t, err)

	graph, err := fx.graphs.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	thread, err := graph.GetThread(threadID)
	require.NoError(t, err)

	tasks := thread.OngoingTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "finish the quarterly report", tasks[0].Description)
	assert.Equal(t, entities.TaskActive, tasks[0].Status)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, time.Friday, tasks[0].DueDate.Weekday())
}

func TestSubmitTurnOrchestrator_Handle_CountsUsage(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	_, err := fx.accounting.Deposit(ctx, "user-1", 100000)
	require.NoError(t, err)

	_, err = fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:  "user-1",
		Message: "My name is Alice.",
	})
	require.NoError(t, err)

	queries, storageBytes, uptimeStart := fx.usage.Snapshot()
	assert.Equal(t, uint64(1), queries)
	assert.Greater(t, storageBytes, uint64(0))
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), uptimeStart)
}

func TestSubmitTurnOrchestrator_Handle_SkipMemoryIsPlainPrompt(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	_, err := fx.accounting.Deposit(ctx, "user-1", 100000)
	require.NoError(t, err)

	result, err := fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:     "user-1",
		Message:    "My name is Alice.",
		SkipMemory: true,
	})
	require.NoError(t, err)

	// Nothing learned, nothing retrieved, neutral strategy
	assert.Equal(t, 0, result.FactsStored)
	assert.Empty(t, result.ReferencedMemories)
	assert.Empty(t, string(result.Strategy.Kind))

	graph, err := fx.graphs.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, graph.NodeCount())
	assert.Equal(t, 0, graph.History().InteractionCount)

	// The conversation is still logged and charged
	count, err := fx.messages.CountByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSubmitTurnOrchestrator_Handle_StoreOnChainMarksMessages(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	_, err := fx.accounting.Deposit(ctx, "user-1", 100000)
	require.NoError(t, err)

	_, err = fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:       "user-1",
		Message:      "My name is Alice.",
		StoreOnChain: true,
	})
	require.NoError(t, err)

	messages, err := fx.messages.GetByUserID(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	for _, msg := range messages {
		require.NotNil(t, msg.StoredOnChain)
		assert.True(t, *msg.StoredOnChain)
	}
}

func TestSubmitTurnOrchestrator_Handle_StylePassedToGenerator(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	_, err := fx.accounting.Deposit(ctx, "user-1", 100000)
	require.NoError(t, err)

	_, err = fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:         "user-1",
		Message:        "Tell me a story.",
		AssistantStyle: "pirate",
	})
	require.NoError(t, err)

	require.NotNil(t, fx.generator.lastReq)
	assert.Equal(t, "pirate", fx.generator.lastReq.Style)
}

func TestSubmitTurnOrchestrator_Handle_ThreadHistoryFeedsGeneration(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	_, err := fx.accounting.Deposit(ctx, "user-1", 100000)
	require.NoError(t, err)

	threadID := valueobjects.NewThreadID()
	_, err = fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:   "user-1",
		Message:  "I am planning a trip to Japan.",
		ThreadID: threadID.String(),
	})
	require.NoError(t, err)

	_, err = fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:   "user-1",
		Message:  "Which cities should I visit?",
		ThreadID: threadID.String(),
	})
	require.NoError(t, err)

	require.NotNil(t, fx.generator.lastReq)
	history := fx.generator.lastReq.History
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "I am planning a trip to Japan.", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
}

func TestSubmitTurnOrchestrator_Handle_ResponseStylePreferenceNode(t *testing.T) {
	fx := newTurnFixture()
	ctx := context.Background()

	_, err := fx.accounting.Deposit(ctx, "user-1", 100000)
	require.NoError(t, err)

	result, err := fx.orchestrator.Handle(ctx, commands.SubmitTurnCommand{
		UserID:  "user-1",
		Message: "I prefer concise answers",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FactsStored)

	graph, err := fx.graphs.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	nodes := graph.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, entities.NodeTypePreference, nodes[0].Type())
	assert.Contains(t, nodes[0].Tags(), "response-style")
	assert.True(t, graph.Profile().ResponsePreferences.Quick)
}
