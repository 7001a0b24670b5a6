package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"engram/domain/config"
	"engram/domain/core/aggregates"
	"engram/domain/core/entities"
)

func scoredMemories(t *testing.T, contents ...string) []aggregates.ScoredMemory {
	t.Helper()
	out := make([]aggregates.ScoredMemory, 0, len(contents))
	for _, c := range contents {
		node, err := entities.NewMemoryNode("user123", entities.NodeTypeFact, c, nil)
		require.NoError(t, err)
		out = append(out, aggregates.ScoredMemory{Node: node, Score: 1})
	}
	return out
}

func boostAll(t *testing.T, memories []aggregates.ScoredMemory, delta float64) {
	t.Helper()
	for _, m := range memories {
		m.Node.Boost(delta, nil)
	}
}

func TestStrategyService_Select_InquiryFirstWithNoMemory(t *testing.T) {
	svc := NewStrategyService(nil, zap.NewNop())

	strategy := svc.Select([]string{"espresso"}, nil)
	inquiry, ok := strategy.(entities.InquiryFirst)
	require.True(t, ok, "expected InquiryFirst, got %T", strategy)
	assert.Contains(t, inquiry.Question, "espresso")
	assert.NotEmpty(t, inquiry.WhyAsking)
}

func TestStrategyService_Select_ConfidentAnswer(t *testing.T) {
	svc := NewStrategyService(nil, zap.NewNop())

	memories := scoredMemories(t,
		"drinks espresso every morning",
		"buys beans from the roastery on 5th",
	)
	// high-importance memories covering every term push coverage past the
	// confident threshold
	boostAll(t, memories, 0.5)

	strategy := svc.Select([]string{"espresso", "beans"}, memories)
	confident, ok := strategy.(entities.ConfidentAnswer)
	require.True(t, ok, "expected ConfidentAnswer, got %T", strategy)
	assert.Len(t, confident.Sources, 2)
	assert.GreaterOrEqual(t, confident.Confidence, 0.75)
}

func TestStrategyService_Select_PartialAnswer(t *testing.T) {
	svc := NewStrategyService(nil, zap.NewNop())

	// one of two terms covered, importance at the initial 0.5:
	// coverage = 0.6*0.5 + 0.4*0.5 = 0.5, inside the partial band
	memories := scoredMemories(t, "drinks espresso every morning")
	strategy := svc.Select([]string{"espresso", "skiing"}, memories)

	partial, ok := strategy.(entities.PartialAnswer)
	require.True(t, ok, "expected PartialAnswer, got %T", strategy)
	assert.Contains(t, partial.KnownInfo, "espresso")
	assert.Contains(t, partial.ClarificationNeeded, "skiing")
}

func TestStrategyService_Select_LearningOpportunity(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	svc := NewStrategyService(cfg, zap.NewNop())

	// no term matches: coverage = 0.4 * importance = 0.3, inside the
	// opportunity band just above the inquiry threshold
	memories := scoredMemories(t, "unrelated older memory")
	boostAll(t, memories, 0.25)

	strategy := svc.Select([]string{"skiing"}, memories)
	opportunity, ok := strategy.(entities.LearningOpportunity)
	require.True(t, ok, "expected LearningOpportunity, got %T", strategy)
	assert.Contains(t, opportunity.Suggestion, "skiing")
}

func TestStrategyService_Coverage(t *testing.T) {
	svc := NewStrategyService(nil, zap.NewNop())

	assert.Equal(t, 0.0, svc.coverage([]string{"anything"}, nil))

	memories := scoredMemories(t, "knows about espresso")
	// no terms: coverage is the average importance alone
	assert.InDelta(t, 0.5, svc.coverage(nil, memories), 1e-9)

	// full term coverage at initial importance
	assert.InDelta(t, 0.6+0.4*0.5, svc.coverage([]string{"espresso"}, memories), 1e-9)
}
