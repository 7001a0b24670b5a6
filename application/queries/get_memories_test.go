package queries

import (
	"context"
	"testing"

	"engram/domain/core/entities"
	memorystore "engram/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemoriesGraph(t *testing.T, graphs *memorystore.GraphRepository) {
	t.Helper()
	ctx := context.Background()
	graph, err := graphs.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)

	for _, seed := range []struct {
		nodeType entities.NodeType
		content  string
	}{
		{entities.NodeTypeFact, "lives in Lisbon"},
		{entities.NodeTypeFact, "works at Initech"},
		{entities.NodeTypePreference, "prefers tea over coffee"},
		{entities.NodeTypeGoal, "wants to run a marathon"},
	} {
		node, err := entities.NewMemoryNode("user-1", seed.nodeType, seed.content, nil)
		require.NoError(t, err)
		require.NoError(t, graph.AddNode(node))
	}
	require.NoError(t, graphs.Save(ctx, graph))
}

func TestGetMemoriesHandler_Handle_ReturnsRanked(t *testing.T) {
	graphs := memorystore.NewGraphRepository()
	seedMemoriesGraph(t, graphs)
	handler := NewGetMemoriesHandler(graphs, memorystore.NewSystemClock())

	result, err := handler.Handle(context.Background(), GetMemoriesQuery{UserID: "user-1", Query: "tea"})
	require.NoError(t, err)

	require.Len(t, result.Memories, 1)
	assert.Equal(t, "prefers tea over coffee", result.Memories[0].Content)
	assert.Equal(t, 4, result.Total)
}

func TestGetMemoriesHandler_Handle_FiltersByNodeType(t *testing.T) {
	graphs := memorystore.NewGraphRepository()
	seedMemoriesGraph(t, graphs)
	handler := NewGetMemoriesHandler(graphs, memorystore.NewSystemClock())
	ctx := context.Background()

	result, err := handler.Handle(ctx, GetMemoriesQuery{UserID: "user-1", NodeType: string(entities.NodeTypeFact)})
	require.NoError(t, err)

	require.Len(t, result.Memories, 2)
	for _, m := range result.Memories {
		assert.Equal(t, string(entities.NodeTypeFact), m.Type)
	}

	result, err = handler.Handle(ctx, GetMemoriesQuery{UserID: "user-1", NodeType: string(entities.NodeTypeGoal), Limit: 1})
	require.NoError(t, err)
	require.Len(t, result.Memories, 1)
	assert.Equal(t, "wants to run a marathon", result.Memories[0].Content)
}

func TestGetMemoriesHandler_Handle_RejectsUnknownNodeType(t *testing.T) {
	handler := NewGetMemoriesHandler(memorystore.NewGraphRepository(), memorystore.NewSystemClock())

	_, err := handler.Handle(context.Background(), GetMemoriesQuery{UserID: "user-1", NodeType: "dream"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node type")
}
