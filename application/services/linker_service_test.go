package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"engram/domain/core/aggregates"
	"engram/domain/core/entities"
)

func linkerFixture(t *testing.T) (*LinkerService, *aggregates.PersonalKnowledgeGraph) {
	t.Helper()
	graph, err := aggregates.NewPersonalKnowledgeGraph("user123", nil)
	require.NoError(t, err)
	return NewLinkerService(nil, zap.NewNop()), graph
}

func addLinkerNode(t *testing.T, g *aggregates.PersonalKnowledgeGraph, nodeType entities.NodeType, content string) *entities.MemoryNode {
	t.Helper()
	node, err := entities.NewMemoryNode("user123", nodeType, content, nil)
	require.NoError(t, err)
	require.NoError(t, g.AddNode(node))
	return node
}

func TestLinkerService_LinkNewNode(t *testing.T) {
	svc, graph := linkerFixture(t)

	existing := addLinkerNode(t, graph, entities.NodeTypeFact, "training for the city marathon next spring")
	addLinkerNode(t, graph, entities.NodeTypeFact, "allergic to shellfish")

	fresh := addLinkerNode(t, graph, entities.NodeTypeFact, "bought new running shoes for marathon training")

	linked := svc.LinkNewNode(graph, fresh)
	require.Equal(t, 1, linked)

	edges := graph.Neighbors(fresh.ID())
	require.Len(t, edges, 1)
	assert.Equal(t, existing.ID(), edges[0].ToID)
	assert.Equal(t, aggregates.RelationshipRelated, edges[0].Relationship)
}

func TestLinkerService_LinkNewNode_NoSimilarity(t *testing.T) {
	svc, graph := linkerFixture(t)

	addLinkerNode(t, graph, entities.NodeTypeFact, "allergic to shellfish")
	fresh := addLinkerNode(t, graph, entities.NodeTypeFact, "rewatching old westerns")

	assert.Equal(t, 0, svc.LinkNewNode(graph, fresh))
	assert.Empty(t, graph.Neighbors(fresh.ID()))
}

func TestLinkerService_LinkNewNode_CapsAutoLinks(t *testing.T) {
	svc, graph := linkerFixture(t)

	for i := 0; i < maxAutoLinks+3; i++ {
		addLinkerNode(t, graph, entities.NodeTypeFact, "marathon training progress update")
	}
	fresh := addLinkerNode(t, graph, entities.NodeTypeFact, "marathon training progress today")

	linked := svc.LinkNewNode(graph, fresh)
	assert.Equal(t, maxAutoLinks, linked)
}

func TestRelationshipFor(t *testing.T) {
	tests := []struct {
		source entities.NodeType
		target entities.NodeType
		want   aggregates.RelationshipType
	}{
		{entities.NodeTypeGoal, entities.NodeTypeExperience, aggregates.RelationshipLeadsTo},
		{entities.NodeTypeExperience, entities.NodeTypeGoal, aggregates.RelationshipCausedBy},
		{entities.NodeTypeExperience, entities.NodeTypeKnowledge, aggregates.RelationshipExampleOf},
		{entities.NodeTypeKnowledge, entities.NodeTypeGoal, aggregates.RelationshipUsedFor},
		{entities.NodeTypeContext, entities.NodeTypeFact, aggregates.RelationshipPartOf},
		{entities.NodeTypePreference, entities.NodeTypeFact, aggregates.RelationshipRelated},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, relationshipFor(tt.source, tt.target))
	}
}

func TestExtractWords(t *testing.T) {
	words := extractWords("Training for the Marathon, again!")

	assert.True(t, words["training"])
	assert.True(t, words["marathon"])
	assert.True(t, words["again"])
	assert.False(t, words["the"]) // stopword
	assert.False(t, words["for"]) // stopword
}
