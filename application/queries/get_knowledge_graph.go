package queries

import (
	"context"
	"errors"

	"engram/application/ports"
)

// GetKnowledgeGraphQuery retrieves a user's full graph projection
type GetKnowledgeGraphQuery struct {
	UserID string `json:"user_id"`
}

// Validate validates the query
func (q GetKnowledgeGraphQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// GetKnowledgeGraphResult represents the query result
type GetKnowledgeGraphResult struct {
	Nodes []MemoryNodeDTO `json:"nodes"`
	Edges []EdgeDTO       `json:"edges"`
	Stats GraphStatsDTO   `json:"stats"`
}

// MemoryNodeDTO is a data transfer object for memory nodes
type MemoryNodeDTO struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Content      string   `json:"content"`
	Tags         []string `json:"tags"`
	Importance   float64  `json:"importance"`
	AccessCount  int      `json:"access_count"`
	CreatedAt    string   `json:"created_at"`
	LastAccessed string   `json:"last_accessed"`
}

// EdgeDTO is a data transfer object for knowledge edges
type EdgeDTO struct {
	FromID       string  `json:"from_id"`
	ToID         string  `json:"to_id"`
	Relationship string  `json:"relationship"`
	Strength     float64 `json:"strength"`
	Context      string  `json:"context,omitempty"`
}

// GraphStatsDTO summarizes the graph
type GraphStatsDTO struct {
	NodeCount   int `json:"node_count"`
	EdgeCount   int `json:"edge_count"`
	ThreadCount int `json:"thread_count"`
}

// GetKnowledgeGraphHandler handles the GetKnowledgeGraphQuery
type GetKnowledgeGraphHandler struct {
	graphRepo ports.GraphRepository
	cache     ports.Cache
}

// NewGetKnowledgeGraphHandler creates a new handler instance
func NewGetKnowledgeGraphHandler(graphRepo ports.GraphRepository, cache ports.Cache) *GetKnowledgeGraphHandler {
	return &GetKnowledgeGraphHandler{
		graphRepo: graphRepo,
		cache:     cache,
	}
}

// Handle executes the get knowledge graph query
func (h *GetKnowledgeGraphHandler) Handle(ctx context.Context, query GetKnowledgeGraphQuery) (*GetKnowledgeGraphResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	cacheKey := "graph:" + query.UserID
	if cached, found := h.cache.Get(ctx, cacheKey); found {
		if result, ok := cached.(*GetKnowledgeGraphResult); ok {
			return result, nil
		}
	}

	graph, err := h.graphRepo.GetOrCreate(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	result := &GetKnowledgeGraphResult{
		Nodes: make([]MemoryNodeDTO, 0, graph.NodeCount()),
		Edges: make([]EdgeDTO, 0, graph.EdgeCount()),
		Stats: GraphStatsDTO{
			NodeCount:   graph.NodeCount(),
			EdgeCount:   graph.EdgeCount(),
			ThreadCount: len(graph.Threads()),
		},
	}

	for _, node := range graph.Nodes() {
		result.Nodes = append(result.Nodes, MemoryNodeDTO{
			ID:           node.ID().String(),
			Type:         string(node.Type()),
			Content:      node.Content(),
			Tags:         node.Tags(),
			Importance:   node.Importance(),
			AccessCount:  node.AccessCount(),
			CreatedAt:    node.CreatedAt().Format("2006-01-02T15:04:05Z"),
			LastAccessed: node.LastAccessed().Format("2006-01-02T15:04:05Z"),
		})
	}
	for _, edge := range graph.Edges() {
		result.Edges = append(result.Edges, EdgeDTO{
			FromID:       edge.FromID.String(),
			ToID:         edge.ToID.String(),
			Relationship: string(edge.Relationship),
			Strength:     edge.Strength,
			Context:      edge.Context,
		})
	}

	// Short TTL, the graph changes on every processed turn
	h.cache.Set(ctx, cacheKey, result, 60)

	return result, nil
}
