package queries

import (
	"context"
	"errors"
	"strings"
	"time"

	"engram/application/ports"
	"engram/domain/core/entities"
)

// GetMemoriesQuery searches a user's memories by free-text terms,
// optionally restricted to one node type. With no terms it returns the
// top-ranked memories overall.
type GetMemoriesQuery struct {
	UserID   string `json:"user_id"`
	Query    string `json:"query"`
	NodeType string `json:"node_type,omitempty"`
	Limit    int    `json:"limit"`
}

// Validate validates the query
func (q GetMemoriesQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.NodeType != "" && !entities.ValidNodeType(entities.NodeType(q.NodeType)) {
		return errors.New("unknown node type: " + q.NodeType)
	}
	return nil
}

// RankedMemoryDTO pairs a memory with its retrieval score
type RankedMemoryDTO struct {
	MemoryNodeDTO
	Score float64 `json:"score"`
}

// GetMemoriesResult represents the query result
type GetMemoriesResult struct {
	Memories []RankedMemoryDTO `json:"memories"`
	Total    int               `json:"total"`
}

// GetMemoriesHandler handles the GetMemoriesQuery
type GetMemoriesHandler struct {
	graphRepo ports.GraphRepository
	clock     ports.Clock
}

// NewGetMemoriesHandler creates a new handler instance
func NewGetMemoriesHandler(graphRepo ports.GraphRepository, clock ports.Clock) *GetMemoriesHandler {
	return &GetMemoriesHandler{
		graphRepo: graphRepo,
		clock:     clock,
	}
}

// Handle executes the get memories query. Browsing memories is
// read-only: it does not count as an access and never bumps importance.
func (h *GetMemoriesHandler) Handle(ctx context.Context, query GetMemoriesQuery) (*GetMemoriesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	graph, err := h.graphRepo.GetOrCreate(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	var terms []string
	if strings.TrimSpace(query.Query) != "" {
		terms = strings.Fields(strings.ToLower(query.Query))
	}

	now := h.clock.Now()
	rankLimit := query.Limit
	if query.NodeType != "" {
		// Rank everything first so the type filter does not underfill
		rankLimit = graph.NodeCount()
	}
	ranked := graph.RankMemories(terms, rankLimit, now)
	if query.NodeType != "" {
		filtered := ranked[:0]
		for _, m := range ranked {
			if m.Node.Type() == entities.NodeType(query.NodeType) {
				filtered = append(filtered, m)
			}
		}
		ranked = filtered
		if query.Limit > 0 && len(ranked) > query.Limit {
			ranked = ranked[:query.Limit]
		}
	}

	result := &GetMemoriesResult{
		Memories: make([]RankedMemoryDTO, 0, len(ranked)),
		Total:    graph.NodeCount(),
	}
	for _, m := range ranked {
		result.Memories = append(result.Memories, RankedMemoryDTO{
			MemoryNodeDTO: MemoryNodeDTO{
				ID:           m.Node.ID().String(),
				Type:         string(m.Node.Type()),
				Content:      m.Node.Content(),
				Tags:         m.Node.Tags(),
				Importance:   m.Node.Importance(),
				AccessCount:  m.Node.AccessCount(),
				CreatedAt:    m.Node.CreatedAt().Format(time.RFC3339),
				LastAccessed: m.Node.LastAccessed().Format(time.RFC3339),
			},
			Score: m.Score,
		})
	}
	return result, nil
}
