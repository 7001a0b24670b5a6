package queries

import (
	"context"
	"errors"

	"engram/application/ports"
	"engram/domain/core/entities"
)

// GetProfileQuery retrieves a user's learned profile and history
type GetProfileQuery struct {
	UserID string `json:"user_id"`
}

// Validate validates the query
func (q GetProfileQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// GetProfileResult represents the query result
type GetProfileResult struct {
	Profile      *entities.UserProfile     `json:"profile"`
	History      *entities.LearningHistory `json:"history"`
	Completeness float64                   `json:"completeness"`
}

// GetProfileHandler handles the GetProfileQuery
type GetProfileHandler struct {
	graphRepo ports.GraphRepository
}

// NewGetProfileHandler creates a new handler instance
func NewGetProfileHandler(graphRepo ports.GraphRepository) *GetProfileHandler {
	return &GetProfileHandler{graphRepo: graphRepo}
}

// Handle executes the get profile query
func (h *GetProfileHandler) Handle(ctx context.Context, query GetProfileQuery) (*GetProfileResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	graph, err := h.graphRepo.GetOrCreate(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	return &GetProfileResult{
		Profile:      graph.Profile(),
		History:      graph.History(),
		Completeness: graph.Profile().Completeness(),
	}, nil
}
