package queries

import (
	"context"
	"errors"

	"engram/application/ports"
	"engram/application/services"
)

// GetDashboardQuery retrieves the dashboard projection for a user
type GetDashboardQuery struct {
	UserID string `json:"user_id"`
}

// Validate validates the query
func (q GetDashboardQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// GetDashboardHandler handles the GetDashboardQuery
type GetDashboardHandler struct {
	dashboard *services.DashboardService
	cache     ports.Cache
}

// NewGetDashboardHandler creates a new handler instance
func NewGetDashboardHandler(dashboard *services.DashboardService, cache ports.Cache) *GetDashboardHandler {
	return &GetDashboardHandler{
		dashboard: dashboard,
		cache:     cache,
	}
}

// Handle executes the get dashboard query
func (h *GetDashboardHandler) Handle(ctx context.Context, query GetDashboardQuery) (*services.DashboardView, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	cacheKey := "dashboard:" + query.UserID
	if cached, found := h.cache.Get(ctx, cacheKey); found {
		if view, ok := cached.(*services.DashboardView); ok {
			return view, nil
		}
	}

	view, err := h.dashboard.Project(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	h.cache.Set(ctx, cacheKey, view, 30)
	return view, nil
}
