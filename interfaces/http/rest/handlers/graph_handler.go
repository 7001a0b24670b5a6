package handlers

import (
	"encoding/json"
	"net/http"

	"engram/application/commands"
	"engram/application/commands/bus"
	"engram/application/queries"
	querybus "engram/application/queries/bus"
	"engram/pkg/auth"
	"engram/pkg/utils"
	"go.uber.org/zap"
)

// GraphHandler serves views over the knowledge graph and the learned
// profile, plus explicit profile edits
type GraphHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// GetGraph handles GET /graph
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetKnowledgeGraphQuery{UserID: userCtx.UserID})
	if err != nil {
		h.logger.Error("graph projection failed",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetDashboard handles GET /dashboard
func (h *GraphHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetDashboardQuery{UserID: userCtx.UserID})
	if err != nil {
		h.logger.Error("dashboard projection failed",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// UpdateProfileRequest represents the request body for a partial
// profile edit
type UpdateProfileRequest struct {
	PreferredName       *string                           `json:"preferred_name,omitempty" validate:"omitempty,max=100"`
	Interests           []string                          `json:"interests,omitempty" validate:"omitempty,max=50,dive,min=1,max=100"`
	ExpertiseAreas      []string                          `json:"expertise_areas,omitempty" validate:"omitempty,max=50,dive,min=1,max=100"`
	ResponsePreferences *commands.ResponsePreferencePatch `json:"response_preferences,omitempty"`
}

// UpdateProfile handles PATCH /profile
func (h *GraphHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cmd := commands.UpdateProfileCommand{
		UserID:              userCtx.UserID,
		PreferredName:       req.PreferredName,
		Interests:           req.Interests,
		ExpertiseAreas:      req.ExpertiseAreas,
		ResponsePreferences: req.ResponsePreferences,
	}
	if err := cmd.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("profile update failed",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetProfileQuery{UserID: userCtx.UserID})
	if err != nil {
		h.logger.Error("profile lookup failed",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetProfile handles GET /profile
func (h *GraphHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetProfileQuery{UserID: userCtx.UserID})
	if err != nil {
		h.logger.Error("profile lookup failed",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
