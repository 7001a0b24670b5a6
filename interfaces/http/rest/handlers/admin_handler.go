package handlers

import (
	"encoding/json"
	"net/http"

	"engram/application/commands"
	"engram/application/commands/bus"
	"engram/application/queries"
	querybus "engram/application/queries/bus"
	"engram/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler handles operator endpoints: rate tables, tier
// assignment, maintenance runs and engine metrics. All routes behind
// the admin role check.
type AdminHandler struct {
	maintenanceHandler *commands.RunMaintenanceHandler
	commandBus         *bus.CommandBus
	queryBus           *querybus.QueryBus
	logger             *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	maintenanceHandler *commands.RunMaintenanceHandler,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		maintenanceHandler: maintenanceHandler,
		commandBus:         commandBus,
		queryBus:           queryBus,
		logger:             logger,
	}
}

// UpdateRatesRequest represents the request body for a rate table update
type UpdateRatesRequest struct {
	QueryBaseCost         uint64  `json:"query_base_cost" validate:"required"`
	StorageCostPerKB      uint64  `json:"storage_cost_per_kb" validate:"required"`
	ComputationMultiplier float32 `json:"computation_multiplier" validate:"required,gt=0"`
}

// AssignTierRequest represents the request body for a tier assignment
type AssignTierRequest struct {
	Tier string `json:"tier" validate:"required,oneof=basic premium enterprise"`
}

// UpdateRates handles PUT /admin/rates
func (h *AdminHandler) UpdateRates(w http.ResponseWriter, r *http.Request) {
	var req UpdateRatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cmd := commands.UpdateRatesCommand{
		QueryBaseCost:         req.QueryBaseCost,
		StorageCostPerKB:      req.StorageCostPerKB,
		ComputationMultiplier: req.ComputationMultiplier,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("rate update failed", zap.Error(err))
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "rates updated"})
}

// AssignTier handles PUT /admin/users/{userID}/tier
func (h *AdminHandler) AssignTier(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	var req AssignTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cmd := commands.AssignTierCommand{
		UserID: userID,
		Tier:   req.Tier,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("tier assignment failed",
			zap.String("userID", userID),
			zap.String("tier", req.Tier),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "tier assigned", "tier": req.Tier})
}

// SetProviderMultiplierRequest represents the request body for a
// provider multiplier update
type SetProviderMultiplierRequest struct {
	Multiplier float32 `json:"multiplier" validate:"required,gt=0"`
}

// SetProviderMultiplier handles PUT /admin/providers/{provider}/multiplier
func (h *AdminHandler) SetProviderMultiplier(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if provider == "" {
		respondError(w, http.StatusBadRequest, "provider is required")
		return
	}

	var req SetProviderMultiplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cmd := commands.SetProviderMultiplierCommand{
		Provider:   provider,
		Multiplier: req.Multiplier,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("provider multiplier update failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "multiplier updated", "provider": provider})
}

// RunMaintenance handles POST /admin/users/{userID}/maintenance
func (h *AdminHandler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	result, err := h.maintenanceHandler.Handle(r.Context(), commands.RunMaintenanceCommand{UserID: userID})
	if err != nil {
		h.logger.Error("maintenance run failed",
			zap.String("userID", userID),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetMetrics handles GET /admin/metrics
func (h *AdminHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetMetricsQuery{})
	if err != nil {
		h.logger.Error("metrics collection failed", zap.Error(err))
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
