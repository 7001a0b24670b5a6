package handlers

import (
	"net/http"

	"engram/application/queries"
	querybus "engram/application/queries/bus"
	"go.uber.org/zap"
)

// ProviderHandler lists the generation providers a turn may name
type ProviderHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *ProviderHandler {
	return &ProviderHandler{
		queryBus: queryBus,
		logger:   logger,
	}
}

// ListProviders handles GET /providers
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetProvidersQuery{})
	if err != nil {
		h.logger.Error("provider listing failed", zap.Error(err))
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
