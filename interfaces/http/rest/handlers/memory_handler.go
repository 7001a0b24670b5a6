package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"engram/application/commands"
	"engram/application/commands/bus"
	"engram/application/queries"
	querybus "engram/application/queries/bus"
	"engram/pkg/auth"
	"engram/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryHandler handles direct memory management requests
type MemoryHandler struct {
	storeHandler *commands.StoreMemoryHandler
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	logger       *zap.Logger
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(
	storeHandler *commands.StoreMemoryHandler,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *MemoryHandler {
	return &MemoryHandler{
		storeHandler: storeHandler,
		commandBus:   commandBus,
		queryBus:     queryBus,
		logger:       logger,
	}
}

// StoreMemoryRequest represents the request body for storing a memory
type StoreMemoryRequest struct {
	NodeType string   `json:"node_type" validate:"required"`
	Content  string   `json:"content" validate:"required,max=20000"`
	Tags     []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,min=1,max=30"`
}

// StoreMemoryResponse represents the response for storing a memory
type StoreMemoryResponse struct {
	ID         string  `json:"id"`
	NodeType   string  `json:"node_type"`
	Importance float64 `json:"importance"`
	CreatedAt  string  `json:"created_at"`
}

// StoreMemory handles POST /memories
func (h *MemoryHandler) StoreMemory(w http.ResponseWriter, r *http.Request) {
	var req StoreMemoryRequest
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

	cmd := commands.StoreMemoryCommand{
		UserID:   userCtx.UserID,
		NodeType: req.NodeType,
		Content:  req.Content,
		Tags:     req.Tags,
	}
	if err := cmd.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	node, err := h.storeHandler.Handle(r.Context(), cmd)
	if err != nil {
		h.logger.Error("failed to store memory",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, StoreMemoryResponse{
		ID:         node.ID().String(),
		NodeType:   string(node.Type()),
		Importance: node.Importance(),
		CreatedAt:  utils.NowRFC3339(),
	})
}

// ForgetMemory handles DELETE /memories/{nodeID}
func (h *MemoryHandler) ForgetMemory(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	if _, err := uuid.Parse(nodeID); err != nil {
		respondError(w, http.StatusBadRequest, "invalid node ID format")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cmd := commands.ForgetMemoryCommand{
		UserID: userCtx.UserID,
		NodeID: nodeID,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("failed to forget memory",
			zap.String("userID", userCtx.UserID),
			zap.String("nodeID", nodeID),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SearchMemories handles GET /memories
func (h *MemoryHandler) SearchMemories(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	query := queries.GetMemoriesQuery{
		UserID:   userCtx.UserID,
		Query:    r.URL.Query().Get("q"),
		NodeType: r.URL.Query().Get("type"),
		Limit:    limit,
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.logger.Error("memory search failed",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
