package handlers

import (
	"net/http"
	"strconv"

	"engram/application/queries"
	querybus "engram/application/queries/bus"
	"engram/pkg/auth"
	"go.uber.org/zap"
)

// ConversationHandler serves the conversation log
type ConversationHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		queryBus: queryBus,
		logger:   logger,
	}
}

// GetConversations handles GET /conversations
func (h *ConversationHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := queries.GetConversationsQuery{
		UserID:   userCtx.UserID,
		ThreadID: r.URL.Query().Get("thread_id"),
	}
	if query.Limit, err = parseQueryInt(r, "limit"); err != nil {
		respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if query.Offset, err = parseQueryInt(r, "offset"); err != nil {
		respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.logger.Error("conversation lookup failed",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func parseQueryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, strconv.ErrSyntax
	}
	return value, nil
}
