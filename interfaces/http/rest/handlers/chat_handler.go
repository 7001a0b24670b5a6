package handlers

import (
	"encoding/json"
	"net/http"

	"engram/application/commands"
	turnhandlers "engram/application/commands/handlers"
	"engram/pkg/auth"
	"engram/pkg/utils"
	"go.uber.org/zap"
)

// ChatHandler serves the chat turn endpoint. Turns go straight to the
// orchestrator rather than the command bus because the caller needs the
// generated reply back in the same request.
type ChatHandler struct {
	orchestrator *turnhandlers.SubmitTurnOrchestrator
	logger       *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(orchestrator *turnhandlers.SubmitTurnOrchestrator, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// SubmitTurnRequest represents the request body for a chat turn
type SubmitTurnRequest struct {
	Message        string `json:"message" validate:"required,max=20000"`
	ThreadID       string `json:"thread_id,omitempty" validate:"omitempty,uuid"`
	Provider       string `json:"provider,omitempty" validate:"omitempty,max=50"`
	AssistantStyle string `json:"assistant_style,omitempty" validate:"omitempty,max=200"`
	Confidential   bool   `json:"confidential,omitempty"`
	StoreOnChain   bool   `json:"store_on_chain,omitempty"`
	SkipMemory     bool   `json:"skip_memory,omitempty"`
}

// SubmitTurn handles POST /chat
func (h *ChatHandler) SubmitTurn(w http.ResponseWriter, r *http.Request) {
	var req SubmitTurnRequest
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

	cmd := commands.SubmitTurnCommand{
		UserID:         userCtx.UserID,
		Message:        req.Message,
		ThreadID:       req.ThreadID,
		Provider:       req.Provider,
		AssistantStyle: req.AssistantStyle,
		Confidential:   req.Confidential,
		StoreOnChain:   req.StoreOnChain,
		SkipMemory:     req.SkipMemory,
	}

	result, err := h.orchestrator.Handle(r.Context(), cmd)
	if err != nil {
		h.logger.Error("turn processing failed",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
