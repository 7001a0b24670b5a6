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

// AccountHandler handles cycles account requests
type AccountHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *AccountHandler {
	return &AccountHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// DepositRequest represents the request body for a deposit
type DepositRequest struct {
	Amount uint64 `json:"amount" validate:"required,gt=0"`
}

// GetBalance handles GET /account/balance
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetBalanceQuery{UserID: userCtx.UserID})
	if err != nil {
		h.logger.Error("balance lookup failed",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Deposit handles POST /account/deposit
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
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

	cmd := commands.DepositCyclesCommand{
		UserID: userCtx.UserID,
		Amount: req.Amount,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("deposit failed",
			zap.String("userID", userCtx.UserID),
			zap.Uint64("amount", req.Amount),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	// Return the post-deposit balance
	result, err := h.queryBus.Ask(r.Context(), queries.GetBalanceQuery{UserID: userCtx.UserID})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// DeleteUserData handles DELETE /account/data
func (h *AccountHandler) DeleteUserData(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cmd := commands.DeleteUserDataCommand{UserID: userCtx.UserID}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("user data deletion failed",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
