package commands

import (
	"context"
	"errors"

	"engram/application/ports"
	"engram/domain/core/valueobjects"
	"go.uber.org/zap"
)

// ForgetMemoryCommand removes one memory node and every edge touching it
type ForgetMemoryCommand struct {
	UserID string `json:"user_id" validate:"required"`
	NodeID string `json:"node_id" validate:"required,uuid"`
}

// Validate validates the command
func (cmd ForgetMemoryCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.NodeID == "" {
		return errors.New("node ID is required")
	}
	return nil
}

// ForgetMemoryHandler handles the ForgetMemoryCommand
type ForgetMemoryHandler struct {
	graphRepo ports.GraphRepository
	locker    ports.UserLocker
	eventBus  ports.EventPublisher
	logger    *zap.Logger
}

// NewForgetMemoryHandler creates a new handler instance
func NewForgetMemoryHandler(
	graphRepo ports.GraphRepository,
	locker ports.UserLocker,
	eventBus ports.EventPublisher,
	logger *zap.Logger,
) *ForgetMemoryHandler {
	return &ForgetMemoryHandler{
		graphRepo: graphRepo,
		locker:    locker,
		eventBus:  eventBus,
		logger:    logger,
	}
}

// Handle executes the forget memory command
func (h *ForgetMemoryHandler) Handle(ctx context.Context, cmd ForgetMemoryCommand) error {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}

	if err := h.locker.Lock(ctx, cmd.UserID); err != nil {
		return err
	}
	defer h.locker.Unlock(cmd.UserID)

	graph, err := h.graphRepo.GetByUserID(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	if err := graph.RemoveNode(nodeID); err != nil {
		return err
	}
	if err := h.graphRepo.Save(ctx, graph); err != nil {
		return err
	}

	if err := h.eventBus.PublishBatch(ctx, graph.GetUncommittedEvents()); err != nil {
		h.logger.Warn("failed to publish forget events", zap.Error(err))
	}
	graph.MarkEventsAsCommitted()

	h.logger.Info("memory forgotten",
		zap.String("userID", cmd.UserID),
		zap.String("nodeID", cmd.NodeID),
	)
	return nil
}
