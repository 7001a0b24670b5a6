package commands

import (
	"context"
	"errors"

	"engram/application/ports"
	"go.uber.org/zap"
)

// RunMaintenanceCommand applies importance decay and thread archival to
// one user's graph. Scheduled periodically, never user-triggered.
type RunMaintenanceCommand struct {
	UserID string `json:"user_id" validate:"required"`
}

// Validate validates the command
func (cmd RunMaintenanceCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// MaintenanceResult reports what a maintenance pass changed
type MaintenanceResult struct {
	NodesDecayed    int `json:"nodes_decayed"`
	ThreadsArchived int `json:"threads_archived"`
}

// RunMaintenanceHandler handles the RunMaintenanceCommand
type RunMaintenanceHandler struct {
	graphRepo ports.GraphRepository
	locker    ports.UserLocker
	eventBus  ports.EventPublisher
	clock     ports.Clock
	logger    *zap.Logger
}

// NewRunMaintenanceHandler creates a new handler instance
func NewRunMaintenanceHandler(
	graphRepo ports.GraphRepository,
	locker ports.UserLocker,
	eventBus ports.EventPublisher,
	clock ports.Clock,
	logger *zap.Logger,
) *RunMaintenanceHandler {
	return &RunMaintenanceHandler{
		graphRepo: graphRepo,
		locker:    locker,
		eventBus:  eventBus,
		clock:     clock,
		logger:    logger,
	}
}

// Handle executes one maintenance pass
func (h *RunMaintenanceHandler) Handle(ctx context.Context, cmd RunMaintenanceCommand) (*MaintenanceResult, error) {
	if err := h.locker.Lock(ctx, cmd.UserID); err != nil {
		return nil, err
	}
	defer h.locker.Unlock(cmd.UserID)

	graph, err := h.graphRepo.GetByUserID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	now := h.clock.Now()
	result := &MaintenanceResult{
		NodesDecayed:    graph.DecayPass(now),
		ThreadsArchived: graph.ArchiveInactiveThreads(now),
	}

	if result.NodesDecayed == 0 && result.ThreadsArchived == 0 {
		return result, nil
	}

	if err := h.graphRepo.Save(ctx, graph); err != nil {
		return nil, err
	}
	if err := h.eventBus.PublishBatch(ctx, graph.GetUncommittedEvents()); err != nil {
		h.logger.Warn("failed to publish maintenance events", zap.Error(err))
	}
	graph.MarkEventsAsCommitted()

	h.logger.Info("maintenance pass completed",
		zap.String("userID", cmd.UserID),
		zap.Int("nodesDecayed", result.NodesDecayed),
		zap.Int("threadsArchived", result.ThreadsArchived),
	)
	return result, nil
}
