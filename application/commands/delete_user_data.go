package commands

import (
	"context"
	"errors"
	"time"

	"engram/application/ports"
	"engram/application/sagas"
	"engram/domain/events"
	"go.uber.org/zap"
)

// DeleteUserDataCommand erases everything stored for a user: graph,
// threads, profile, conversation log and account
type DeleteUserDataCommand struct {
	UserID string `json:"user_id" validate:"required"`
}

// Validate validates the command
func (cmd DeleteUserDataCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// DeleteUserDataHandler handles the DeleteUserDataCommand
type DeleteUserDataHandler struct {
	graphRepo   ports.GraphRepository
	messageRepo ports.MessageRepository
	accountRepo ports.AccountRepository
	locker      ports.UserLocker
	eventBus    ports.EventPublisher
	clock       ports.Clock
	logger      *zap.Logger
}

// NewDeleteUserDataHandler creates a new handler instance
func NewDeleteUserDataHandler(
	graphRepo ports.GraphRepository,
	messageRepo ports.MessageRepository,
	accountRepo ports.AccountRepository,
	locker ports.UserLocker,
	eventBus ports.EventPublisher,
	clock ports.Clock,
	logger *zap.Logger,
) *DeleteUserDataHandler {
	return &DeleteUserDataHandler{
		graphRepo:   graphRepo,
		messageRepo: messageRepo,
		accountRepo: accountRepo,
		locker:      locker,
		eventBus:    eventBus,
		clock:       clock,
		logger:      logger,
	}
}

// Handle executes the delete user data command. Each store is wiped in
// its own retryable saga step; deletions are idempotent, so a retried
// step is safe.
func (h *DeleteUserDataHandler) Handle(ctx context.Context, cmd DeleteUserDataCommand) error {
	if err := h.locker.Lock(ctx, cmd.UserID); err != nil {
		return err
	}
	defer h.locker.Unlock(cmd.UserID)

	saga := sagas.NewSagaBuilder("delete_user_data", h.logger).
		WithMetadata("user_id", cmd.UserID).
		WithRetryableStep("delete_graph", func(ctx context.Context, _ interface{}) (interface{}, error) {
			return nil, h.graphRepo.Delete(ctx, cmd.UserID)
		}, 3, 200*time.Millisecond).
		WithRetryableStep("delete_messages", func(ctx context.Context, _ interface{}) (interface{}, error) {
			return nil, h.messageRepo.DeleteByUserID(ctx, cmd.UserID)
		}, 3, 200*time.Millisecond).
		WithRetryableStep("delete_account", func(ctx context.Context, _ interface{}) (interface{}, error) {
			return nil, h.accountRepo.Delete(ctx, cmd.UserID)
		}, 3, 200*time.Millisecond).
		Build()

	if _, err := saga.Execute(ctx, nil); err != nil {
		return err
	}

	event := events.NewUserDataDeleted(cmd.UserID, h.clock.Now())
	if err := h.eventBus.Publish(ctx, event); err != nil {
		h.logger.Warn("failed to publish deletion event", zap.Error(err))
	}

	h.logger.Info("user data deleted", zap.String("userID", cmd.UserID))
	return nil
}
