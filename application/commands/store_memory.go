package commands

import (
	"context"
	"errors"

	"engram/application/ports"
	"engram/application/services"
	"engram/domain/config"
	"engram/domain/core/entities"
	"go.uber.org/zap"
)

// StoreMemoryCommand stores one memory node directly, outside the chat
// pipeline. Used by the REST surface for explicit "remember this" input.
type StoreMemoryCommand struct {
	UserID   string   `json:"user_id" validate:"required"`
	NodeType string   `json:"node_type" validate:"required"`
	Content  string   `json:"content" validate:"required,max=20000"`
	Tags     []string `json:"tags" validate:"max=20,dive,min=1,max=30"`
}

// Validate validates the command
func (cmd StoreMemoryCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.Content == "" {
		return errors.New("content is required")
	}
	if !entities.ValidNodeType(entities.NodeType(cmd.NodeType)) {
		return errors.New("unknown node type: " + cmd.NodeType)
	}
	return nil
}

// StoreMemoryHandler handles the StoreMemoryCommand
type StoreMemoryHandler struct {
	graphRepo ports.GraphRepository
	locker    ports.UserLocker
	linker    *services.LinkerService
	eventBus  ports.EventPublisher
	cfg       *config.DomainConfig
	logger    *zap.Logger
}

// NewStoreMemoryHandler creates a new handler instance
func NewStoreMemoryHandler(
	graphRepo ports.GraphRepository,
	locker ports.UserLocker,
	linker *services.LinkerService,
	eventBus ports.EventPublisher,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *StoreMemoryHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &StoreMemoryHandler{
		graphRepo: graphRepo,
		locker:    locker,
		linker:    linker,
		eventBus:  eventBus,
		cfg:       cfg,
		logger:    logger,
	}
}

// Handle executes the store memory command
func (h *StoreMemoryHandler) Handle(ctx context.Context, cmd StoreMemoryCommand) (*entities.MemoryNode, error) {
	if err := h.locker.Lock(ctx, cmd.UserID); err != nil {
		return nil, err
	}
	defer h.locker.Unlock(cmd.UserID)

	graph, err := h.graphRepo.GetOrCreate(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	node, err := entities.NewMemoryNode(cmd.UserID, entities.NodeType(cmd.NodeType), cmd.Content, h.cfg)
	if err != nil {
		return nil, err
	}
	for _, tag := range cmd.Tags {
		if err := node.AddTag(tag, h.cfg); err != nil {
			// Tag limit or bad tag, the node is still worth keeping
			continue
		}
	}

	if err := graph.AddNode(node); err != nil {
		return nil, err
	}
	h.linker.LinkNewNode(graph, node)

	if err := h.graphRepo.Save(ctx, graph); err != nil {
		return nil, err
	}

	if err := h.eventBus.PublishBatch(ctx, graph.GetUncommittedEvents()); err != nil {
		h.logger.Warn("failed to publish memory events", zap.Error(err))
	}
	graph.MarkEventsAsCommitted()

	h.logger.Info("memory stored",
		zap.String("userID", cmd.UserID),
		zap.String("nodeID", node.ID().String()),
		zap.String("nodeType", cmd.NodeType),
	)
	return node, nil
}
