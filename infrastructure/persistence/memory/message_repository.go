package memory

import (
	"context"
	"sync"

	"engram/application/ports"
	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
	pkgerrors "engram/pkg/errors"
)

// MessageRepository stores each user's conversation log in append order.
type MessageRepository struct {
	mu   sync.RWMutex
	logs map[string][]*entities.EnhancedChatMessage
}

// NewMessageRepository creates an empty in-memory message repository.
func NewMessageRepository() *MessageRepository {
	return &MessageRepository{
		logs: make(map[string][]*entities.EnhancedChatMessage),
	}
}

var _ ports.MessageRepository = (*MessageRepository)(nil)

// Append stores one message at the end of a user's log.
func (r *MessageRepository) Append(ctx context.Context, userID string, message *entities.EnhancedChatMessage) error {
	if message == nil {
		return pkgerrors.NewValidationError("message cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[userID] = append(r.logs[userID], message)
	return nil
}

// GetByUserID retrieves a user's messages, newest first.
func (r *MessageRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*entities.EnhancedChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.logs[userID]
	if limit <= 0 {
		limit = len(log)
	}
	if offset < 0 {
		offset = 0
	}

	// Walk the log backwards so the newest message comes first.
	result := make([]*entities.EnhancedChatMessage, 0, limit)
	for i := len(log) - 1 - offset; i >= 0 && len(result) < limit; i-- {
		result = append(result, log[i])
	}
	return result, nil
}

// GetByThread retrieves the messages of one conversation thread, oldest first.
func (r *MessageRepository) GetByThread(ctx context.Context, userID string, threadID valueobjects.ThreadID) ([]*entities.EnhancedChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entities.EnhancedChatMessage
	for _, msg := range r.logs[userID] {
		if msg.ContextThreadID != nil && msg.ContextThreadID.Equals(threadID) {
			result = append(result, msg)
		}
	}
	return result, nil
}

// CountByUserID returns the size of a user's log.
func (r *MessageRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.logs[userID]), nil
}

// DeleteByUserID removes a user's entire log.
func (r *MessageRepository) DeleteByUserID(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.logs, userID)
	return nil
}
