package queries

import (
	"context"
	"errors"
	"time"

	"engram/application/ports"
	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
)

// GetConversationsQuery retrieves a user's conversation log. ThreadID
// narrows it to one thread; otherwise the log pages newest first.
type GetConversationsQuery struct {
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id,omitempty"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

// Validate validates the query
func (q GetConversationsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return errors.New("limit and offset cannot be negative")
	}
	return nil
}

// ChatMessageDTO is a data transfer object for one logged turn
type ChatMessageDTO struct {
	Role               string                   `json:"role"`
	Content            string                   `json:"content"`
	Provider           string                   `json:"provider,omitempty"`
	Timestamp          time.Time                `json:"timestamp"`
	CyclesCost         *uint64                  `json:"cycles_cost,omitempty"`
	Sentiment          string                   `json:"sentiment,omitempty"`
	ThreadID           string                   `json:"thread_id,omitempty"`
	ReferencedMemories []string                 `json:"referenced_memories,omitempty"`
	Strategy           *entities.StrategyRecord `json:"strategy,omitempty"`
	ExtractedFacts     []entities.ExtractedFact `json:"extracted_facts,omitempty"`
}

// GetConversationsResult represents the query result
type GetConversationsResult struct {
	Messages []ChatMessageDTO `json:"messages"`
	Total    int              `json:"total"`
}

// GetConversationsHandler handles the GetConversationsQuery
type GetConversationsHandler struct {
	messageRepo ports.MessageRepository
}

// NewGetConversationsHandler creates a new handler instance
func NewGetConversationsHandler(messageRepo ports.MessageRepository) *GetConversationsHandler {
	return &GetConversationsHandler{messageRepo: messageRepo}
}

// Handle executes the get conversations query
func (h *GetConversationsHandler) Handle(ctx context.Context, query GetConversationsQuery) (*GetConversationsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	limit := query.Limit
	if limit == 0 {
		limit = 50
	}

	var messages []*entities.EnhancedChatMessage
	var err error
	if query.ThreadID != "" {
		threadID, terr := valueobjects.NewThreadIDFromString(query.ThreadID)
		if terr != nil {
			return nil, terr
		}
		messages, err = h.messageRepo.GetByThread(ctx, query.UserID, threadID)
	} else {
		messages, err = h.messageRepo.GetByUserID(ctx, query.UserID, limit, query.Offset)
	}
	if err != nil {
		return nil, err
	}

	total, err := h.messageRepo.CountByUserID(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	result := &GetConversationsResult{
		Messages: make([]ChatMessageDTO, 0, len(messages)),
		Total:    total,
	}
	for _, msg := range messages {
		dto := ChatMessageDTO{
			Role:           msg.Role,
			Content:        msg.Content,
			Provider:       msg.Provider,
			Timestamp:      msg.Timestamp,
			CyclesCost:     msg.CyclesCost,
			Sentiment:      string(msg.UserSentiment),
			Strategy:       msg.ResponseStrategy,
			ExtractedFacts: msg.ExtractedFacts,
		}
		if msg.ContextThreadID != nil {
			dto.ThreadID = msg.ContextThreadID.String()
		}
		for _, id := range msg.ReferencedMemories {
			dto.ReferencedMemories = append(dto.ReferencedMemories, id.String())
		}
		result.Messages = append(result.Messages, dto)
	}
	return result, nil
}
