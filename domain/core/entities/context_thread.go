package entities

import (
	"strings"
	"time"

	"engram/domain/config"
	"engram/domain/core/valueobjects"
	pkgerrors "engram/pkg/errors"
)

// Sentiment is the classified mood of a user turn
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNegative   Sentiment = "negative"
	SentimentNeutral    Sentiment = "neutral"
	SentimentExcited    Sentiment = "excited"
	SentimentCurious    Sentiment = "curious"
	SentimentFrustrated Sentiment = "frustrated"
)

// TaskStatus is the lifecycle state of an ongoing task
type TaskStatus string

const (
	TaskActive    TaskStatus = "active"
	TaskPaused    TaskStatus = "paused"
	TaskCompleted TaskStatus = "completed"
	TaskCancelled TaskStatus = "cancelled"
)

// Task is a user-stated piece of ongoing work tracked within a thread
type Task struct {
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// EntityType classifies a mentioned entity
type EntityType string

const (
	EntityPerson     EntityType = "person"
	EntityCompany    EntityType = "company"
	EntityTechnology EntityType = "technology"
	EntityLocation   EntityType = "location"
	EntityProject    EntityType = "project"
	EntityDate       EntityType = "date"
	EntityOther      EntityType = "other"
)

// Entity is something named in conversation, with the surrounding context
type Entity struct {
	Name    string     `json:"name"`
	Type    EntityType `json:"entity_type"`
	Context string     `json:"context"`
}

// ConversationContext is the mutable per-thread working state. It is
// created on the first message of a thread, updated on every subsequent
// message, and retained for recall; archival after prolonged inactivity
// is a configuration decision, never an automatic delete.
type ConversationContext struct {
	threadID          valueobjects.ThreadID
	userID            string
	topic             string
	lastMessage       time.Time
	sentiment         Sentiment
	ongoingTasks      []Task
	mentionedEntities []Entity
	relatedMemories   []valueobjects.NodeID
	archived          bool
	createdAt         time.Time
}

// NewConversationContext creates the context for a thread's first message
func NewConversationContext(threadID valueobjects.ThreadID, userID string) (*ConversationContext, error) {
	if threadID.IsZero() {
		return nil, pkgerrors.NewValidationError("threadID cannot be empty")
	}
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}

	now := time.Now()
	return &ConversationContext{
		threadID:    threadID,
		userID:      userID,
		sentiment:   SentimentNeutral,
		lastMessage: now,
		createdAt:   now,
	}, nil
}

// ReconstructConversationContext recreates a thread context from stored data
func ReconstructConversationContext(
	threadID valueobjects.ThreadID,
	userID, topic string,
	lastMessage time.Time,
	sentiment Sentiment,
	tasks []Task,
	entities []Entity,
	relatedMemories []valueobjects.NodeID,
	archived bool,
	createdAt time.Time,
) *ConversationContext {
	return &ConversationContext{
		threadID:          threadID,
		userID:            userID,
		topic:             topic,
		lastMessage:       lastMessage,
		sentiment:         sentiment,
		ongoingTasks:      append([]Task{}, tasks...),
		mentionedEntities: append([]Entity{}, entities...),
		relatedMemories:   append([]valueobjects.NodeID{}, relatedMemories...),
		archived:          archived,
		createdAt:         createdAt,
	}
}

// ThreadID returns the thread identifier
func (c *ConversationContext) ThreadID() valueobjects.ThreadID {
	return c.threadID
}

// UserID returns the owner's ID
func (c *ConversationContext) UserID() string {
	return c.userID
}

// Topic returns the current conversation topic
func (c *ConversationContext) Topic() string {
	return c.topic
}

// Sentiment returns the most recent classified sentiment
func (c *ConversationContext) Sentiment() Sentiment {
	return c.sentiment
}

// LastMessageAt returns the timestamp of the latest message in the thread
func (c *ConversationContext) LastMessageAt() time.Time {
	return c.lastMessage
}

// CreatedAt returns when the thread context was created
func (c *ConversationContext) CreatedAt() time.Time {
	return c.createdAt
}

// IsArchived reports whether the thread has been archived for inactivity
func (c *ConversationContext) IsArchived() bool {
	return c.archived
}

// RecordMessage updates the thread state for one turn. Every turn updates
// the timestamp and sentiment, even when extraction produced nothing.
func (c *ConversationContext) RecordMessage(topic string, sentiment Sentiment) {
	if topic != "" {
		c.topic = topic
	}
	if sentiment != "" {
		c.sentiment = sentiment
	}
	c.lastMessage = time.Now()
	c.archived = false
}

// MergeEntity adds a mentioned entity, or refreshes the context of an
// already-known one. The same entity mentioned across turns appears once.
func (c *ConversationContext) MergeEntity(entity Entity, cfg *config.DomainConfig) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	name := strings.TrimSpace(entity.Name)
	if name == "" {
		return
	}
	for i, e := range c.mentionedEntities {
		if strings.EqualFold(e.Name, name) {
			c.mentionedEntities[i].Context = entity.Context
			if entity.Type != "" && entity.Type != EntityOther {
				c.mentionedEntities[i].Type = entity.Type
			}
			return
		}
	}
	if len(c.mentionedEntities) >= cfg.MaxEntitiesPerThread {
		return
	}
	entity.Name = name
	c.mentionedEntities = append(c.mentionedEntities, entity)
}

// MentionedEntities returns the entities seen in this thread
func (c *ConversationContext) MentionedEntities() []Entity {
	out := make([]Entity, len(c.mentionedEntities))
	copy(out, c.mentionedEntities)
	return out
}

// UpsertTask creates or updates a task by description match
func (c *ConversationContext) UpsertTask(description string, status TaskStatus, dueDate *time.Time, cfg *config.DomainConfig) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return
	}
	for i, t := range c.ongoingTasks {
		if strings.EqualFold(t.Description, description) {
			c.ongoingTasks[i].Status = status
			if dueDate != nil {
				c.ongoingTasks[i].DueDate = dueDate
			}
			return
		}
	}
	if len(c.ongoingTasks) >= cfg.MaxTasksPerThread {
		return
	}
	c.ongoingTasks = append(c.ongoingTasks, Task{
		Description: description,
		Status:      status,
		CreatedAt:   time.Now(),
		DueDate:     dueDate,
	})
}

// OngoingTasks returns the thread's tasks
func (c *ConversationContext) OngoingTasks() []Task {
	out := make([]Task, len(c.ongoingTasks))
	copy(out, c.ongoingTasks)
	return out
}

// LinkMemory records that a memory node is relevant to this thread
func (c *ConversationContext) LinkMemory(nodeID valueobjects.NodeID) {
	for _, id := range c.relatedMemories {
		if id.Equals(nodeID) {
			return
		}
	}
	c.relatedMemories = append(c.relatedMemories, nodeID)
}

// RelatedMemories returns the memory nodes linked to this thread
func (c *ConversationContext) RelatedMemories() []valueobjects.NodeID {
	out := make([]valueobjects.NodeID, len(c.relatedMemories))
	copy(out, c.relatedMemories)
	return out
}

// ArchiveIfInactive marks the thread archived when it has been quiet
// beyond the configured window. Archived threads still serve recall.
func (c *ConversationContext) ArchiveIfInactive(now time.Time, cfg *config.DomainConfig) bool {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if !cfg.ArchiveThreads || cfg.ThreadArchiveAfter <= 0 || c.archived {
		return false
	}
	if now.Sub(c.lastMessage) < cfg.ThreadArchiveAfter {
		return false
	}
	c.archived = true
	return true
}
