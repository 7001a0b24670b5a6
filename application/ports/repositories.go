package ports

import (
	"context"
	"time"

	"engram/domain/core/aggregates"
	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
	"engram/domain/events"
)

// GraphRepository defines the interface for knowledge graph persistence.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation.
// A user has exactly one graph, keyed by user ID.
type GraphRepository interface {
	// Save persists the full graph state (create or update)
	Save(ctx context.Context, graph *aggregates.PersonalKnowledgeGraph) error

	// GetByUserID retrieves a user's graph
	GetByUserID(ctx context.Context, userID string) (*aggregates.PersonalKnowledgeGraph, error)

	// GetOrCreate retrieves a user's graph, creating an empty one when none exists
	GetOrCreate(ctx context.Context, userID string) (*aggregates.PersonalKnowledgeGraph, error)

	// Delete removes a user's graph with all nodes, edges and threads
	Delete(ctx context.Context, userID string) error

	// CountUsers returns how many users have a graph
	CountUsers(ctx context.Context) (int, error)
}

// MessageRepository defines the interface for conversation log persistence
type MessageRepository interface {
	// Append stores one message at the end of a user's log
	Append(ctx context.Context, userID string, message *entities.EnhancedChatMessage) error

	// GetByUserID retrieves a user's messages, newest first
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*entities.EnhancedChatMessage, error)

	// GetByThread retrieves the messages of one conversation thread, oldest first
	GetByThread(ctx context.Context, userID string, threadID valueobjects.ThreadID) ([]*entities.EnhancedChatMessage, error)

	// CountByUserID returns the size of a user's log
	CountByUserID(ctx context.Context, userID string) (int, error)

	// DeleteByUserID removes a user's entire log
	DeleteByUserID(ctx context.Context, userID string) error
}

// AccountRepository defines the interface for cycles account persistence
type AccountRepository interface {
	// Save persists an account (create or update)
	Save(ctx context.Context, account *entities.Account) error

	// GetByUserID retrieves a user's account
	GetByUserID(ctx context.Context, userID string) (*entities.Account, error)

	// GetOrCreate retrieves a user's account, creating an empty one when none exists
	GetOrCreate(ctx context.Context, userID string) (*entities.Account, error)

	// Delete removes a user's account
	Delete(ctx context.Context, userID string) error

	// GetRates returns the engine-wide billing rate table
	GetRates(ctx context.Context) (entities.CyclesRates, error)

	// SaveRates replaces the engine-wide billing rate table
	SaveRates(ctx context.Context, rates entities.CyclesRates) error

	// TotalSpent returns lifetime cycles consumed across all accounts
	TotalSpent(ctx context.Context) (uint64, error)
}

// EventStore defines the interface for event persistence
type EventStore interface {
	// SaveEvents persists domain events
	SaveEvents(ctx context.Context, events []events.DomainEvent) error

	// GetEvents retrieves events for an aggregate
	GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error)

	// GetEventsByType retrieves events of a specific type
	GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error)

	// DeleteEvents removes all events for an aggregate
	DeleteEvents(ctx context.Context, aggregateID string) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for in-process event distribution
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}

// UserLocker serializes turn processing per user. Holding a user's lock
// guarantees no other writer mutates that user's graph, log or account.
type UserLocker interface {
	// Lock blocks until the user's lock is held or ctx is done
	Lock(ctx context.Context, userID string) error

	// Unlock releases the user's lock
	Unlock(userID string)
}

// Clock abstracts time for decay and archival scheduling
type Clock interface {
	Now() time.Time
}
