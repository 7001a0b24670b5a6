package events

import (
	"time"

	"engram/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Memory Events

// MemoryStored is raised when a new memory node enters the graph
type MemoryStored struct {
	BaseEvent
	NodeID   valueobjects.NodeID `json:"node_id"`
	UserID   string              `json:"user_id"`
	NodeType string              `json:"node_type"`
}

// NewMemoryStored creates a MemoryStored event
func NewMemoryStored(nodeID valueobjects.NodeID, userID string, nodeType string, timestamp time.Time) MemoryStored {
	return MemoryStored{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "memory.stored",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:   nodeID,
		UserID:   userID,
		NodeType: nodeType,
	}
}

// MemoryForgotten is raised when a memory node is removed from the graph
type MemoryForgotten struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
	UserID string              `json:"user_id"`
}

// NewMemoryForgotten creates a MemoryForgotten event
func NewMemoryForgotten(nodeID valueobjects.NodeID, userID string, timestamp time.Time) MemoryForgotten {
	return MemoryForgotten{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "memory.forgotten",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID: nodeID,
		UserID: userID,
	}
}

// Edge Events

// NodesLinked is raised when two memory nodes are connected
type NodesLinked struct {
	BaseEvent
	FromID       valueobjects.NodeID `json:"from_id"`
	ToID         valueobjects.NodeID `json:"to_id"`
	Relationship string              `json:"relationship"`
	Strength     float64             `json:"strength"`
}

// NewNodesLinked creates a NodesLinked event
func NewNodesLinked(fromID, toID valueobjects.NodeID, relationship string, strength float64, timestamp time.Time) NodesLinked {
	return NodesLinked{
		BaseEvent: BaseEvent{
			AggregateID: fromID.String(),
			EventType:   "nodes.linked",
			Timestamp:   timestamp,
			Version:     1,
		},
		FromID:       fromID,
		ToID:         toID,
		Relationship: relationship,
		Strength:     strength,
	}
}

// EdgeStrengthened is raised when an existing edge gains strength
type EdgeStrengthened struct {
	BaseEvent
	FromID      valueobjects.NodeID `json:"from_id"`
	ToID        valueobjects.NodeID `json:"to_id"`
	NewStrength float64             `json:"new_strength"`
}

// NewEdgeStrengthened creates an EdgeStrengthened event
func NewEdgeStrengthened(fromID, toID valueobjects.NodeID, newStrength float64, timestamp time.Time) EdgeStrengthened {
	return EdgeStrengthened{
		BaseEvent: BaseEvent{
			AggregateID: fromID.String(),
			EventType:   "edge.strengthened",
			Timestamp:   timestamp,
			Version:     1,
		},
		FromID:      fromID,
		ToID:        toID,
		NewStrength: newStrength,
	}
}

// Conversation Events

// TurnProcessed is raised after a chat turn has been fully committed
type TurnProcessed struct {
	BaseEvent
	UserID         string `json:"user_id"`
	ThreadID       string `json:"thread_id,omitempty"`
	FactsExtracted int    `json:"facts_extracted"`
	MemoriesStored int    `json:"memories_stored"`
	Strategy       string `json:"strategy"`
	CyclesCharged  uint64 `json:"cycles_charged"`
}

// NewTurnProcessed creates a TurnProcessed event
func NewTurnProcessed(userID, threadID string, factsExtracted, memoriesStored int, strategy string, cyclesCharged uint64, timestamp time.Time) TurnProcessed {
	return TurnProcessed{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "turn.processed",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:         userID,
		ThreadID:       threadID,
		FactsExtracted: factsExtracted,
		MemoriesStored: memoriesStored,
		Strategy:       strategy,
		CyclesCharged:  cyclesCharged,
	}
}

// Accounting Events

// CyclesDebited is raised when cycles are charged to an account
type CyclesDebited struct {
	BaseEvent
	UserID  string `json:"user_id"`
	Amount  uint64 `json:"amount"`
	Balance uint64 `json:"balance"`
}

// NewCyclesDebited creates a CyclesDebited event
func NewCyclesDebited(userID string, amount, balance uint64, timestamp time.Time) CyclesDebited {
	return CyclesDebited{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "cycles.debited",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:  userID,
		Amount:  amount,
		Balance: balance,
	}
}

// CyclesDeposited is raised when cycles are credited to an account
type CyclesDeposited struct {
	BaseEvent
	UserID  string `json:"user_id"`
	Amount  uint64 `json:"amount"`
	Balance uint64 `json:"balance"`
}

// NewCyclesDeposited creates a CyclesDeposited event
func NewCyclesDeposited(userID string, amount, balance uint64, timestamp time.Time) CyclesDeposited {
	return CyclesDeposited{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "cycles.deposited",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:  userID,
		Amount:  amount,
		Balance: balance,
	}
}

// Profile Events

// ProfileUpdated is raised when learned facts change a user profile
type ProfileUpdated struct {
	BaseEvent
	UserID string   `json:"user_id"`
	Fields []string `json:"fields"`
}

// NewProfileUpdated creates a ProfileUpdated event
func NewProfileUpdated(userID string, fields []string, timestamp time.Time) ProfileUpdated {
	return ProfileUpdated{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "profile.updated",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID: userID,
		Fields: fields,
	}
}

// Thread Events

// ThreadArchived is raised when a conversation thread is archived
type ThreadArchived struct {
	BaseEvent
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id"`
}

// NewThreadArchived creates a ThreadArchived event
func NewThreadArchived(userID, threadID string, timestamp time.Time) ThreadArchived {
	return ThreadArchived{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "thread.archived",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:   userID,
		ThreadID: threadID,
	}
}

// UserDataDeleted is raised when all of a user's data is erased
type UserDataDeleted struct {
	BaseEvent
	UserID string `json:"user_id"`
}

// NewUserDataDeleted creates a UserDataDeleted event
func NewUserDataDeleted(userID string, timestamp time.Time) UserDataDeleted {
	return UserDataDeleted{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "user.data_deleted",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID: userID,
	}
}
