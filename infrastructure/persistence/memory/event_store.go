package memory

import (
	"context"
	"sync"

	"engram/application/ports"
	"engram/domain/events"
)

// EventStore keeps published domain events in append order for auditing.
type EventStore struct {
	mu     sync.RWMutex
	stream []events.DomainEvent
}

// NewEventStore creates an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

var _ ports.EventStore = (*EventStore)(nil)

// SaveEvents persists domain events.
func (s *EventStore) SaveEvents(ctx context.Context, batch []events.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = append(s.stream, batch...)
	return nil
}

// GetEvents retrieves events for an aggregate, oldest first.
func (s *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []events.DomainEvent
	for _, event := range s.stream {
		if event.GetAggregateID() == aggregateID {
			result = append(result, event)
		}
	}
	return result, nil
}

// GetEventsByType retrieves events of a specific type, newest first.
func (s *EventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []events.DomainEvent
	for i := len(s.stream) - 1; i >= 0; i-- {
		if s.stream[i].GetEventType() != eventType {
			continue
		}
		result = append(result, s.stream[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// DeleteEvents removes all events for an aggregate.
func (s *EventStore) DeleteEvents(ctx context.Context, aggregateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := s.stream[:0]
	for _, event := range s.stream {
		if event.GetAggregateID() != aggregateID {
			filtered = append(filtered, event)
		}
	}
	s.stream = filtered
	return nil
}
