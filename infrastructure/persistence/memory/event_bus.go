package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"engram/application/ports"
	"engram/domain/events"
)

// EventBus distributes domain events to in-process subscribers.
// Handler failures are logged and do not stop delivery to other handlers.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
	logger   *zap.Logger
}

// NewEventBus creates an in-process event bus.
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]ports.EventHandler),
		logger:   logger,
	}
}

var _ ports.EventBus = (*EventBus)(nil)

// Publish sends a single event to all matching handlers.
func (b *EventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.mu.RLock()
	handlers := append([]ports.EventHandler(nil), b.handlers[event.GetEventType()]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if !handler.CanHandle(event.GetEventType()) {
			continue
		}
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("event_type", event.GetEventType()),
				zap.String("aggregate_id", event.GetAggregateID()),
				zap.Error(err))
		}
	}
	return nil
}

// PublishBatch sends multiple events.
func (b *EventBus) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a handler for an event type.
func (b *EventBus) Subscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Unsubscribe removes a handler.
func (b *EventBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribed := b.handlers[eventType]
	for i, h := range subscribed {
		if h == handler {
			b.handlers[eventType] = append(subscribed[:i], subscribed[i+1:]...)
			break
		}
	}
	return nil
}
