package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	ErrHandlerNotFound  = errors.New("no handler registered for query")
	ErrDuplicateHandler = errors.New("handler already registered for query")
)

// Query is a read-only request. Validate runs before dispatch.
type Query interface {
	Validate() error
}

// QueryHandler answers one query type.
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryHandlerFunc adapts a function to the QueryHandler interface.
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// QueryBus routes each query to the single handler registered for its
// concrete type.
type QueryBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]QueryHandler
}

func NewQueryBus() *QueryBus {
	return &QueryBus{handlers: make(map[reflect.Type]QueryHandler)}
}

// Register binds a handler to the concrete type of queryType.
func (b *QueryBus) Register(queryType Query, handler QueryHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(queryType)
	if _, ok := b.handlers[t]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, t.Name())
	}
	b.handlers[t] = handler
	return nil
}

// Ask validates the query, dispatches it and returns the handler's
// result.
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("query validation failed: %w", err)
	}

	b.mu.RLock()
	handler, ok := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrHandlerNotFound, query)
	}

	return handler.Handle(ctx, query)
}

// Cache is the read-through cache surface used by CachingMiddleware.
// TTLs are in seconds.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl int) error
}

// CachingMiddleware serves repeated queries from cache. The key is
// derived from the query's concrete type and field values, so two
// queries with equal fields share an entry.
type CachingMiddleware struct {
	cache Cache
	ttl   int
}

func NewCachingMiddleware(cache Cache, ttl int) *CachingMiddleware {
	return &CachingMiddleware{cache: cache, ttl: ttl}
}

// Wrap adds read-through caching to a handler. Errors are never
// cached.
func (m *CachingMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		key := fmt.Sprintf("%T:%+v", query, query)

		if hit, ok := m.cache.Get(ctx, key); ok {
			return hit, nil
		}

		result, err := next.Handle(ctx, query)
		if err != nil {
			return nil, err
		}

		_ = m.cache.Set(ctx, key, result, m.ttl)
		return result, nil
	})
}
