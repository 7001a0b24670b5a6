package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testQuery struct {
	UserID string
}

func (q testQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

type fakeCache struct {
	entries map[string]interface{}
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]interface{})}
}

func (c *fakeCache) Get(ctx context.Context, key string) (interface{}, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c.entries[key] = value
	c.sets++
	return nil
}

func TestQueryBus_Ask_ReturnsHandlerResult(t *testing.T) {
	b := NewQueryBus()

	handler := QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		q := query.(testQuery)
		return "result for " + q.UserID, nil
	})
	require.NoError(t, b.Register(testQuery{}, handler))

	result, err := b.Ask(context.Background(), testQuery{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "result for user-1", result)
}

func TestQueryBus_Ask_NoHandler(t *testing.T) {
	b := NewQueryBus()

	_, err := b.Ask(context.Background(), testQuery{UserID: "user-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestQueryBus_Ask_ValidationFailure(t *testing.T) {
	b := NewQueryBus()

	called := false
	handler := QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, b.Register(testQuery{}, handler))

	_, err := b.Ask(context.Background(), testQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.False(t, called)
}

func TestQueryBus_Register_RejectsDuplicate(t *testing.T) {
	b := NewQueryBus()
	handler := QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return nil, nil
	})

	require.NoError(t, b.Register(testQuery{}, handler))
	err := b.Register(testQuery{}, handler)
	assert.ErrorIs(t, err, ErrDuplicateHandler)
}

func TestCachingMiddleware_ServesRepeatedQueriesFromCache(t *testing.T) {
	cache := newFakeCache()
	mw := NewCachingMiddleware(cache, 60)

	calls := 0
	handler := mw.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		calls++
		return "fresh", nil
	}))

	ctx := context.Background()
	first, err := handler.Handle(ctx, testQuery{UserID: "user-1"})
	require.NoError(t, err)
	second, err := handler.Handle(ctx, testQuery{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, "fresh", first)
	assert.Equal(t, "fresh", second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.sets)

	// Different field values get their own entry
	_, err = handler.Handle(ctx, testQuery{UserID: "user-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCachingMiddleware_NeverCachesErrors(t *testing.T) {
	cache := newFakeCache()
	mw := NewCachingMiddleware(cache, 60)

	calls := 0
	handler := mw.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		calls++
		return nil, errors.New("backend down")
	}))

	ctx := context.Background()
	_, err := handler.Handle(ctx, testQuery{UserID: "user-1"})
	require.Error(t, err)
	_, err = handler.Handle(ctx, testQuery{UserID: "user-1"})
	require.Error(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, cache.sets)
}
