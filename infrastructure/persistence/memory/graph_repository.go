// Package memory provides in-process implementations of the persistence
// ports. They back local development, tests and the single-node deployment
// mode. Callers are expected to serialize per-user writes through a
// UserLocker; the store itself only guards its maps.
package memory

import (
	"context"
	"sync"

	"engram/application/ports"
	"engram/domain/core/aggregates"
	pkgerrors "engram/pkg/errors"
)

// GraphRepository stores each user's knowledge graph in a map.
type GraphRepository struct {
	mu     sync.RWMutex
	graphs map[string]*aggregates.PersonalKnowledgeGraph
}

// NewGraphRepository creates an empty in-memory graph repository.
func NewGraphRepository() *GraphRepository {
	return &GraphRepository{
		graphs: make(map[string]*aggregates.PersonalKnowledgeGraph),
	}
}

var _ ports.GraphRepository = (*GraphRepository)(nil)

// Save persists the full graph state.
func (r *GraphRepository) Save(ctx context.Context, graph *aggregates.PersonalKnowledgeGraph) error {
	if graph == nil {
		return pkgerrors.NewValidationError("graph cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphs[graph.UserID()] = graph
	return nil
}

// GetByUserID retrieves a user's graph.
func (r *GraphRepository) GetByUserID(ctx context.Context, userID string) (*aggregates.PersonalKnowledgeGraph, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	graph, exists := r.graphs[userID]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("graph for user " + userID)
	}
	return graph, nil
}

// GetOrCreate retrieves a user's graph, creating an empty one when none exists.
func (r *GraphRepository) GetOrCreate(ctx context.Context, userID string) (*aggregates.PersonalKnowledgeGraph, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if graph, exists := r.graphs[userID]; exists {
		return graph, nil
	}

	graph, err := aggregates.NewPersonalKnowledgeGraph(userID, nil)
	if err != nil {
		return nil, err
	}
	r.graphs[userID] = graph
	return graph, nil
}

// Delete removes a user's graph.
func (r *GraphRepository) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.graphs, userID)
	return nil
}

// CountUsers returns how many users have a graph.
func (r *GraphRepository) CountUsers(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.graphs), nil
}
