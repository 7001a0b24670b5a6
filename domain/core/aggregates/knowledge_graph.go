package aggregates

import (
	"sort"
	"strings"
	"time"

	"engram/domain/config"
	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
	"engram/domain/events"
	pkgerrors "engram/pkg/errors"
)

// RelationshipType classifies how two memories relate
type RelationshipType string

const (
	RelationshipRelated    RelationshipType = "related"
	RelationshipPartOf     RelationshipType = "part_of"
	RelationshipUsedFor    RelationshipType = "used_for"
	RelationshipOppositeOf RelationshipType = "opposite_of"
	RelationshipExampleOf  RelationshipType = "example_of"
	RelationshipLeadsTo    RelationshipType = "leads_to"
	RelationshipCausedBy   RelationshipType = "caused_by"
)

// ValidRelationship reports whether rt is a known relationship type
func ValidRelationship(rt RelationshipType) bool {
	switch rt {
	case RelationshipRelated, RelationshipPartOf, RelationshipUsedFor,
		RelationshipOppositeOf, RelationshipExampleOf,
		RelationshipLeadsTo, RelationshipCausedBy:
		return true
	}
	return false
}

// KnowledgeEdge is a directed, typed connection between two memory nodes
type KnowledgeEdge struct {
	FromID       valueobjects.NodeID `json:"from_id"`
	ToID         valueobjects.NodeID `json:"to_id"`
	Relationship RelationshipType    `json:"relationship"`
	Strength     float64             `json:"strength"`
	Context      string              `json:"context,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// ScoredMemory pairs a node with its relevance for a retrieval request
type ScoredMemory struct {
	Node  *entities.MemoryNode
	Score float64
}

// PersonalKnowledgeGraph is the aggregate root for one user's memory.
// It holds the memory nodes, the typed edges between them, the
// conversation threads, the learned profile, and the learning history,
// and it enforces the consistency rules across all of them.
type PersonalKnowledgeGraph struct {
	userID    string
	nodes     map[valueobjects.NodeID]*entities.MemoryNode
	edges     map[string]*KnowledgeEdge
	threads   map[valueobjects.ThreadID]*entities.ConversationContext
	profile   *entities.UserProfile
	history   *entities.LearningHistory
	cfg       *config.DomainConfig
	createdAt time.Time
	updatedAt time.Time
	version   int
	events    []events.DomainEvent
}

// NewPersonalKnowledgeGraph creates an empty graph for a user
func NewPersonalKnowledgeGraph(userID string, cfg *config.DomainConfig) (*PersonalKnowledgeGraph, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	now := time.Now()
	return &PersonalKnowledgeGraph{
		userID:    userID,
		nodes:     make(map[valueobjects.NodeID]*entities.MemoryNode),
		edges:     make(map[string]*KnowledgeEdge),
		threads:   make(map[valueobjects.ThreadID]*entities.ConversationContext),
		profile:   entities.NewUserProfile(),
		history:   entities.NewLearningHistory(),
		cfg:       cfg,
		createdAt: now,
		updatedAt: now,
		version:   1,
		events:    []events.DomainEvent{},
	}, nil
}

// ReconstructPersonalKnowledgeGraph recreates a graph from stored state
func ReconstructPersonalKnowledgeGraph(
	userID string,
	nodes []*entities.MemoryNode,
	edges []*KnowledgeEdge,
	threads []*entities.ConversationContext,
	profile *entities.UserProfile,
	history *entities.LearningHistory,
	cfg *config.DomainConfig,
	createdAt, updatedAt time.Time,
) (*PersonalKnowledgeGraph, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	g := &PersonalKnowledgeGraph{
		userID:    userID,
		nodes:     make(map[valueobjects.NodeID]*entities.MemoryNode, len(nodes)),
		edges:     make(map[string]*KnowledgeEdge, len(edges)),
		threads:   make(map[valueobjects.ThreadID]*entities.ConversationContext, len(threads)),
		profile:   profile,
		history:   history,
		cfg:       cfg,
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   1,
		events:    []events.DomainEvent{},
	}
	for _, n := range nodes {
		g.nodes[n.ID()] = n
	}
	for _, e := range edges {
		g.edges[edgeKey(e.FromID, e.ToID, e.Relationship)] = e
	}
	for _, t := range threads {
		g.threads[t.ThreadID()] = t
	}
	if g.profile == nil {
		g.profile = entities.NewUserProfile()
	}
	if g.history == nil {
		g.history = entities.NewLearningHistory()
	}
	return g, nil
}

// UserID returns the graph owner
func (g *PersonalKnowledgeGraph) UserID() string { return g.userID }

// CreatedAt returns when the graph was created
func (g *PersonalKnowledgeGraph) CreatedAt() time.Time { return g.createdAt }

// UpdatedAt returns when the graph last changed
func (g *PersonalKnowledgeGraph) UpdatedAt() time.Time { return g.updatedAt }

// NodeCount returns the number of memory nodes
func (g *PersonalKnowledgeGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges
func (g *PersonalKnowledgeGraph) EdgeCount() int { return len(g.edges) }

// Profile returns the learned user profile
func (g *PersonalKnowledgeGraph) Profile() *entities.UserProfile { return g.profile }

// History returns the learning history
func (g *PersonalKnowledgeGraph) History() *entities.LearningHistory { return g.history }

// Nodes returns the memory nodes
func (g *PersonalKnowledgeGraph) Nodes() []*entities.MemoryNode {
	nodes := make([]*entities.MemoryNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	return nodes
}

// Edges returns the knowledge edges
func (g *PersonalKnowledgeGraph) Edges() []*KnowledgeEdge {
	edges := make([]*KnowledgeEdge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	return edges
}

// Threads returns the conversation threads
func (g *PersonalKnowledgeGraph) Threads() []*entities.ConversationContext {
	threads := make([]*entities.ConversationContext, 0, len(g.threads))
	for _, t := range g.threads {
		threads = append(threads, t)
	}
	return threads
}

// GetNode retrieves a node by ID
func (g *PersonalKnowledgeGraph) GetNode(nodeID valueobjects.NodeID) (*entities.MemoryNode, error) {
	node, exists := g.nodes[nodeID]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("memory node " + nodeID.String())
	}
	return node, nil
}

// HasNode checks whether a node exists in the graph
func (g *PersonalKnowledgeGraph) HasNode(nodeID valueobjects.NodeID) bool {
	_, exists := g.nodes[nodeID]
	return exists
}

// GetThread retrieves a conversation thread by ID
func (g *PersonalKnowledgeGraph) GetThread(threadID valueobjects.ThreadID) (*entities.ConversationContext, error) {
	thread, exists := g.threads[threadID]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("conversation thread " + threadID.String())
	}
	return thread, nil
}

// EnsureThread returns the thread with the given ID, creating it first
// when it does not exist yet
func (g *PersonalKnowledgeGraph) EnsureThread(threadID valueobjects.ThreadID) (*entities.ConversationContext, error) {
	if thread, exists := g.threads[threadID]; exists {
		return thread, nil
	}
	thread, err := entities.NewConversationContext(threadID, g.userID)
	if err != nil {
		return nil, err
	}
	g.threads[threadID] = thread
	g.touch()
	return thread, nil
}

// AddNode adds a memory node to the graph
func (g *PersonalKnowledgeGraph) AddNode(node *entities.MemoryNode) error {
	if node == nil {
		return pkgerrors.NewValidationError("node cannot be nil")
	}
	if node.UserID() != g.userID {
		return pkgerrors.NewValidationError("node belongs to a different user")
	}
	if _, exists := g.nodes[node.ID()]; exists {
		return pkgerrors.NewConflictError("node already exists in graph")
	}
	if len(g.nodes) >= g.cfg.MaxNodesPerUser {
		return pkgerrors.NewValidationError("maximum nodes reached")
	}

	g.nodes[node.ID()] = node
	g.touch()
	return nil
}

// UpsertNode adds a node or, when a node with the same ID already
// exists, replaces its stored form
func (g *PersonalKnowledgeGraph) UpsertNode(node *entities.MemoryNode) error {
	if node == nil {
		return pkgerrors.NewValidationError("node cannot be nil")
	}
	if node.UserID() != g.userID {
		return pkgerrors.NewValidationError("node belongs to a different user")
	}
	if _, exists := g.nodes[node.ID()]; !exists && len(g.nodes) >= g.cfg.MaxNodesPerUser {
		return pkgerrors.NewValidationError("maximum nodes reached")
	}

	g.nodes[node.ID()] = node
	g.touch()
	return nil
}

// Link connects two memory nodes with a typed edge. Both endpoints must
// exist, self-loops are rejected, and linking an already linked pair
// with the same relationship updates the existing edge's strength
// instead of creating a duplicate.
func (g *PersonalKnowledgeGraph) Link(fromID, toID valueobjects.NodeID, relationship RelationshipType, strength float64, context string) (*KnowledgeEdge, error) {
	if !ValidRelationship(relationship) {
		return nil, pkgerrors.NewValidationError("unknown relationship type: " + string(relationship))
	}
	if fromID.Equals(toID) {
		return nil, pkgerrors.NewValidationError("cannot link a node to itself")
	}
	if _, exists := g.nodes[fromID]; !exists {
		return nil, pkgerrors.NewNotFoundError("memory node " + fromID.String())
	}
	if _, exists := g.nodes[toID]; !exists {
		return nil, pkgerrors.NewNotFoundError("memory node " + toID.String())
	}
	if strength == 0 {
		strength = g.cfg.DefaultEdgeStrength
	}
	strength = g.clampStrength(strength)

	key := edgeKey(fromID, toID, relationship)
	if existing, exists := g.edges[key]; exists {
		existing.Strength = g.clampStrength(existing.Strength + strength/2)
		if context != "" {
			existing.Context = context
		}
		g.touch()
		g.addEvent(events.NewEdgeStrengthened(fromID, toID, existing.Strength, g.updatedAt))
		return existing, nil
	}

	if len(g.edges) >= g.cfg.MaxEdgesPerUser {
		return nil, pkgerrors.NewValidationError("maximum edges reached")
	}

	edge := &KnowledgeEdge{
		FromID:       fromID,
		ToID:         toID,
		Relationship: relationship,
		Strength:     strength,
		Context:      context,
		CreatedAt:    time.Now(),
	}
	g.edges[key] = edge
	g.touch()
	g.addEvent(events.NewNodesLinked(fromID, toID, string(relationship), strength, g.updatedAt))
	return edge, nil
}

// Strengthen raises the strength of an existing edge by delta, clamped
// to [0, 1]
func (g *PersonalKnowledgeGraph) Strengthen(fromID, toID valueobjects.NodeID, relationship RelationshipType, delta float64) error {
	edge, exists := g.edges[edgeKey(fromID, toID, relationship)]
	if !exists {
		return pkgerrors.NewNotFoundError("knowledge edge " + edgeKey(fromID, toID, relationship))
	}
	edge.Strength = g.clampStrength(edge.Strength + delta)
	g.touch()
	g.addEvent(events.NewEdgeStrengthened(fromID, toID, edge.Strength, g.updatedAt))
	return nil
}

// Neighbors returns the edges leaving a node
func (g *PersonalKnowledgeGraph) Neighbors(nodeID valueobjects.NodeID) []*KnowledgeEdge {
	var out []*KnowledgeEdge
	for _, edge := range g.edges {
		if edge.FromID.Equals(nodeID) {
			out = append(out, edge)
		}
	}
	return out
}

// RemoveNode deletes a node and prunes every edge touching it
func (g *PersonalKnowledgeGraph) RemoveNode(nodeID valueobjects.NodeID) error {
	if _, exists := g.nodes[nodeID]; !exists {
		return pkgerrors.NewNotFoundError("memory node " + nodeID.String())
	}

	var stale []string
	for key, edge := range g.edges {
		if edge.FromID.Equals(nodeID) || edge.ToID.Equals(nodeID) {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		delete(g.edges, key)
	}

	delete(g.nodes, nodeID)
	g.touch()
	g.addEvent(events.NewMemoryForgotten(nodeID, g.userID, g.updatedAt))
	return nil
}

// Touch records an access on a node, bumping its importance and count
func (g *PersonalKnowledgeGraph) Touch(nodeID valueobjects.NodeID) error {
	node, exists := g.nodes[nodeID]
	if !exists {
		return pkgerrors.NewNotFoundError("memory node " + nodeID.String())
	}
	node.Touch(g.cfg)
	g.touch()
	return nil
}

// DecayPass applies importance decay to every node that has gone
// unaccessed past the decay window. Returns the number of nodes whose
// importance changed.
func (g *PersonalKnowledgeGraph) DecayPass(now time.Time) int {
	decayed := 0
	for _, node := range g.nodes {
		if node.Decay(now, g.cfg) {
			decayed++
		}
	}
	if decayed > 0 {
		g.touch()
	}
	return decayed
}

// RankMemories returns up to limit nodes most relevant to the query
// terms, ordered by score. With no terms every node competes on its
// retrieval score alone.
func (g *PersonalKnowledgeGraph) RankMemories(terms []string, limit int, now time.Time) []ScoredMemory {
	if limit <= 0 {
		limit = g.cfg.RetrievalLimit
	}

	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			lowered = append(lowered, t)
		}
	}

	scored := make([]ScoredMemory, 0, len(g.nodes))
	for _, node := range g.nodes {
		base := node.RetrievalScore(now, g.cfg)
		matches := 0
		content := strings.ToLower(node.Content())
		for _, term := range lowered {
			if strings.Contains(content, term) || node.HasTag(term) {
				matches++
			}
		}
		if len(lowered) > 0 && matches == 0 {
			continue
		}
		scored = append(scored, ScoredMemory{
			Node:  node,
			Score: base * (1 + float64(matches)),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Node.ID().String() < scored[j].Node.ID().String()
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// TraverseContext walks outward from seed nodes following edges up to
// the configured depth, scoring each reached node by the product of
// edge strengths along the path times its importance. Seeds themselves
// are not returned.
func (g *PersonalKnowledgeGraph) TraverseContext(seeds []valueobjects.NodeID) []ScoredMemory {
	type frontier struct {
		id        valueobjects.NodeID
		pathScore float64
		depth     int
	}

	best := make(map[valueobjects.NodeID]float64)
	seedSet := make(map[valueobjects.NodeID]bool, len(seeds))
	queue := make([]frontier, 0, len(seeds))
	for _, s := range seeds {
		if _, exists := g.nodes[s]; !exists {
			continue
		}
		seedSet[s] = true
		queue = append(queue, frontier{id: s, pathScore: 1.0, depth: 0})
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= g.cfg.TraversalDepth {
			continue
		}
		for _, edge := range g.edges {
			if !edge.FromID.Equals(current.id) {
				continue
			}
			score := current.pathScore * edge.Strength
			if prev, seen := best[edge.ToID]; seen && prev >= score {
				continue
			}
			best[edge.ToID] = score
			queue = append(queue, frontier{id: edge.ToID, pathScore: score, depth: current.depth + 1})
		}
	}

	out := make([]ScoredMemory, 0, len(best))
	for id, score := range best {
		if seedSet[id] {
			continue
		}
		node := g.nodes[id]
		out = append(out, ScoredMemory{Node: node, Score: score * node.Importance()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Node.ID().String() < out[j].Node.ID().String()
	})
	return out
}

// ArchiveInactiveThreads archives threads idle past the configured
// window and returns how many were archived
func (g *PersonalKnowledgeGraph) ArchiveInactiveThreads(now time.Time) int {
	if !g.cfg.ArchiveThreads {
		return 0
	}
	archived := 0
	for _, thread := range g.threads {
		if thread.ArchiveIfInactive(now, g.cfg) {
			archived++
			g.addEvent(events.NewThreadArchived(g.userID, thread.ThreadID().String(), now))
		}
	}
	if archived > 0 {
		g.touch()
	}
	return archived
}

// RecordProfileUpdate notes an explicit profile edit made outside the
// learning pipeline so downstream consumers hear about it
func (g *PersonalKnowledgeGraph) RecordProfileUpdate(fields []string, now time.Time) {
	if len(fields) == 0 {
		return
	}
	g.addEvent(events.NewProfileUpdated(g.userID, fields, now))
	g.updatedAt = now
	g.version++
}

// Validate ensures graph invariants hold
func (g *PersonalKnowledgeGraph) Validate() error {
	for _, edge := range g.edges {
		if _, exists := g.nodes[edge.FromID]; !exists {
			return pkgerrors.NewValidationError("edge references missing source node " + edge.FromID.String())
		}
		if _, exists := g.nodes[edge.ToID]; !exists {
			return pkgerrors.NewValidationError("edge references missing target node " + edge.ToID.String())
		}
		if edge.FromID.Equals(edge.ToID) {
			return pkgerrors.NewValidationError("graph contains a self-loop at " + edge.FromID.String())
		}
		if edge.Strength < 0 || edge.Strength > 1 {
			return pkgerrors.NewValidationError("edge strength out of range")
		}
	}
	for _, node := range g.nodes {
		if node.UserID() != g.userID {
			return pkgerrors.NewValidationError("node " + node.ID().String() + " belongs to a different user")
		}
	}
	return nil
}

// GetUncommittedEvents returns all uncommitted domain events, including
// those raised by the nodes
func (g *PersonalKnowledgeGraph) GetUncommittedEvents() []events.DomainEvent {
	allEvents := make([]events.DomainEvent, len(g.events))
	copy(allEvents, g.events)

	for _, node := range g.nodes {
		allEvents = append(allEvents, node.GetUncommittedEvents()...)
	}
	return allEvents
}

// MarkEventsAsCommitted clears all uncommitted events
func (g *PersonalKnowledgeGraph) MarkEventsAsCommitted() {
	g.events = []events.DomainEvent{}
	for _, node := range g.nodes {
		node.MarkEventsAsCommitted()
	}
}

func (g *PersonalKnowledgeGraph) addEvent(event events.DomainEvent) {
	g.events = append(g.events, event)
}

func (g *PersonalKnowledgeGraph) touch() {
	g.updatedAt = time.Now()
	g.version++
}

func edgeKey(fromID, toID valueobjects.NodeID, relationship RelationshipType) string {
	return fromID.String() + "->" + toID.String() + ":" + string(relationship)
}

// clampStrength bounds an edge strength to the configured range
func (g *PersonalKnowledgeGraph) clampStrength(s float64) float64 {
	if s < g.cfg.MinEdgeStrength {
		return g.cfg.MinEdgeStrength
	}
	if s > g.cfg.MaxEdgeStrength {
		return g.cfg.MaxEdgeStrength
	}
	return s
}
