package entities

import (
	"math"
	"strings"
	"time"

	"engram/domain/config"
	"engram/domain/core/valueobjects"
	"engram/domain/events"
	pkgerrors "engram/pkg/errors"
)

// NodeType classifies what kind of knowledge a memory node holds
type NodeType string

const (
	NodeTypeFact         NodeType = "fact"
	NodeTypeGoal         NodeType = "goal"
	NodeTypeKnowledge    NodeType = "knowledge"
	NodeTypeExperience   NodeType = "experience"
	NodeTypePreference   NodeType = "preference"
	NodeTypeContext      NodeType = "context"
	NodeTypeRelationship NodeType = "relationship"
)

// ValidNodeType reports whether t is a known node type
func ValidNodeType(t NodeType) bool {
	switch t {
	case NodeTypeFact, NodeTypeGoal, NodeTypeKnowledge, NodeTypeExperience,
		NodeTypePreference, NodeTypeContext, NodeTypeRelationship:
		return true
	}
	return false
}

// MemoryNode is one durable unit of knowledge about a user.
// This is a rich domain model with encapsulated business logic.
type MemoryNode struct {
	id                   valueobjects.NodeID
	userID               string
	nodeType             NodeType
	content              string
	tags                 []string
	createdAt            time.Time
	lastAccessed         time.Time
	importance           float64
	accessCount          int
	relatedConversations []valueobjects.ThreadID

	// Domain events that occurred during this entity's lifetime
	events []events.DomainEvent
}

// NewMemoryNode creates a new memory node with full business rule validation
func NewMemoryNode(userID string, nodeType NodeType, content string, cfg *config.DomainConfig) (*MemoryNode, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if !ValidNodeType(nodeType) {
		return nil, pkgerrors.NewValidationError("unknown node type: " + string(nodeType))
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, pkgerrors.NewValidationError("content cannot be empty")
	}
	if len(content) > cfg.MaxContentLength {
		return nil, pkgerrors.NewValidationError("content exceeds maximum length")
	}

	now := time.Now()
	node := &MemoryNode{
		id:           valueobjects.NewNodeID(),
		userID:       userID,
		nodeType:     nodeType,
		content:      content,
		tags:         []string{},
		createdAt:    now,
		lastAccessed: now,
		importance:   cfg.InitialImportance,
		accessCount:  0,
		events:       []events.DomainEvent{},
	}

	node.addEvent(events.NewMemoryStored(node.id, userID, string(nodeType), now))

	return node, nil
}

// ReconstructMemoryNode reconstructs a node from repository data with preserved state
func ReconstructMemoryNode(
	id valueobjects.NodeID,
	userID string,
	nodeType NodeType,
	content string,
	tags []string,
	createdAt, lastAccessed time.Time,
	importance float64,
	accessCount int,
	relatedConversations []valueobjects.ThreadID,
) (*MemoryNode, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if content == "" {
		return nil, pkgerrors.NewValidationError("content cannot be empty")
	}

	return &MemoryNode{
		id:                   id,
		userID:               userID,
		nodeType:             nodeType,
		content:              content,
		tags:                 append([]string{}, tags...),
		createdAt:            createdAt,
		lastAccessed:         lastAccessed,
		importance:           importance,
		accessCount:          accessCount,
		relatedConversations: append([]valueobjects.ThreadID{}, relatedConversations...),
		events:               []events.DomainEvent{},
	}, nil
}

// ID returns the node's unique identifier
func (n *MemoryNode) ID() valueobjects.NodeID {
	return n.id
}

// UserID returns the owner's ID
func (n *MemoryNode) UserID() string {
	return n.userID
}

// Type returns the node's type
func (n *MemoryNode) Type() NodeType {
	return n.nodeType
}

// Content returns the stored knowledge text
func (n *MemoryNode) Content() string {
	return n.content
}

// Importance returns the current importance score
func (n *MemoryNode) Importance() float64 {
	return n.importance
}

// AccessCount returns how many times this node contributed to a response
func (n *MemoryNode) AccessCount() int {
	return n.accessCount
}

// CreatedAt returns when the node was created
func (n *MemoryNode) CreatedAt() time.Time {
	return n.createdAt
}

// LastAccessed returns when the node last contributed to a response
func (n *MemoryNode) LastAccessed() time.Time {
	return n.lastAccessed
}

// Touch records one retrieval that contributed to a response. The access
// count increments exactly once per contributing retrieval, and the
// importance score is nudged upward by a bounded increment. Retrieval
// never lowers importance.
func (n *MemoryNode) Touch(cfg *config.DomainConfig) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	n.accessCount++
	n.lastAccessed = time.Now()
	n.importance = clamp(n.importance+cfg.ImportanceNudge, cfg.ImportanceFloor, 1.0)
}

// Decay applies one decay step if the node has been unaccessed beyond the
// configured window. Importance is floored, never zeroed: memories are
// deprioritized, not forgotten. Returns whether the node decayed.
func (n *MemoryNode) Decay(now time.Time, cfg *config.DomainConfig) bool {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if now.Sub(n.lastAccessed) < cfg.DecayWindow {
		return false
	}
	decayed := n.importance * (1 - cfg.DecayRate)
	n.importance = clamp(decayed, cfg.ImportanceFloor, 1.0)
	return true
}

// Boost raises the importance score by delta, bounded to [floor, 1].
// Used when a newer conflicting fact should outrank an older one.
func (n *MemoryNode) Boost(delta float64, cfg *config.DomainConfig) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	n.importance = clamp(n.importance+delta, cfg.ImportanceFloor, 1.0)
}

// RetrievalScore computes the composite ranking score used to select the
// top-K nodes for a query: weighted importance, recency of last access,
// and log-scaled access count.
func (n *MemoryNode) RetrievalScore(now time.Time, cfg *config.DomainConfig) float64 {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	ageDays := now.Sub(n.lastAccessed).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	recency := 1 / (1 + ageDays)

	// log1p(1000) normalizes heavily accessed nodes toward 1
	access := math.Log1p(float64(n.accessCount)) / math.Log1p(1000)
	if access > 1 {
		access = 1
	}

	return cfg.RankImportanceWeight*n.importance +
		cfg.RankRecencyWeight*recency +
		cfg.RankAccessWeight*access
}

// AddTag adds a tag to the node, deduplicating and respecting the tag limit
func (n *MemoryNode) AddTag(tag string, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return pkgerrors.NewValidationError("tag cannot be empty")
	}
	for _, t := range n.tags {
		if t == tag {
			return nil // Tag already exists
		}
	}
	if len(n.tags) >= cfg.MaxTagsPerNode {
		return pkgerrors.NewValidationError("maximum tags reached")
	}

	n.tags = append(n.tags, tag)
	return nil
}

// HasTag reports whether the node carries the given tag
func (n *MemoryNode) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range n.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Tags returns all tags
func (n *MemoryNode) Tags() []string {
	tags := make([]string, len(n.tags))
	copy(tags, n.tags)
	return tags
}

// RecordConversation associates the node with a thread, set semantics
func (n *MemoryNode) RecordConversation(threadID valueobjects.ThreadID) {
	if threadID.IsZero() {
		return
	}
	for _, t := range n.relatedConversations {
		if t.Equals(threadID) {
			return
		}
	}
	n.relatedConversations = append(n.relatedConversations, threadID)
}

// RelatedConversations returns the threads this node has appeared in
func (n *MemoryNode) RelatedConversations() []valueobjects.ThreadID {
	out := make([]valueobjects.ThreadID, len(n.relatedConversations))
	copy(out, n.relatedConversations)
	return out
}

// GetUncommittedEvents returns all uncommitted domain events
func (n *MemoryNode) GetUncommittedEvents() []events.DomainEvent {
	return n.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (n *MemoryNode) MarkEventsAsCommitted() {
	n.events = []events.DomainEvent{}
}

func (n *MemoryNode) addEvent(event events.DomainEvent) {
	n.events = append(n.events, event)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
