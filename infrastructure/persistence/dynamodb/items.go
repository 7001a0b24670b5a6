// Package dynamodb persists the engine's aggregates in a single DynamoDB
// table. Every user-owned item shares the partition key USER#<id>; the
// sort key discriminates graph metadata, nodes, edges, threads, messages
// and the cycles account. Engine-wide items live under the SYSTEM partition.
package dynamodb

import (
	"fmt"
	"time"

	"engram/domain/core/aggregates"
	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
)

const (
	skGraph   = "GRAPH"
	skAccount = "ACCOUNT"
	skRates   = "RATES"

	skNodePrefix   = "NODE#"
	skEdgePrefix   = "EDGE#"
	skThreadPrefix = "THREAD#"
	skMsgPrefix    = "MSG#"

	pkSystem = "SYSTEM"

	entityGraph   = "GRAPH"
	entityNode    = "NODE"
	entityEdge    = "EDGE"
	entityThread  = "THREAD"
	entityMessage = "MESSAGE"
	entityAccount = "ACCOUNT"
)

func userPK(userID string) string { return "USER#" + userID }

// graphItem holds graph metadata plus the profile and learning history.
// Profile and history are small and change on most turns, so they ride
// on the metadata item instead of separate rows.
type graphItem struct {
	PK         string                    `dynamodbav:"PK"`
	SK         string                    `dynamodbav:"SK"`
	EntityType string                    `dynamodbav:"EntityType"`
	UserID     string                    `dynamodbav:"UserID"`
	NodeCount  int                       `dynamodbav:"NodeCount"`
	EdgeCount  int                       `dynamodbav:"EdgeCount"`
	Profile    *entities.UserProfile     `dynamodbav:"Profile"`
	History    *entities.LearningHistory `dynamodbav:"History"`
	CreatedAt  string                    `dynamodbav:"CreatedAt"`
	UpdatedAt  string                    `dynamodbav:"UpdatedAt"`
}

type nodeItem struct {
	PK           string   `dynamodbav:"PK"`
	SK           string   `dynamodbav:"SK"`
	EntityType   string   `dynamodbav:"EntityType"`
	NodeID       string   `dynamodbav:"NodeID"`
	UserID       string   `dynamodbav:"UserID"`
	NodeType     string   `dynamodbav:"NodeType"`
	Content      string   `dynamodbav:"Content"`
	Tags         []string `dynamodbav:"Tags"`
	Importance   float64  `dynamodbav:"Importance"`
	AccessCount  int      `dynamodbav:"AccessCount"`
	Threads      []string `dynamodbav:"Threads"`
	CreatedAt    string   `dynamodbav:"CreatedAt"`
	LastAccessed string   `dynamodbav:"LastAccessed"`
}

type edgeItem struct {
	PK           string  `dynamodbav:"PK"`
	SK           string  `dynamodbav:"SK"`
	EntityType   string  `dynamodbav:"EntityType"`
	FromID       string  `dynamodbav:"FromID"`
	ToID         string  `dynamodbav:"ToID"`
	Relationship string  `dynamodbav:"Relationship"`
	Strength     float64 `dynamodbav:"Strength"`
	Context      string  `dynamodbav:"Context,omitempty"`
	CreatedAt    string  `dynamodbav:"CreatedAt"`
}

type threadItem struct {
	PK          string            `dynamodbav:"PK"`
	SK          string            `dynamodbav:"SK"`
	EntityType  string            `dynamodbav:"EntityType"`
	ThreadID    string            `dynamodbav:"ThreadID"`
	UserID      string            `dynamodbav:"UserID"`
	Topic       string            `dynamodbav:"Topic"`
	Sentiment   string            `dynamodbav:"Sentiment"`
	Tasks       []entities.Task   `dynamodbav:"Tasks"`
	Entities    []entities.Entity `dynamodbav:"Entities"`
	Memories    []string          `dynamodbav:"Memories"`
	Archived    bool              `dynamodbav:"Archived"`
	LastMessage string            `dynamodbav:"LastMessage"`
	CreatedAt   string            `dynamodbav:"CreatedAt"`
}

type messageItem struct {
	PK         string                       `dynamodbav:"PK"`
	SK         string                       `dynamodbav:"SK"`
	EntityType string                       `dynamodbav:"EntityType"`
	UserID     string                       `dynamodbav:"UserID"`
	ThreadID   string                       `dynamodbav:"ThreadID,omitempty"`
	Message    *entities.EnhancedChatMessage `dynamodbav:"Message"`
}

type accountItem struct {
	PK                string `dynamodbav:"PK"`
	SK                string `dynamodbav:"SK"`
	EntityType        string `dynamodbav:"EntityType"`
	UserID            string `dynamodbav:"UserID"`
	Balance           uint64 `dynamodbav:"Balance"`
	IncludedRemaining uint64 `dynamodbav:"IncludedRemaining"`
	TotalSpent        uint64 `dynamodbav:"TotalSpent"`
	TierKind          string `dynamodbav:"TierKind,omitempty"`
	TierIncluded      uint64 `dynamodbav:"TierIncluded,omitempty"`
	TierPriority      bool   `dynamodbav:"TierPriority,omitempty"`
	TierPrivate       bool   `dynamodbav:"TierPrivate,omitempty"`
	TierEndpoints     bool   `dynamodbav:"TierEndpoints,omitempty"`
	CreatedAt         string `dynamodbav:"CreatedAt"`
}

type ratesItem struct {
	PK                    string  `dynamodbav:"PK"`
	SK                    string  `dynamodbav:"SK"`
	QueryBaseCost         uint64  `dynamodbav:"QueryBaseCost"`
	StorageCostPerKB      uint64  `dynamodbav:"StorageCostPerKB"`
	ComputationMultiplier float64 `dynamodbav:"ComputationMultiplier"`
}

func nodeToItem(userID string, node *entities.MemoryNode) nodeItem {
	threads := make([]string, 0, len(node.RelatedConversations()))
	for _, t := range node.RelatedConversations() {
		threads = append(threads, t.String())
	}
	return nodeItem{
		PK:           userPK(userID),
		SK:           skNodePrefix + node.ID().String(),
		EntityType:   entityNode,
		NodeID:       node.ID().String(),
		UserID:       userID,
		NodeType:     string(node.Type()),
		Content:      node.Content(),
		Tags:         node.Tags(),
		Importance:   node.Importance(),
		AccessCount:  node.AccessCount(),
		Threads:      threads,
		CreatedAt:    node.CreatedAt().Format(time.RFC3339Nano),
		LastAccessed: node.LastAccessed().Format(time.RFC3339Nano),
	}
}

func itemToNode(item nodeItem) (*entities.MemoryNode, error) {
	id, err := valueobjects.NewNodeIDFromString(item.NodeID)
	if err != nil {
		return nil, fmt.Errorf("bad node id %q: %w", item.NodeID, err)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	lastAccessed, _ := time.Parse(time.RFC3339Nano, item.LastAccessed)

	threads := make([]valueobjects.ThreadID, 0, len(item.Threads))
	for _, t := range item.Threads {
		threadID, err := valueobjects.NewThreadIDFromString(t)
		if err != nil {
			continue
		}
		threads = append(threads, threadID)
	}

	return entities.ReconstructMemoryNode(
		id,
		item.UserID,
		entities.NodeType(item.NodeType),
		item.Content,
		item.Tags,
		createdAt, lastAccessed,
		item.Importance,
		item.AccessCount,
		threads,
	)
}

func edgeToItem(userID string, edge *aggregates.KnowledgeEdge) edgeItem {
	return edgeItem{
		PK:           userPK(userID),
		SK:           edgeSK(edge),
		EntityType:   entityEdge,
		FromID:       edge.FromID.String(),
		ToID:         edge.ToID.String(),
		Relationship: string(edge.Relationship),
		Strength:     edge.Strength,
		Context:      edge.Context,
		CreatedAt:    edge.CreatedAt.Format(time.RFC3339Nano),
	}
}

func edgeSK(edge *aggregates.KnowledgeEdge) string {
	return skEdgePrefix + edge.FromID.String() + "#" + edge.ToID.String() + "#" + string(edge.Relationship)
}

func itemToEdge(item edgeItem) (*aggregates.KnowledgeEdge, error) {
	fromID, err := valueobjects.NewNodeIDFromString(item.FromID)
	if err != nil {
		return nil, fmt.Errorf("bad edge source %q: %w", item.FromID, err)
	}
	toID, err := valueobjects.NewNodeIDFromString(item.ToID)
	if err != nil {
		return nil, fmt.Errorf("bad edge target %q: %w", item.ToID, err)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	return &aggregates.KnowledgeEdge{
		FromID:       fromID,
		ToID:         toID,
		Relationship: aggregates.RelationshipType(item.Relationship),
		Strength:     item.Strength,
		Context:      item.Context,
		CreatedAt:    createdAt,
	}, nil
}

func threadToItem(userID string, thread *entities.ConversationContext) threadItem {
	memories := make([]string, 0, len(thread.RelatedMemories()))
	for _, id := range thread.RelatedMemories() {
		memories = append(memories, id.String())
	}
	return threadItem{
		PK:          userPK(userID),
		SK:          skThreadPrefix + thread.ThreadID().String(),
		EntityType:  entityThread,
		ThreadID:    thread.ThreadID().String(),
		UserID:      userID,
		Topic:       thread.Topic(),
		Sentiment:   string(thread.Sentiment()),
		Tasks:       thread.OngoingTasks(),
		Entities:    thread.MentionedEntities(),
		Memories:    memories,
		Archived:    thread.IsArchived(),
		LastMessage: thread.LastMessageAt().Format(time.RFC3339Nano),
		CreatedAt:   thread.CreatedAt().Format(time.RFC3339Nano),
	}
}

func itemToThread(item threadItem) (*entities.ConversationContext, error) {
	threadID, err := valueobjects.NewThreadIDFromString(item.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("bad thread id %q: %w", item.ThreadID, err)
	}
	lastMessage, _ := time.Parse(time.RFC3339Nano, item.LastMessage)
	createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)

	memories := make([]valueobjects.NodeID, 0, len(item.Memories))
	for _, raw := range item.Memories {
		id, err := valueobjects.NewNodeIDFromString(raw)
		if err != nil {
			continue
		}
		memories = append(memories, id)
	}

	return entities.ReconstructConversationContext(
		threadID,
		item.UserID, item.Topic,
		lastMessage,
		entities.Sentiment(item.Sentiment),
		item.Tasks,
		item.Entities,
		memories,
		item.Archived,
		createdAt,
	), nil
}

func accountToItem(account *entities.Account) accountItem {
	item := accountItem{
		PK:                userPK(account.UserID()),
		SK:                skAccount,
		EntityType:        entityAccount,
		UserID:            account.UserID(),
		Balance:           account.Balance(),
		IncludedRemaining: account.IncludedRemaining(),
		TotalSpent:        account.TotalSpent(),
		CreatedAt:         account.CreatedAt().Format(time.RFC3339Nano),
	}
	if tier := account.Tier(); tier != nil {
		item.TierKind = string(tier.Kind)
		item.TierIncluded = tier.CyclesIncluded
		item.TierPriority = tier.PriorityAccess
		item.TierPrivate = tier.PrivateModels
		item.TierEndpoints = tier.CustomEndpoints
	}
	return item
}

func itemToAccount(item accountItem) *entities.Account {
	var tier *entities.SubscriptionTier
	if item.TierKind != "" {
		tier = &entities.SubscriptionTier{
			Kind:            entities.TierKind(item.TierKind),
			CyclesIncluded:  item.TierIncluded,
			PriorityAccess:  item.TierPriority,
			PrivateModels:   item.TierPrivate,
			CustomEndpoints: item.TierEndpoints,
		}
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	return entities.ReconstructAccount(
		item.UserID,
		item.Balance, item.IncludedRemaining, item.TotalSpent,
		tier,
		createdAt,
	)
}
