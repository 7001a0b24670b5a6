package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"engram/application/ports"
	"engram/domain/core/entities"
	"go.uber.org/zap"
)

// DashboardView is the read-model projection shown on a user's memory
// dashboard. Every field is a plain count or summary; an empty graph
// projects to all zeros, never an error.
type DashboardView struct {
	TotalMemories             int             `json:"total_memories"`
	MemoriesByType            map[string]int  `json:"memories_by_type"`
	TotalEdges                int             `json:"total_edges"`
	ActiveThreads             int             `json:"active_threads"`
	ArchivedThreads           int             `json:"archived_threads"`
	InteractionCount          int             `json:"interaction_count"`
	ProfileCompleteness       float64         `json:"profile_completeness"`
	MemoryStrength            float64         `json:"memory_strength"`
	LearningProgress          float64         `json:"learning_progress"`
	DaysSinceFirstInteraction int             `json:"days_since_first_interaction"`
	TopTopics                 []TopicCount    `json:"top_topics"`
	RecentMemories            []MemorySummary `json:"recent_memories"`
	CyclesBalance             uint64          `json:"cycles_balance"`
	CyclesSpent               uint64          `json:"cycles_spent"`
}

// TopicCount pairs a discussed topic with how often it came up
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// MemorySummary is the dashboard's abbreviated view of one node
type MemorySummary struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Content    string    `json:"content"`
	Importance float64   `json:"importance"`
	CreatedAt  time.Time `json:"created_at"`
}

// DashboardService projects a user's graph and account into the
// dashboard read model
type DashboardService struct {
	graphRepo   ports.GraphRepository
	accountRepo ports.AccountRepository
	clock       ports.Clock
	logger      *zap.Logger
}

// NewDashboardService creates a dashboard service
func NewDashboardService(
	graphRepo ports.GraphRepository,
	accountRepo ports.AccountRepository,
	clock ports.Clock,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		graphRepo:   graphRepo,
		accountRepo: accountRepo,
		clock:       clock,
		logger:      logger,
	}
}

// Project builds the dashboard view for a user. A user with no stored
// data gets a zeroed view.
func (s *DashboardService) Project(ctx context.Context, userID string) (*DashboardView, error) {
	view := &DashboardView{
		MemoriesByType: make(map[string]int),
		TopTopics:      []TopicCount{},
		RecentMemories: []MemorySummary{},
	}

	graph, err := s.graphRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}

	nodes := graph.Nodes()
	view.TotalMemories = len(nodes)
	view.TotalEdges = graph.EdgeCount()
	for _, node := range nodes {
		view.MemoriesByType[string(node.Type())]++
	}

	for _, thread := range graph.Threads() {
		if thread.IsArchived() {
			view.ArchivedThreads++
		} else {
			view.ActiveThreads++
		}
	}

	view.ProfileCompleteness = graph.Profile().Completeness()
	view.InteractionCount = graph.History().InteractionCount
	view.MemoryStrength = memoryStrength(nodes)
	view.LearningProgress = learningProgress(view.InteractionCount, view.ProfileCompleteness)
	view.DaysSinceFirstInteraction = daysSinceFirst(nodes, s.clock.Now())
	view.TopTopics = topTopics(graph.History(), 5)
	view.RecentMemories = recentMemories(nodes, 5)

	account, err := s.accountRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	view.CyclesBalance = account.IncludedRemaining() + account.Balance()
	view.CyclesSpent = account.TotalSpent()

	return view, nil
}

// memoryStrength is the mean importance score across all stored nodes,
// zero when the graph is empty
func memoryStrength(nodes []*entities.MemoryNode) float64 {
	if len(nodes) == 0 {
		return 0
	}
	var sum float64
	for _, node := range nodes {
		sum += node.Importance()
	}
	return sum / float64(len(nodes))
}

// learningProgress blends interaction volume with profile completeness
// into a [0,1) score that grows with both and never decreases as either
// grows
func learningProgress(interactions int, completeness float64) float64 {
	volume := float64(interactions) / (float64(interactions) + 50)
	return 0.5*volume + 0.5*completeness
}

// daysSinceFirst measures whole days from the earliest stored memory,
// zero for a brand-new user
func daysSinceFirst(nodes []*entities.MemoryNode, now time.Time) int {
	if len(nodes) == 0 {
		return 0
	}
	earliest := nodes[0].CreatedAt()
	for _, node := range nodes[1:] {
		if node.CreatedAt().Before(earliest) {
			earliest = node.CreatedAt()
		}
	}
	days := int(now.Sub(earliest).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func topTopics(history *entities.LearningHistory, limit int) []TopicCount {
	topics := make([]TopicCount, 0, len(history.TopicsDiscussed))
	for topic, count := range history.TopicsDiscussed {
		topics = append(topics, TopicCount{Topic: topic, Count: count})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Count != topics[j].Count {
			return topics[i].Count > topics[j].Count
		}
		return topics[i].Topic < topics[j].Topic
	})
	if len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}

func recentMemories(nodes []*entities.MemoryNode, limit int) []MemorySummary {
	sorted := make([]*entities.MemoryNode, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt().After(sorted[j].CreatedAt())
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]MemorySummary, 0, len(sorted))
	for _, node := range sorted {
		out = append(out, MemorySummary{
			ID:         node.ID().String(),
			Type:       string(node.Type()),
			Content:    truncate(node.Content(), 160),
			Importance: node.Importance(),
			CreatedAt:  node.CreatedAt(),
		})
	}
	return out
}
