package entities

import (
	"time"

	"engram/domain/core/valueobjects"
)

// FactType classifies an extracted fact
type FactType string

const (
	FactPersonalInfo FactType = "personal_info"
	FactPreference   FactType = "preference"
	FactGoal         FactType = "goal"
	FactRelationship FactType = "relationship"
	FactExperience   FactType = "experience"
	FactKnowledge    FactType = "knowledge"
)

// NodeTypeForFact maps a fact type to the memory node type it is stored as
func NodeTypeForFact(t FactType) NodeType {
	switch t {
	case FactPersonalInfo:
		return NodeTypeFact
	case FactPreference:
		return NodeTypePreference
	case FactGoal:
		return NodeTypeGoal
	case FactRelationship:
		return NodeTypeRelationship
	case FactExperience:
		return NodeTypeExperience
	case FactKnowledge:
		return NodeTypeKnowledge
	default:
		return NodeTypeFact
	}
}

// ExtractedFact is one fact the learning pipeline pulled out of a turn
type ExtractedFact struct {
	Fact           string   `json:"fact"`
	FactType       FactType `json:"fact_type"`
	Confidence     float64  `json:"confidence"`
	ShouldRemember bool     `json:"should_remember"`
}

// LearnedPreference is a stated preference worth recording
type LearnedPreference struct {
	Category   string  `json:"category"`
	Preference string  `json:"preference"`
	Confidence float64 `json:"confidence"`
}

// EnhancedChatMessage is the immutable record of one conversational turn,
// including everything the engine learned from it.
type EnhancedChatMessage struct {
	Role               string                 `json:"role"`
	Content            string                 `json:"content"`
	Provider           string                 `json:"provider"`
	Timestamp          time.Time              `json:"timestamp"`
	CyclesCost         *uint64                `json:"cycles_cost,omitempty"`
	StoredOnChain      *bool                  `json:"content_stored_on_chain,omitempty"`
	ExtractedFacts     []ExtractedFact        `json:"extracted_facts"`
	LearnedPreferences []LearnedPreference    `json:"learned_preferences"`
	ReferencedMemories []valueobjects.NodeID  `json:"referenced_memories"`
	ResponseStrategy   *StrategyRecord        `json:"response_strategy,omitempty"`
	UserSentiment      Sentiment              `json:"user_sentiment"`
	ContextThreadID    *valueobjects.ThreadID `json:"context_thread_id,omitempty"`
}
