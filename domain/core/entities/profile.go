package entities

import (
	"strings"
	"time"
)

// PersonalGoal is a long-running objective the user has stated
type PersonalGoal struct {
	Goal       string     `json:"goal"`
	Category   string     `json:"category"`
	Importance float64    `json:"importance"`
	Progress   float64    `json:"progress"`
	TargetDate *time.Time `json:"target_date,omitempty"`
}

// PersonalRelationship describes someone in the user's life
type PersonalRelationship struct {
	Name             string  `json:"name"`
	RelationshipType string  `json:"relationship_type"`
	Importance       float64 `json:"importance"`
	Context          string  `json:"context"`
}

// WorkContext captures the user's professional setting
type WorkContext struct {
	JobTitle string   `json:"job_title"`
	Company  string   `json:"company"`
	Industry string   `json:"industry"`
	Projects []string `json:"projects"`
	Skills   []string `json:"skills"`
}

// CommunicationStyle captures how the user likes to be spoken to
type CommunicationStyle struct {
	Formality      string `json:"formality"`
	TechnicalLevel string `json:"technical_level"`
	DetailLevel    string `json:"detail_level"`
	HumorAllowed   bool   `json:"humor_allowed"`
	EmojiAllowed   bool   `json:"emoji_allowed"`
}

// ResponsePreferences are explicit switches the user has set
type ResponsePreferences struct {
	StepByStep bool `json:"step_by_step"`
	Detailed   bool `json:"detailed"`
	Quick      bool `json:"quick"`
	Examples   bool `json:"examples"`
	Autopilot  bool `json:"autopilot"`
}

// ConversationPatterns are rolled-up behavioral statistics
type ConversationPatterns struct {
	QuestionTypes    map[string]int `json:"question_types"`
	AvgSessionLength float64        `json:"avg_session_length"`
	CommonTopics     []string       `json:"common_topics"`
	HourlyActivity   map[int]int    `json:"hourly_activity"`
}

// UserProfile is the slow-changing aggregate describing the person
type UserProfile struct {
	Name                string                 `json:"name"`
	PreferredName       string                 `json:"preferred_name"`
	PersonalityTraits   []string               `json:"personality_traits"`
	Interests           []string               `json:"interests"`
	ExpertiseAreas      []string               `json:"expertise_areas"`
	KnowledgeDomains    map[string]float64     `json:"knowledge_domains"`
	Goals               []PersonalGoal         `json:"goals"`
	ImportantDates      map[string]time.Time   `json:"important_dates"`
	Relationships       []PersonalRelationship `json:"relationships"`
	Work                *WorkContext           `json:"work_context,omitempty"`
	CommunicationStyle  CommunicationStyle     `json:"communication_style"`
	ResponsePreferences ResponsePreferences    `json:"response_preferences"`
	Patterns            ConversationPatterns   `json:"conversation_patterns"`
}

// NewUserProfile creates an empty profile
func NewUserProfile() *UserProfile {
	return &UserProfile{
		KnowledgeDomains: make(map[string]float64),
		ImportantDates:   make(map[string]time.Time),
		Patterns: ConversationPatterns{
			QuestionTypes:  make(map[string]int),
			HourlyActivity: make(map[int]int),
		},
	}
}

// AddInterest records an interest once
func (p *UserProfile) AddInterest(interest string) {
	interest = strings.TrimSpace(interest)
	if interest == "" {
		return
	}
	for _, i := range p.Interests {
		if strings.EqualFold(i, interest) {
			return
		}
	}
	p.Interests = append(p.Interests, interest)
}

// Completeness returns the fraction of trackable profile fields that have
// been populated. Used by the dashboard's learning-progress projection.
func (p *UserProfile) Completeness() float64 {
	const trackable = 10.0
	populated := 0.0

	if p.Name != "" {
		populated++
	}
	if p.PreferredName != "" {
		populated++
	}
	if len(p.PersonalityTraits) > 0 {
		populated++
	}
	if len(p.Interests) > 0 {
		populated++
	}
	if len(p.ExpertiseAreas) > 0 {
		populated++
	}
	if len(p.KnowledgeDomains) > 0 {
		populated++
	}
	if len(p.Goals) > 0 {
		populated++
	}
	if len(p.ImportantDates) > 0 {
		populated++
	}
	if len(p.Relationships) > 0 {
		populated++
	}
	if p.Work != nil {
		populated++
	}

	return populated / trackable
}

// ResponseLength is the user's inferred preferred answer length
type ResponseLength string

const (
	ResponseShort    ResponseLength = "short"
	ResponseMedium   ResponseLength = "medium"
	ResponseLong     ResponseLength = "long"
	ResponseVariable ResponseLength = "variable"
)

// LearningHistory rolls up long-run behavioral statistics used to bias
// extraction and strategy selection.
type LearningHistory struct {
	InteractionCount        int            `json:"interaction_count"`
	LastMajorUpdate         time.Time      `json:"last_major_update"`
	TopicsDiscussed         map[string]int `json:"topics_discussed"`
	PreferredResponseLength ResponseLength `json:"preferred_response_length"`
	QuestionAskingFrequency float64        `json:"question_asking_frequency"`
	LearningSpeed           float64        `json:"learning_speed"`
}

// NewLearningHistory creates an empty learning history
func NewLearningHistory() *LearningHistory {
	return &LearningHistory{
		TopicsDiscussed:         make(map[string]int),
		PreferredResponseLength: ResponseVariable,
	}
}

// RecordTopic increments the discussion counter for a topic
func (h *LearningHistory) RecordTopic(topic string) {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return
	}
	if h.TopicsDiscussed == nil {
		h.TopicsDiscussed = make(map[string]int)
	}
	h.TopicsDiscussed[topic]++
}
