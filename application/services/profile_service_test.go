package services

import (
	"testing"
	"time"

	"engram/domain/core/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func applyFacts(t *testing.T, facts ...entities.ExtractedFact) (*entities.UserProfile, *entities.LearningHistory, []string) {
	t.Helper()
	svc := NewProfileService(zap.NewNop())
	profile := entities.NewUserProfile()
	history := entities.NewLearningHistory()
	analysis := &MessageAnalysis{
		Topic:     "testing",
		Sentiment: entities.SentimentNeutral,
		Facts:     facts,
	}
	changed := svc.Apply(profile, history, analysis, time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC))
	return profile, history, changed
}

func TestProfileService_Apply_PersonalInfo(t *testing.T) {
	profile, _, changed := applyFacts(t,
		entities.ExtractedFact{Fact: "My name is Alice", FactType: entities.FactPersonalInfo, Confidence: 0.95},
		entities.ExtractedFact{Fact: "I work at Initech", FactType: entities.FactPersonalInfo, Confidence: 0.9},
	)

	assert.Equal(t, "Alice", profile.Name)
	require.NotNil(t, profile.Work)
	assert.Equal(t, "Initech", profile.Work.Company)
	assert.Contains(t, changed, "name")
	assert.Contains(t, changed, "work_context")
}

func TestProfileService_Apply_NameIsNotOverwritten(t *testing.T) {
	svc := NewProfileService(zap.NewNop())
	profile := entities.NewUserProfile()
	history := entities.NewLearningHistory()
	profile.Name = "Alice"

	svc.Apply(profile, history, &MessageAnalysis{
		Facts: []entities.ExtractedFact{
			{Fact: "My name is Bob", FactType: entities.FactPersonalInfo, Confidence: 0.95},
		},
	}, time.Now())

	assert.Equal(t, "Alice", profile.Name)
}

func TestProfileService_Apply_PreferencesBecomeInterests(t *testing.T) {
	profile, _, changed := applyFacts(t,
		entities.ExtractedFact{Fact: "I love hiking in the mountains", FactType: entities.FactPreference, Confidence: 0.8},
	)

	assert.Contains(t, profile.Interests, "hiking in the mountains")
	assert.Contains(t, changed, "interests")
}

func TestProfileService_Apply_GoalsDedupeCaseInsensitive(t *testing.T) {
	profile, _, _ := applyFacts(t,
		entities.ExtractedFact{Fact: "I want to run a marathon", FactType: entities.FactGoal, Confidence: 0.75},
		entities.ExtractedFact{Fact: "I WANT TO RUN A MARATHON", FactType: entities.FactGoal, Confidence: 0.75},
	)

	assert.Len(t, profile.Goals, 1)
}

func TestProfileService_Apply_RelationshipNeedsProperNoun(t *testing.T) {
	profile, _, _ := applyFacts(t,
		entities.ExtractedFact{Fact: "My wife Sarah likes opera", FactType: entities.FactRelationship, Confidence: 0.85},
		entities.ExtractedFact{Fact: "my friend likes chess", FactType: entities.FactRelationship, Confidence: 0.7},
	)

	require.Len(t, profile.Relationships, 1)
	assert.Equal(t, "Sarah", profile.Relationships[0].Name)
	assert.Equal(t, "wife", profile.Relationships[0].RelationshipType)
}

func TestProfileService_Apply_TracksHistory(t *testing.T) {
	_, history, _ := applyFacts(t,
		entities.ExtractedFact{Fact: "My name is Alice", FactType: entities.FactPersonalInfo, Confidence: 0.95},
	)

	assert.Equal(t, 1, history.InteractionCount)
	assert.Equal(t, 1, history.TopicsDiscussed["testing"])
	assert.False(t, history.LastMajorUpdate.IsZero())
}

func TestProfileService_Apply_BehavioralStatistics(t *testing.T) {
	svc := NewProfileService(zap.NewNop())
	profile := entities.NewUserProfile()
	history := entities.NewLearningHistory()
	now := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)

	turns := []*MessageAnalysis{
		{Topic: "names", IsQuestion: false, WordCount: 4,
			Facts: []entities.ExtractedFact{{Fact: "My name is Alice", FactType: entities.FactPersonalInfo, Confidence: 0.95}}},
		{Topic: "memory", IsQuestion: true, WordCount: 5},
		{Topic: "decay", IsQuestion: true, WordCount: 6},
		{Topic: "weather", IsQuestion: false, WordCount: 4},
	}
	for _, analysis := range turns {
		svc.Apply(profile, history, analysis, now)
	}

	// Two of four turns were questions
	assert.InDelta(t, 0.5, history.QuestionAskingFrequency, 1e-9)

	// One of four turns completed a profile field
	assert.InDelta(t, 0.25, history.LearningSpeed, 1e-9)

	// Consistently short messages settle on a short preference
	assert.Equal(t, entities.ResponseShort, history.PreferredResponseLength)
}

func TestProfileService_Apply_MixedLengthsReadAsVariable(t *testing.T) {
	svc := NewProfileService(zap.NewNop())
	profile := entities.NewUserProfile()
	history := entities.NewLearningHistory()
	now := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)

	svc.Apply(profile, history, &MessageAnalysis{Topic: "a", WordCount: 5}, now)
	svc.Apply(profile, history, &MessageAnalysis{Topic: "b", WordCount: 80}, now)

	assert.Equal(t, entities.ResponseVariable, history.PreferredResponseLength)
}

func TestProfileService_Apply_ExplicitPreferenceWinsOverLengths(t *testing.T) {
	svc := NewProfileService(zap.NewNop())
	profile := entities.NewUserProfile()
	history := entities.NewLearningHistory()
	now := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)

	analysis := &MessageAnalysis{
		Topic:     "style",
		WordCount: 80,
		Facts:     []entities.ExtractedFact{{Fact: "I prefer concise answers", FactType: entities.FactPreference, Confidence: 0.85}},
	}
	svc.Apply(profile, history, analysis, now)

	assert.Equal(t, entities.ResponseShort, history.PreferredResponseLength)
}

func TestProfileService_Apply_ResponseStylePreference(t *testing.T) {
	profile, _, changed := applyFacts(t,
		entities.ExtractedFact{Fact: "I prefer concise answers", FactType: entities.FactPreference, Confidence: 0.85},
	)

	assert.True(t, profile.ResponsePreferences.Quick)
	assert.Contains(t, changed, "response_preferences")
	assert.Empty(t, profile.Interests)
}
