package services

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"engram/domain/core/entities"
)

type stubExtractor struct {
	facts []entities.ExtractedFact
	err   error
}

func (s *stubExtractor) ExtractFacts(ctx context.Context, content string) ([]entities.ExtractedFact, error) {
	return s.facts, s.err
}

func TestExtractionService_Analyze_Heuristics(t *testing.T) {
	svc := NewExtractionService(nil, zap.NewNop())

	analysis := svc.Analyze(context.Background(), "Thanks! I work at Acme. I love hiking in the mountains")

	require.NotNil(t, analysis)
	assert.Equal(t, entities.SentimentPositive, analysis.Sentiment)

	require.Len(t, analysis.Facts, 2)
	assert.Equal(t, entities.FactPersonalInfo, analysis.Facts[0].FactType)
	assert.Equal(t, entities.FactPreference, analysis.Facts[1].FactType)

	require.Len(t, analysis.Preferences, 1)
	assert.Contains(t, analysis.Preferences[0].Preference, "hiking")

	assert.Contains(t, analysis.Terms, "hiking")
	assert.NotContains(t, analysis.Terms, "the")
}

func TestExtractionService_Analyze_ModelExtractorPreferred(t *testing.T) {
	extractor := &stubExtractor{
		facts: []entities.ExtractedFact{{
			Fact:           "allergic to shellfish",
			FactType:       entities.FactPersonalInfo,
			Confidence:     0.9,
			ShouldRemember: true,
		}},
	}
	svc := NewExtractionService(extractor, zap.NewNop())

	analysis := svc.Analyze(context.Background(), "I love sushi but I am allergic to shellfish")
	require.Len(t, analysis.Facts, 1)
	assert.Equal(t, "allergic to shellfish", analysis.Facts[0].Fact)
}

func TestExtractionService_Analyze_FallsBackWhenModelFails(t *testing.T) {
	extractor := &stubExtractor{err: errors.New("provider unavailable")}
	svc := NewExtractionService(extractor, zap.NewNop())

	analysis := svc.Analyze(context.Background(), "I plan to run a marathon")
	require.Len(t, analysis.Facts, 1)
	assert.Equal(t, entities.FactGoal, analysis.Facts[0].FactType)
}

func TestDetectSentiment(t *testing.T) {
	tests := []struct {
		content string
		want    entities.Sentiment
	}{
		{"I'm so frustrated with this build", entities.SentimentFrustrated},
		{"This is amazing, can't wait to try it", entities.SentimentExcited},
		{"I wonder how does garbage collection work", entities.SentimentCurious},
		{"Unfortunately the deploy failed", entities.SentimentNegative},
		{"Thanks, that was great", entities.SentimentPositive},
		{"The meeting is at noon", entities.SentimentNeutral},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, detectSentiment(tt.content), "content: %s", tt.content)
	}
}

func TestExtractEntities(t *testing.T) {
	out := extractEntities("We moved the service to Kubernetes and met Sarah there")

	names := make(map[string]entities.EntityType, len(out))
	for _, e := range out {
		names[e.Name] = e.Type
	}

	assert.Equal(t, entities.EntityTechnology, names["Kubernetes"])
	assert.Equal(t, entities.EntityOther, names["Sarah"])
}

func TestSignificantTerms(t *testing.T) {
	terms := significantTerms("What is the best way to learn Rust quickly? Rust!")

	assert.Contains(t, terms, "rust")
	assert.Contains(t, terms, "learn")
	assert.NotContains(t, terms, "the")
	assert.NotContains(t, terms, "is")

	// deduplicated
	count := 0
	for _, term := range terms {
		if term == "rust" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestDeriveTopic(t *testing.T) {
	assert.Equal(t, "general", deriveTopic("what is it"))
	assert.Equal(t, "planning trip japan", deriveTopic("planning a trip to Japan"))
}

func TestDetectTasks(t *testing.T) {
	tests := []struct {
		content   string
		desc      string
		status    entities.TaskStatus
		duePhrase string
	}{
		{"I need to finish the quarterly report by friday", "finish the quarterly report", entities.TaskActive, "friday"},
		{"I have to call the dentist", "call the dentist", entities.TaskActive, ""},
		{"Remind me to water the plants tomorrow", "", entities.TaskActive, ""},
		{"I finished the quarterly report", "the quarterly report", entities.TaskCompleted, ""},
	}

	for _, tt := range tests {
		tasks := detectTasks(tt.content)
		require.Len(t, tasks, 1, "content: %s", tt.content)
		if tt.desc != "" {
			assert.Equal(t, tt.desc, tasks[0].Description)
		}
		assert.Equal(t, tt.status, tasks[0].Status)
		assert.Equal(t, tt.duePhrase, tasks[0].DuePhrase)
	}

	assert.Empty(t, detectTasks("The weather is nice today"))
}

func TestResolveDue(t *testing.T) {
	// A Sunday
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	friday := ResolveDue("friday", now)
	require.NotNil(t, friday)
	assert.Equal(t, time.Friday, friday.Weekday())
	assert.True(t, friday.After(now))

	tomorrow := ResolveDue("tomorrow", now)
	require.NotNil(t, tomorrow)
	assert.Equal(t, 2, tomorrow.Day())

	assert.Nil(t, ResolveDue("", now))
	assert.Nil(t, ResolveDue("someday", now))
}

func TestAnalyze_QuestionAndLengthSignals(t *testing.T) {
	svc := NewExtractionService(nil, zap.NewNop())

	analysis := svc.Analyze(context.Background(), "How does memory decay work?")
	assert.True(t, analysis.IsQuestion)
	assert.Equal(t, 5, analysis.WordCount)

	analysis = svc.Analyze(context.Background(), "I live in Berlin.")
	assert.False(t, analysis.IsQuestion)
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	s := "héllo wörld"

	for n := 0; n <= len(s); n++ {
		cut := truncate(s, n)
		assert.True(t, utf8.ValidString(cut), "n=%d", n)
		assert.LessOrEqual(t, len(cut), n)
	}
	assert.Equal(t, s, truncate(s, len(s)))
	assert.Equal(t, "h", truncate(s, 2)) // cannot split the é
}

func TestPreferenceCategory(t *testing.T) {
	svc := NewExtractionService(nil, zap.NewNop())

	analysis := svc.Analyze(context.Background(), "I prefer concise answers")
	require.Len(t, analysis.Preferences, 1)
	assert.Equal(t, "response-style", analysis.Preferences[0].Category)

	analysis = svc.Analyze(context.Background(), "I prefer tea over coffee")
	require.Len(t, analysis.Preferences, 1)
	assert.Equal(t, "stated", analysis.Preferences[0].Category)
}
