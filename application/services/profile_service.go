package services

import (
	"strings"
	"time"

	"engram/domain/core/entities"
	"go.uber.org/zap"
)

// ProfileService folds extracted facts into the slow-changing user
// profile and learning history
type ProfileService struct {
	logger *zap.Logger
}

// NewProfileService creates a profile service
func NewProfileService(logger *zap.Logger) *ProfileService {
	return &ProfileService{logger: logger}
}

// Apply folds one turn's analysis into the profile and history.
// Returns the names of the profile fields that changed.
func (s *ProfileService) Apply(
	profile *entities.UserProfile,
	history *entities.LearningHistory,
	analysis *MessageAnalysis,
	now time.Time,
) []string {
	var changed []string

	for _, fact := range analysis.Facts {
		if field := s.applyFact(profile, fact); field != "" {
			changed = append(changed, field)
		}
	}

	history.InteractionCount++
	history.RecordTopic(analysis.Topic)
	if len(changed) > 0 {
		history.LastMajorUpdate = now
	}
	recordQuestionRate(history, analysis.IsQuestion)
	recordLearningSpeed(history, len(changed))
	history.PreferredResponseLength = inferResponseLength(profile, history, analysis.WordCount)

	profile.Patterns.HourlyActivity[now.Hour()]++
	if analysis.Sentiment == entities.SentimentCurious {
		profile.Patterns.QuestionTypes["exploratory"]++
	}

	if len(changed) > 0 {
		s.logger.Debug("profile updated from turn",
			zap.Strings("fields", changed),
		)
	}
	return dedupe(changed)
}

// recordQuestionRate folds one turn into the running share of turns
// that were questions
func recordQuestionRate(history *entities.LearningHistory, question bool) {
	sample := 0.0
	if question {
		sample = 1.0
	}
	n := float64(history.InteractionCount)
	history.QuestionAskingFrequency += (sample - history.QuestionAskingFrequency) / n
}

// recordLearningSpeed tracks how often turns still complete new profile
// fields. Early conversations score high; the rate settles as the
// profile fills in.
func recordLearningSpeed(history *entities.LearningHistory, fieldsChanged int) {
	sample := 0.0
	if fieldsChanged > 0 {
		sample = 1.0
	}
	n := float64(history.InteractionCount)
	history.LearningSpeed += (sample - history.LearningSpeed) / n
}

// inferResponseLength derives the preferred answer length from the
// explicit response switches when set, otherwise from the user's own
// message lengths. Mixed observations settle on variable.
func inferResponseLength(profile *entities.UserProfile, history *entities.LearningHistory, words int) entities.ResponseLength {
	switch {
	case profile.ResponsePreferences.Quick:
		return entities.ResponseShort
	case profile.ResponsePreferences.Detailed || profile.ResponsePreferences.StepByStep:
		return entities.ResponseLong
	}

	observed := classifyLength(words)
	current := history.PreferredResponseLength
	switch {
	case current == "" || history.InteractionCount <= 1:
		return observed
	case observed == current:
		return observed
	default:
		return entities.ResponseVariable
	}
}

func classifyLength(words int) entities.ResponseLength {
	switch {
	case words < 12:
		return entities.ResponseShort
	case words < 40:
		return entities.ResponseMedium
	default:
		return entities.ResponseLong
	}
}

func (s *ProfileService) applyFact(profile *entities.UserProfile, fact entities.ExtractedFact) string {
	lowered := strings.ToLower(fact.Fact)

	switch fact.FactType {
	case entities.FactPersonalInfo:
		if rest, ok := after(lowered, "my name is "); ok && profile.Name == "" {
			profile.Name = titleWord(rest)
			return "name"
		}
		if rest, ok := after(lowered, "i work at "); ok {
			ensureWork(profile).Company = titleWord(rest)
			return "work_context"
		}
		if rest, ok := after(lowered, "i work as "); ok {
			ensureWork(profile).JobTitle = strings.TrimSpace(rest)
			return "work_context"
		}
		return "personal_info"

	case entities.FactPreference:
		if applyResponseStyle(profile, lowered) {
			return "response_preferences"
		}
		profile.AddInterest(preferenceSubject(lowered))
		return "interests"

	case entities.FactGoal:
		goal := entities.PersonalGoal{
			Goal:       fact.Fact,
			Category:   "stated",
			Importance: fact.Confidence,
		}
		for _, g := range profile.Goals {
			if strings.EqualFold(g.Goal, goal.Goal) {
				return ""
			}
		}
		profile.Goals = append(profile.Goals, goal)
		return "goals"

	case entities.FactRelationship:
		rel := entities.PersonalRelationship{
			Name:             relationshipName(fact.Fact),
			RelationshipType: relationshipKind(lowered),
			Importance:       fact.Confidence,
			Context:          fact.Fact,
		}
		if rel.Name == "" {
			return ""
		}
		for _, r := range profile.Relationships {
			if strings.EqualFold(r.Name, rel.Name) {
				return ""
			}
		}
		profile.Relationships = append(profile.Relationships, rel)
		return "relationships"

	case entities.FactExperience, entities.FactKnowledge:
		// Stored as memory nodes; the profile tracks only domains
		domain := preferenceSubject(lowered)
		if domain != "" {
			profile.KnowledgeDomains[domain] += fact.Confidence
			return "knowledge_domains"
		}
	}
	return ""
}

// applyResponseStyle flips the explicit response switches when a stated
// preference is about how the assistant should answer
func applyResponseStyle(profile *entities.UserProfile, lowered string) bool {
	if preferenceCategory(lowered) != "response-style" {
		return false
	}
	switch {
	case strings.Contains(lowered, "concise") || strings.Contains(lowered, "short") || strings.Contains(lowered, "brief"):
		profile.ResponsePreferences.Quick = true
	case strings.Contains(lowered, "step by step") || strings.Contains(lowered, "step-by-step"):
		profile.ResponsePreferences.StepByStep = true
	case strings.Contains(lowered, "detailed") || strings.Contains(lowered, "thorough"):
		profile.ResponsePreferences.Detailed = true
	case strings.Contains(lowered, "example"):
		profile.ResponsePreferences.Examples = true
	default:
		return false
	}
	return true
}

func ensureWork(profile *entities.UserProfile) *entities.WorkContext {
	if profile.Work == nil {
		profile.Work = &entities.WorkContext{}
	}
	return profile.Work
}

func after(s, prefix string) (string, bool) {
	idx := strings.Index(s, prefix)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(s[idx+len(prefix):]), true
}

func titleWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	word := strings.Trim(fields[0], ".,!?")
	if word == "" {
		return ""
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

// preferenceSubject strips the leading stance ("i like", "i prefer") and
// returns what the preference is about
func preferenceSubject(lowered string) string {
	for _, prefix := range []string{"i prefer ", "i like ", "i love ", "i enjoy ", "i dislike ", "i hate ", "i learned ", "i know "} {
		if rest, ok := after(lowered, prefix); ok {
			return strings.Trim(rest, ".,!? ")
		}
	}
	return strings.Trim(lowered, ".,!? ")
}

func relationshipKind(lowered string) string {
	for _, kind := range []string{"wife", "husband", "partner", "friend", "boss", "colleague"} {
		if strings.Contains(lowered, "my "+kind) {
			return kind
		}
	}
	return "other"
}

// relationshipName pulls the proper noun following the relationship
// marker, e.g. "my wife Sarah" yields "Sarah"
func relationshipName(fact string) string {
	words := strings.Fields(fact)
	for i := 0; i < len(words)-1; i++ {
		switch strings.ToLower(strings.Trim(words[i], ".,!?")) {
		case "wife", "husband", "partner", "friend", "boss", "colleague":
			candidate := strings.Trim(words[i+1], ".,!?")
			if startsUpper(candidate) {
				return candidate
			}
		}
	}
	return ""
}

func dedupe(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
