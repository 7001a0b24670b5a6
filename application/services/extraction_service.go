package services

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"engram/application/ports"
	"engram/domain/core/entities"
	"go.uber.org/zap"
)

// MessageAnalysis is everything the extraction pass learned from one
// user message
type MessageAnalysis struct {
	Sentiment   entities.Sentiment
	Topic       string
	Entities    []entities.Entity
	Facts       []entities.ExtractedFact
	Preferences []entities.LearnedPreference
	Terms       []string
	Tasks       []TaskMention
	IsQuestion  bool
	WordCount   int
}

// TaskMention is a task-like statement detected in a message. DuePhrase
// is the raw deadline clause, if one was stated; ResolveDue turns it
// into a concrete time.
type TaskMention struct {
	Description string
	Status      entities.TaskStatus
	DuePhrase   string
}

// ExtractionService turns raw user messages into structured knowledge.
// A model-backed extractor is used when available; the heuristic pass
// always runs and is the fallback when the model call fails.
type ExtractionService struct {
	extractor ports.FactExtractor
	logger    *zap.Logger
}

// NewExtractionService creates an extraction service. extractor may be
// nil, in which case only heuristics run.
func NewExtractionService(extractor ports.FactExtractor, logger *zap.Logger) *ExtractionService {
	return &ExtractionService{
		extractor: extractor,
		logger:    logger,
	}
}

// Analyze runs the full extraction pass over one user message
func (s *ExtractionService) Analyze(ctx context.Context, content string) *MessageAnalysis {
	analysis := &MessageAnalysis{
		Sentiment:  detectSentiment(content),
		Topic:      deriveTopic(content),
		Entities:   extractEntities(content),
		Terms:      significantTerms(content),
		Tasks:      detectTasks(content),
		IsQuestion: isQuestion(content),
		WordCount:  len(strings.Fields(content)),
	}

	analysis.Facts = s.extractFacts(ctx, content)
	analysis.Preferences = derivePreferences(analysis.Facts)

	return analysis
}

func (s *ExtractionService) extractFacts(ctx context.Context, content string) []entities.ExtractedFact {
	if s.extractor != nil {
		facts, err := s.extractor.ExtractFacts(ctx, content)
		if err == nil {
			return facts
		}
		s.logger.Warn("model fact extraction failed, falling back to heuristics",
			zap.Error(err),
		)
	}
	return heuristicFacts(content)
}

// sentimentSignals maps marker words to the sentiment they indicate.
// First match in priority order wins.
var sentimentSignals = []struct {
	sentiment entities.Sentiment
	markers   []string
}{
	{entities.SentimentFrustrated, []string{"frustrated", "annoying", "annoyed", "stuck", "broken", "hate", "fed up", "giving up"}},
	{entities.SentimentExcited, []string{"excited", "amazing", "awesome", "can't wait", "fantastic", "thrilled", "love this"}},
	{entities.SentimentCurious, []string{"curious", "wonder", "how does", "how do", "what is", "what are", "why does", "interested in"}},
	{entities.SentimentNegative, []string{"sad", "bad", "worried", "unfortunately", "problem", "fail", "wrong", "difficult"}},
	{entities.SentimentPositive, []string{"great", "good", "happy", "glad", "thanks", "thank you", "wonderful", "nice"}},
}

func detectSentiment(content string) entities.Sentiment {
	lowered := strings.ToLower(content)
	for _, signal := range sentimentSignals {
		for _, marker := range signal.markers {
			if strings.Contains(lowered, marker) {
				return signal.sentiment
			}
		}
	}
	return entities.SentimentNeutral
}

// factPatterns maps leading phrases to the kind of fact they introduce
var factPatterns = []struct {
	prefix     string
	factType   entities.FactType
	confidence float64
}{
	{"my name is", entities.FactPersonalInfo, 0.95},
	{"i am called", entities.FactPersonalInfo, 0.9},
	{"i live in", entities.FactPersonalInfo, 0.9},
	{"i work at", entities.FactPersonalInfo, 0.9},
	{"i work as", entities.FactPersonalInfo, 0.9},
	{"my birthday is", entities.FactPersonalInfo, 0.9},
	{"i prefer", entities.FactPreference, 0.85},
	{"i like", entities.FactPreference, 0.75},
	{"i love", entities.FactPreference, 0.8},
	{"i enjoy", entities.FactPreference, 0.75},
	{"i dislike", entities.FactPreference, 0.8},
	{"i hate", entities.FactPreference, 0.8},
	{"i want to", entities.FactGoal, 0.75},
	{"i plan to", entities.FactGoal, 0.8},
	{"my goal is", entities.FactGoal, 0.9},
	{"i'm trying to", entities.FactGoal, 0.7},
	{"i am trying to", entities.FactGoal, 0.7},
	{"my wife", entities.FactRelationship, 0.85},
	{"my husband", entities.FactRelationship, 0.85},
	{"my partner", entities.FactRelationship, 0.8},
	{"my friend", entities.FactRelationship, 0.7},
	{"my boss", entities.FactRelationship, 0.75},
	{"my colleague", entities.FactRelationship, 0.7},
	{"i used to", entities.FactExperience, 0.7},
	{"i once", entities.FactExperience, 0.65},
	{"i learned", entities.FactKnowledge, 0.7},
	{"i know", entities.FactKnowledge, 0.6},
}

func heuristicFacts(content string) []entities.ExtractedFact {
	var facts []entities.ExtractedFact
	for _, sentence := range splitSentences(content) {
		lowered := strings.ToLower(strings.TrimSpace(sentence))
		if lowered == "" {
			continue
		}
		for _, pattern := range factPatterns {
			if strings.HasPrefix(lowered, pattern.prefix) || strings.Contains(lowered, ". "+pattern.prefix) {
				facts = append(facts, entities.ExtractedFact{
					Fact:           strings.TrimSpace(sentence),
					FactType:       pattern.factType,
					Confidence:     pattern.confidence,
					ShouldRemember: true,
				})
				break
			}
		}
	}
	return facts
}

// taskPatterns maps leading phrases to the task state they imply
var taskPatterns = []struct {
	prefix string
	status entities.TaskStatus
}{
	{"i need to ", entities.TaskActive},
	{"i have to ", entities.TaskActive},
	{"i still need to ", entities.TaskActive},
	{"i must ", entities.TaskActive},
	{"remind me to ", entities.TaskActive},
	{"i finished ", entities.TaskCompleted},
	{"i completed ", entities.TaskCompleted},
	{"i'm done with ", entities.TaskCompleted},
	{"i am done with ", entities.TaskCompleted},
}

func detectTasks(content string) []TaskMention {
	var tasks []TaskMention
	for _, sentence := range splitSentences(content) {
		trimmed := strings.TrimSpace(sentence)
		lowered := strings.ToLower(trimmed)
		for _, pattern := range taskPatterns {
			if !strings.HasPrefix(lowered, pattern.prefix) {
				continue
			}
			desc := strings.TrimSpace(trimmed[len(pattern.prefix):])
			if desc == "" {
				break
			}
			desc, due := splitDuePhrase(desc)
			tasks = append(tasks, TaskMention{
				Description: desc,
				Status:      pattern.status,
				DuePhrase:   due,
			})
			break
		}
	}
	return tasks
}

// splitDuePhrase peels a trailing "by <when>" clause off a task
// description when the clause names a deadline we can resolve
func splitDuePhrase(desc string) (string, string) {
	lowered := strings.ToLower(desc)
	idx := strings.LastIndex(lowered, " by ")
	if idx < 0 {
		return desc, ""
	}
	due := strings.ToLower(strings.Trim(strings.TrimSpace(desc[idx+4:]), ".,!?"))
	if !knownDuePhrase(due) {
		return desc, ""
	}
	return strings.TrimSpace(desc[:idx]), due
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func knownDuePhrase(p string) bool {
	switch p {
	case "today", "tonight", "tomorrow", "next week", "the end of the week", "end of the week":
		return true
	}
	_, ok := weekdayNames[p]
	return ok
}

// ResolveDue turns a detected due phrase into a concrete deadline
// relative to now. Unknown phrases resolve to nil.
func ResolveDue(phrase string, now time.Time) *time.Time {
	var due time.Time
	switch phrase {
	case "":
		return nil
	case "today", "tonight":
		due = endOfDay(now)
	case "tomorrow":
		due = endOfDay(now.AddDate(0, 0, 1))
	case "next week":
		due = endOfDay(now.AddDate(0, 0, 7))
	case "the end of the week", "end of the week":
		due = endOfDay(nextWeekday(now, time.Sunday))
	default:
		weekday, ok := weekdayNames[phrase]
		if !ok {
			return nil
		}
		due = endOfDay(nextWeekday(now, weekday))
	}
	return &due
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// nextWeekday returns the next occurrence of weekday strictly after now
func nextWeekday(now time.Time, weekday time.Weekday) time.Time {
	days := (int(weekday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

// questionLeads are openings that mark a message as a question even
// without a question mark
var questionLeads = []string{
	"how ", "what ", "why ", "when ", "where ", "who ", "which ",
	"can ", "could ", "would ", "should ", "is ", "are ", "do ", "does ",
}

func isQuestion(content string) bool {
	if strings.Contains(content, "?") {
		return true
	}
	lowered := strings.ToLower(strings.TrimSpace(content))
	for _, lead := range questionLeads {
		if strings.HasPrefix(lowered, lead) {
			return true
		}
	}
	return false
}

func derivePreferences(facts []entities.ExtractedFact) []entities.LearnedPreference {
	var prefs []entities.LearnedPreference
	for _, fact := range facts {
		if fact.FactType != entities.FactPreference {
			continue
		}
		prefs = append(prefs, entities.LearnedPreference{
			Category:   preferenceCategory(fact.Fact),
			Preference: fact.Fact,
			Confidence: fact.Confidence,
		})
	}
	return prefs
}

// preferenceCategory buckets a stated preference. Preferences about how
// the assistant should answer steer response style, so they get their
// own bucket.
func preferenceCategory(fact string) string {
	lowered := strings.ToLower(fact)
	for _, marker := range []string{"answer", "response", "reply", "replies", "explanation"} {
		if strings.Contains(lowered, marker) {
			return "response-style"
		}
	}
	return "stated"
}

// techMarkers are lowercase names that indicate a technology entity
var techMarkers = map[string]bool{
	"go": true, "golang": true, "rust": true, "python": true, "java": true,
	"javascript": true, "typescript": true, "react": true, "kubernetes": true,
	"docker": true, "postgres": true, "postgresql": true, "dynamodb": true,
	"redis": true, "aws": true, "linux": true, "sql": true, "graphql": true,
}

func extractEntities(content string) []entities.Entity {
	seen := make(map[string]bool)
	var out []entities.Entity

	words := strings.Fields(content)
	for i, word := range words {
		cleaned := strings.Trim(word, ".,!?;:\"'()[]{}")
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if seen[key] {
			continue
		}

		var entityType entities.EntityType
		switch {
		case techMarkers[key]:
			entityType = entities.EntityTechnology
		case i > 0 && startsUpper(cleaned) && !sentenceStart(words[i-1]):
			// Mid-sentence capitalization suggests a proper noun
			entityType = entities.EntityOther
		default:
			continue
		}

		seen[key] = true
		out = append(out, entities.Entity{
			Name:    cleaned,
			Type:    entityType,
			Context: truncate(content, 120),
		})
	}
	return out
}

// stopwords excluded from retrieval terms
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"i": true, "me": true, "my": true, "you": true, "your": true, "it": true,
	"of": true, "to": true, "in": true, "on": true, "at": true, "for": true,
	"with": true, "by": true, "about": true, "that": true, "this": true,
	"what": true, "which": true, "who": true, "how": true, "do": true,
	"does": true, "did": true, "have": true, "has": true, "had": true,
	"not": true, "can": true, "could": true, "would": true, "should": true,
	"will": true, "am": true, "so": true, "if": true, "we": true, "they": true,
}

func significantTerms(content string) []string {
	var terms []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(content)) {
		cleaned := strings.Trim(word, ".,!?;:\"'()[]{}")
		if len(cleaned) < 3 || stopwords[cleaned] || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		terms = append(terms, cleaned)
	}
	return terms
}

func deriveTopic(content string) string {
	terms := significantTerms(content)
	if len(terms) == 0 {
		return "general"
	}
	n := len(terms)
	if n > 3 {
		n = 3
	}
	return strings.Join(terms[:n], " ")
}

func splitSentences(content string) []string {
	return strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func sentenceStart(prev string) bool {
	return strings.HasSuffix(prev, ".") || strings.HasSuffix(prev, "!") || strings.HasSuffix(prev, "?")
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
