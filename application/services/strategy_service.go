package services

import (
	"strings"

	"engram/domain/config"
	"engram/domain/core/aggregates"
	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
	"go.uber.org/zap"
)

// StrategyService selects how the assistant should respond to a turn,
// based on how well retrieved memory covers the question
type StrategyService struct {
	cfg    *config.DomainConfig
	logger *zap.Logger
}

// NewStrategyService creates a strategy service
func NewStrategyService(cfg *config.DomainConfig, logger *zap.Logger) *StrategyService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &StrategyService{
		cfg:    cfg,
		logger: logger,
	}
}

// Select picks the response strategy for a turn. terms are the
// significant words of the user message and retrieved the ranked
// memories found for them.
func (s *StrategyService) Select(terms []string, retrieved []aggregates.ScoredMemory) entities.ResponseStrategy {
	coverage := s.coverage(terms, retrieved)

	s.logger.Debug("strategy selection",
		zap.Float64("coverage", coverage),
		zap.Int("memories", len(retrieved)),
		zap.Int("terms", len(terms)),
	)

	switch {
	case coverage >= s.cfg.ConfidentThreshold:
		sources := make([]valueobjects.NodeID, 0, len(retrieved))
		for _, m := range retrieved {
			sources = append(sources, m.Node.ID())
		}
		return entities.ConfidentAnswer{
			Sources:    sources,
			Confidence: coverage,
		}

	case coverage < s.cfg.InquiryThreshold:
		return entities.InquiryFirst{
			Question:  s.inquiryQuestion(terms),
			WhyAsking: "I don't have enough stored context to answer this reliably yet.",
		}

	case coverage < s.cfg.InquiryThreshold+s.cfg.OpportunityMargin:
		return entities.LearningOpportunity{
			Suggestion: s.learningSuggestion(terms, retrieved),
		}

	default:
		return entities.PartialAnswer{
			KnownInfo:           summarizeKnown(retrieved),
			ClarificationNeeded: s.missingDetail(terms, retrieved),
		}
	}
}

// coverage scores how completely retrieved memory answers the query.
// Term overlap dominates; the quality of the matched memories refines it.
func (s *StrategyService) coverage(terms []string, retrieved []aggregates.ScoredMemory) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	if len(terms) == 0 {
		// No meaningful terms to match against, trust memory quality alone
		return avgImportance(retrieved)
	}

	matched := 0
	for _, term := range terms {
		for _, m := range retrieved {
			if strings.Contains(strings.ToLower(m.Node.Content()), term) || m.Node.HasTag(term) {
				matched++
				break
			}
		}
	}
	termCoverage := float64(matched) / float64(len(terms))
	return 0.6*termCoverage + 0.4*avgImportance(retrieved)
}

func avgImportance(retrieved []aggregates.ScoredMemory) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range retrieved {
		sum += m.Node.Importance()
	}
	return sum / float64(len(retrieved))
}

func (s *StrategyService) inquiryQuestion(terms []string) string {
	if len(terms) == 0 {
		return "Could you tell me a bit more about what you're asking?"
	}
	return "Could you tell me more about " + strings.Join(firstN(terms, 2), " and ") + "?"
}

func (s *StrategyService) learningSuggestion(terms []string, retrieved []aggregates.ScoredMemory) string {
	if len(terms) == 0 {
		return "Sharing more detail here would help me answer better next time."
	}
	return "I only know a little about " + terms[0] + ". Telling me more would help me give better answers later."
}

func (s *StrategyService) missingDetail(terms []string, retrieved []aggregates.ScoredMemory) string {
	for _, term := range terms {
		covered := false
		for _, m := range retrieved {
			if strings.Contains(strings.ToLower(m.Node.Content()), term) || m.Node.HasTag(term) {
				covered = true
				break
			}
		}
		if !covered {
			return "details about " + term
		}
	}
	return "more specifics"
}

func summarizeKnown(retrieved []aggregates.ScoredMemory) string {
	parts := make([]string, 0, len(retrieved))
	for _, m := range firstNMemories(retrieved, 3) {
		parts = append(parts, m.Node.Content())
	}
	return strings.Join(parts, "; ")
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func firstNMemories(s []aggregates.ScoredMemory, n int) []aggregates.ScoredMemory {
	if len(s) > n {
		return s[:n]
	}
	return s
}
