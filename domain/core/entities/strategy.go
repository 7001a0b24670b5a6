package entities

import "engram/domain/core/valueobjects"

// ResponseStrategy is the per-turn decision of how the assistant should
// answer. It is a closed set of variants; the selector and the HTTP
// layer switch over the concrete types exhaustively.
type ResponseStrategy interface {
	StrategyKind() StrategyKind
}

// StrategyKind names a ResponseStrategy variant
type StrategyKind string

const (
	StrategyConfidentAnswer     StrategyKind = "confident_answer"
	StrategyPartialAnswer       StrategyKind = "partial_answer"
	StrategyInquiryFirst        StrategyKind = "inquiry_first"
	StrategyLearningOpportunity StrategyKind = "learning_opportunity"
)

// ConfidentAnswer is chosen when retrieved memory covers the query with
// high aggregate confidence. Sources lists the memory nodes used.
type ConfidentAnswer struct {
	Sources    []valueobjects.NodeID `json:"sources"`
	Confidence float64               `json:"confidence"`
}

func (ConfidentAnswer) StrategyKind() StrategyKind { return StrategyConfidentAnswer }

// PartialAnswer is chosen when some relevant memory exists but a required
// attribute is missing. ClarificationNeeded names precisely what is missing.
type PartialAnswer struct {
	KnownInfo           string `json:"known_info"`
	ClarificationNeeded string `json:"clarification_needed"`
}

func (PartialAnswer) StrategyKind() StrategyKind { return StrategyPartialAnswer }

// InquiryFirst is chosen when confidence is too low and the missing
// information is foundational: the assistant must ask before answering,
// and must explain why it is asking.
type InquiryFirst struct {
	Question  string `json:"question"`
	WhyAsking string `json:"why_asking"`
}

func (InquiryFirst) StrategyKind() StrategyKind { return StrategyInquiryFirst }

// LearningOpportunity flags a worthwhile gap in stored knowledge without
// blocking the answer.
type LearningOpportunity struct {
	Suggestion string `json:"suggestion"`
}

func (LearningOpportunity) StrategyKind() StrategyKind { return StrategyLearningOpportunity }

// StrategyRecord is the serializable form of a ResponseStrategy, stored
// on chat messages and returned over the wire.
type StrategyRecord struct {
	Kind                StrategyKind          `json:"kind"`
	Sources             []valueobjects.NodeID `json:"sources,omitempty"`
	Confidence          float64               `json:"confidence,omitempty"`
	KnownInfo           string                `json:"known_info,omitempty"`
	ClarificationNeeded string                `json:"clarification_needed,omitempty"`
	Question            string                `json:"question,omitempty"`
	WhyAsking           string                `json:"why_asking,omitempty"`
	Suggestion          string                `json:"suggestion,omitempty"`
}

// RecordStrategy flattens a strategy variant into its storable record
func RecordStrategy(s ResponseStrategy) StrategyRecord {
	switch v := s.(type) {
	case ConfidentAnswer:
		return StrategyRecord{Kind: StrategyConfidentAnswer, Sources: v.Sources, Confidence: v.Confidence}
	case PartialAnswer:
		return StrategyRecord{Kind: StrategyPartialAnswer, KnownInfo: v.KnownInfo, ClarificationNeeded: v.ClarificationNeeded}
	case InquiryFirst:
		return StrategyRecord{Kind: StrategyInquiryFirst, Question: v.Question, WhyAsking: v.WhyAsking}
	case LearningOpportunity:
		return StrategyRecord{Kind: StrategyLearningOpportunity, Suggestion: v.Suggestion}
	default:
		return StrategyRecord{}
	}
}
