package config

import "time"

// DomainConfig holds all configurable business rules and constraints.
// Decay rates, confidence thresholds and coverage weightings are open
// parameters of the engine: the values here were fixed during tuning
// and this is the single place to change them.
type DomainConfig struct {
	// Memory store constraints
	MaxNodesPerUser      int
	MaxTagsPerNode       int
	MaxContentLength     int
	ImportanceFloor      float64 // memories are deprioritized, never forgotten
	ImportanceNudge      float64 // bounded increment applied on each touch
	InitialImportance    float64
	DecayRate            float64       // importance fraction removed per decay pass
	DecayWindow          time.Duration // nodes accessed within the window do not decay
	ConflictRecencyBoost float64       // extra importance granted to the newer of two conflicting facts

	// Retrieval ranking weights (importance, recency, access count)
	RankImportanceWeight float64
	RankRecencyWeight    float64
	RankAccessWeight     float64
	RetrievalLimit       int // top-K nodes consulted per turn

	// Knowledge graph constraints
	MaxEdgesPerUser     int
	MinEdgeStrength     float64
	MaxEdgeStrength     float64
	DefaultEdgeStrength float64
	TraversalDepth      int // hops outward from seed memories when assembling context

	// Learning pipeline
	MinRememberConfidence float64 // extracted facts below this are not persisted
	FailureConfidence     float64 // sentinel confidence when generation fails

	// Response strategy thresholds over the coverage score
	ConfidentThreshold float64 // coverage above this: ConfidentAnswer
	InquiryThreshold   float64 // coverage below this: InquiryFirst
	OpportunityMargin  float64 // band above InquiryThreshold flagged as LearningOpportunity

	// Conversation context
	MaxTasksPerThread    int
	MaxEntitiesPerThread int
	ThreadArchiveAfter   time.Duration
	ArchiveThreads       bool

	// Confidential mode: when true, a confidential turn suppresses memory
	// node creation as well as message persistence. The message record is
	// always suppressed.
	ConfidentialSkipsLearning bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNodesPerUser:      10000,
		MaxTagsPerNode:       20,
		MaxContentLength:     20000,
		ImportanceFloor:      0.1,
		ImportanceNudge:      0.05,
		InitialImportance:    0.5,
		DecayRate:            0.1,
		DecayWindow:          30 * 24 * time.Hour,
		ConflictRecencyBoost: 0.15,

		RankImportanceWeight: 0.5,
		RankRecencyWeight:    0.3,
		RankAccessWeight:     0.2,
		RetrievalLimit:       10,

		MaxEdgesPerUser:     50000,
		MinEdgeStrength:     0.0,
		MaxEdgeStrength:     1.0,
		DefaultEdgeStrength: 0.5,
		TraversalDepth:      2,

		MinRememberConfidence: 0.6,
		FailureConfidence:     0.1,

		ConfidentThreshold: 0.75,
		InquiryThreshold:   0.25,
		OpportunityMargin:  0.1,

		MaxTasksPerThread:    50,
		MaxEntitiesPerThread: 100,
		ThreadArchiveAfter:   90 * 24 * time.Hour,
		ArchiveThreads:       false,

		ConfidentialSkipsLearning: true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxNodesPerUser = 5000
	config.MaxContentLength = 10000
	config.ArchiveThreads = true

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxNodesPerUser = 100000
	config.MaxEdgesPerUser = 500000
	config.MinRememberConfidence = 0.3

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}
