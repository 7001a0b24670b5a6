package ports

import (
	"context"

	"engram/domain/core/entities"
)

// GenerationRequest carries everything a provider needs to produce a reply
type GenerationRequest struct {
	UserMessage   string
	MemoryContext []string
	ProfileHints  []string
	Style         string
	Strategy      entities.StrategyRecord
	History       []*entities.EnhancedChatMessage
}

// GenerationResult is a provider's reply plus usage accounting
type GenerationResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// TextGenerator defines the interface to a response-generating model
type TextGenerator interface {
	// Generate produces the assistant reply for one turn
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)

	// Name identifies the provider, used for cost multipliers
	Name() string
}

// FactExtractor defines the interface for pulling durable facts out of a
// user message. Implementations may call a model or work heuristically.
type FactExtractor interface {
	// ExtractFacts returns the remember-worthy facts found in content
	ExtractFacts(ctx context.Context, content string) ([]entities.ExtractedFact, error)
}

// ProviderRegistry resolves generators by provider name and exposes the
// per-provider cost multipliers used by the accountant
type ProviderRegistry interface {
	// Generator returns the generator registered under name, or the
	// default one when name is empty
	Generator(name string) (TextGenerator, error)

	// Multiplier returns the cost multiplier for a provider
	Multiplier(name string) float32

	// SetMultiplier updates the cost multiplier for a provider
	SetMultiplier(name string, multiplier float32)

	// Names lists the registered providers
	Names() []string
}
