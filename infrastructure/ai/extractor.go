package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"engram/application/ports"
	"engram/domain/core/entities"
)

const extractionPrompt = `You are a memory extraction engine. Extract durable facts about the user from their message.

Rules:
1. Extract only explicit facts, no speculation
2. Keep each fact concise and independent
3. fact_type must be one of: personal_info/preference/goal/relationship/experience/knowledge
4. confidence must be in [0.0, 1.0]
5. Set should_remember true only for facts worth recalling in later conversations

Return strict JSON object:
{"facts":[{"fact":"...","fact_type":"...","confidence":0.9,"should_remember":true}]}

Message:
%s`

// ModelFactExtractor pulls durable facts out of user messages with a
// chat completion call. It shares retry behavior with OpenAIGenerator.
type ModelFactExtractor struct {
	generator *OpenAIGenerator
	logger    *zap.Logger
}

// NewModelFactExtractor creates a model-backed fact extractor.
func NewModelFactExtractor(generator *OpenAIGenerator, logger *zap.Logger) *ModelFactExtractor {
	return &ModelFactExtractor{generator: generator, logger: logger}
}

var _ ports.FactExtractor = (*ModelFactExtractor)(nil)

type extractionResult struct {
	Facts []entities.ExtractedFact `json:"facts"`
}

// ExtractFacts returns the remember-worthy facts found in content.
func (e *ModelFactExtractor) ExtractFacts(ctx context.Context, content string) ([]entities.ExtractedFact, error) {
	var raw string
	err := e.generator.doWithRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.generator.config.Timeout)
		defer cancel()
		resp, err := e.generator.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: e.generator.config.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(extractionPrompt, content)},
			},
			MaxTokens: e.generator.config.MaxTokens,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty extraction response")
		}
		raw = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	var result extractionResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &result); err != nil {
		return nil, fmt.Errorf("parse extraction result: %w", err)
	}

	facts := result.Facts[:0]
	for _, fact := range result.Facts {
		if fact.Fact == "" || !validFactType(fact.FactType) {
			e.logger.Debug("dropping malformed extracted fact", zap.String("fact", fact.Fact))
			continue
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

// stripFences removes a markdown code fence when the model wraps its JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func validFactType(t entities.FactType) bool {
	switch t {
	case entities.FactPersonalInfo, entities.FactPreference, entities.FactGoal,
		entities.FactRelationship, entities.FactExperience, entities.FactKnowledge:
		return true
	}
	return false
}
