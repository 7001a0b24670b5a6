// Package ai implements the model-facing ports on top of the OpenAI
// chat completion API. Any OpenAI-compatible endpoint works through the
// BaseURL override, which is how alternative providers are wired in.
package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"engram/application/ports"
	"engram/domain/core/entities"
	pkgerrors "engram/pkg/errors"
)

// ProviderConfig holds the settings for one chat completion provider.
type ProviderConfig struct {
	Name       string
	BaseURL    string
	APIKey     string
	Model      string
	MaxTokens  int
	MaxRetries int
	Timeout    time.Duration
}

// DefaultProviderConfig returns the default OpenAI configuration.
func DefaultProviderConfig() *ProviderConfig {
	return &ProviderConfig{
		Name:       "openai",
		BaseURL:    "https://api.openai.com/v1",
		Model:      "gpt-4o-mini",
		MaxTokens:  1024,
		MaxRetries: 3,
		Timeout:    30 * time.Second,
	}
}

// OpenAIGenerator produces assistant replies through the chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	config *ProviderConfig
	logger *zap.Logger
}

// NewOpenAIGenerator creates a generator for the configured provider.
func NewOpenAIGenerator(cfg *ProviderConfig, logger *zap.Logger) *OpenAIGenerator {
	if cfg == nil {
		cfg = DefaultProviderConfig()
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: logger,
	}
}

var _ ports.TextGenerator = (*OpenAIGenerator)(nil)

// Name identifies the provider for cost multipliers.
func (g *OpenAIGenerator) Name() string { return g.config.Name }

// Generate produces the assistant reply for one turn.
func (g *OpenAIGenerator) Generate(ctx context.Context, req ports.GenerationRequest) (*ports.GenerationResult, error) {
	messages := buildMessages(req)

	var result *ports.GenerationResult
	err := g.doWithRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
		resp, err := g.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:     g.config.Model,
			Messages:  messages,
			MaxTokens: g.config.MaxTokens,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		result = &ports.GenerationResult{
			Content:          resp.Choices[0].Message.Content,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.NewExternalError("chat completion", err)
	}

	return result, nil
}

// doWithRetry executes a function with exponential backoff retry.
func (g *OpenAIGenerator) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < g.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < g.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				g.logger.Debug("model request failed, retrying",
					zap.Int("attempt", attempt+1),
					zap.Duration("wait_time", waitTime),
					zap.Error(err))
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}

// buildMessages assembles the prompt: a stance-specific system message,
// recalled memories and profile hints, then recent conversation history.
func buildMessages(req ports.GenerationRequest) []openai.ChatCompletionMessage {
	var system strings.Builder
	system.WriteString("You are a personal assistant with long-term memory of this user.\n")
	system.WriteString(stanceInstruction(req.Strategy))
	if req.Style != "" {
		system.WriteString("\nRespond in this style: " + req.Style + "\n")
	}

	if len(req.MemoryContext) > 0 {
		system.WriteString("\nWhat you remember about the user, most relevant first:\n")
		for _, memory := range req.MemoryContext {
			system.WriteString("- " + memory + "\n")
		}
	}
	if len(req.ProfileHints) > 0 {
		system.WriteString("\nUser profile:\n")
		for _, hint := range req.ProfileHints {
			system.WriteString("- " + hint + "\n")
		}
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system.String()},
	}
	for _, msg := range req.History {
		role := openai.ChatMessageRoleUser
		if msg.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserMessage,
	})
	return messages
}

func stanceInstruction(record entities.StrategyRecord) string {
	switch record.Kind {
	case entities.StrategyConfidentAnswer:
		return "Answer directly from what you remember. Do not hedge."
	case entities.StrategyPartialAnswer:
		return fmt.Sprintf("Answer with what you know, then ask about the gap: %s", record.ClarificationNeeded)
	case entities.StrategyInquiryFirst:
		return fmt.Sprintf("Do not answer yet. Ask: %q and briefly explain that %s", record.Question, record.WhyAsking)
	case entities.StrategyLearningOpportunity:
		return fmt.Sprintf("Answer as best you can, then invite the user to share more: %s", record.Suggestion)
	default:
		return "Answer helpfully."
	}
}
