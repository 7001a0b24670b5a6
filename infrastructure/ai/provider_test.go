package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"engram/application/ports"
	"engram/domain/core/entities"
)

func TestOpenAIGenerator_Generate_EnforcesConfiguredTimeout(t *testing.T) {
	// The handler never replies on its own. The call can only end when
	// the client gives up, so a bounded elapsed time means the
	// per-request deadline was applied.
	handlerDone := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-handlerDone
	}))
	defer server.Close()
	defer close(handlerDone)

	generator := NewOpenAIGenerator(&ProviderConfig{
		Name:       "slow",
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Model:      "gpt-4o-mini",
		MaxRetries: 1,
		Timeout:    50 * time.Millisecond,
	}, zap.NewNop())

	start := time.Now()
	_, err := generator.Generate(context.Background(), ports.GenerationRequest{UserMessage: "hello"})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestBuildMessages_StyleAndHistory(t *testing.T) {
	req := ports.GenerationRequest{
		UserMessage: "what should I cook tonight?",
		Style:       "pirate",
		Strategy:    entities.StrategyRecord{Kind: entities.StrategyConfidentAnswer},
		History: []*entities.EnhancedChatMessage{
			{Role: "user", Content: "I love thai food"},
			{Role: "assistant", Content: "Noted, spicy it is."},
		},
	}

	messages := buildMessages(req)
	require.Len(t, messages, 4)

	assert.Equal(t, openai.ChatMessageRoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "Respond in this style: pirate")

	assert.Equal(t, openai.ChatMessageRoleUser, messages[1].Role)
	assert.Equal(t, "I love thai food", messages[1].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, messages[2].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, messages[3].Role)
	assert.Equal(t, "what should I cook tonight?", messages[3].Content)
}
