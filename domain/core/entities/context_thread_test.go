package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engram/domain/config"
	"engram/domain/core/valueobjects"
)

func newTestThread(t *testing.T) *ConversationContext {
	t.Helper()
	ctx, err := NewConversationContext(valueobjects.NewThreadID(), "user123")
	require.NoError(t, err)
	return ctx
}

func TestNewConversationContext(t *testing.T) {
	ctx := newTestThread(t)
	assert.Equal(t, SentimentNeutral, ctx.Sentiment())
	assert.False(t, ctx.IsArchived())
	assert.Empty(t, ctx.OngoingTasks())

	_, err := NewConversationContext(valueobjects.ThreadID{}, "user123")
	assert.Error(t, err)

	_, err = NewConversationContext(valueobjects.NewThreadID(), "")
	assert.Error(t, err)
}

func TestConversationContext_RecordMessage(t *testing.T) {
	ctx := newTestThread(t)

	ctx.RecordMessage("career plans", SentimentExcited)
	assert.Equal(t, "career plans", ctx.Topic())
	assert.Equal(t, SentimentExcited, ctx.Sentiment())

	// empty topic and sentiment leave the previous values in place
	ctx.RecordMessage("", "")
	assert.Equal(t, "career plans", ctx.Topic())
	assert.Equal(t, SentimentExcited, ctx.Sentiment())
}

func TestConversationContext_MergeEntity(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	ctx := newTestThread(t)

	ctx.MergeEntity(Entity{Name: "Acme", Type: EntityCompany, Context: "employer"}, cfg)
	ctx.MergeEntity(Entity{Name: "acme", Type: EntityOther, Context: "mentioned again"}, cfg)

	entities := ctx.MentionedEntities()
	require.Len(t, entities, 1)
	assert.Equal(t, "Acme", entities[0].Name)
	assert.Equal(t, EntityCompany, entities[0].Type) // EntityOther never downgrades a known type
	assert.Equal(t, "mentioned again", entities[0].Context)

	ctx.MergeEntity(Entity{Name: "  "}, cfg)
	assert.Len(t, ctx.MentionedEntities(), 1)
}

func TestConversationContext_UpsertTask(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	ctx := newTestThread(t)

	ctx.UpsertTask("ship the release", TaskActive, nil, cfg)
	due := time.Now().Add(48 * time.Hour)
	ctx.UpsertTask("Ship The Release", TaskCompleted, &due, cfg)

	tasks := ctx.OngoingTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskCompleted, tasks[0].Status)
	require.NotNil(t, tasks[0].DueDate)
}

func TestConversationContext_ArchiveIfInactive(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.ArchiveThreads = true
	ctx := newTestThread(t)

	assert.False(t, ctx.ArchiveIfInactive(time.Now(), cfg))

	idle := time.Now().Add(cfg.ThreadArchiveAfter + time.Hour)
	assert.True(t, ctx.ArchiveIfInactive(idle, cfg))
	assert.True(t, ctx.IsArchived())

	// already archived threads are not archived twice
	assert.False(t, ctx.ArchiveIfInactive(idle, cfg))

	// a new message reactivates the thread
	ctx.RecordMessage("back again", SentimentNeutral)
	assert.False(t, ctx.IsArchived())
}

func TestConversationContext_LinkMemory(t *testing.T) {
	ctx := newTestThread(t)
	id := valueobjects.NewNodeID()

	ctx.LinkMemory(id)
	ctx.LinkMemory(id)
	assert.Len(t, ctx.RelatedMemories(), 1)
}
