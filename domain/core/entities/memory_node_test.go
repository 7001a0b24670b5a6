package entities

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engram/domain/config"
)

func TestNewMemoryNode(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	tests := []struct {
		name     string
		userID   string
		nodeType NodeType
		content  string
		wantErr  bool
		errMsg   string
	}{
		{
			name:     "valid fact node",
			userID:   "user123",
			nodeType: NodeTypeFact,
			content:  "works at a robotics startup",
		},
		{
			name:     "empty user ID",
			userID:   "",
			nodeType: NodeTypeFact,
			content:  "something",
			wantErr:  true,
			errMsg:   "userID",
		},
		{
			name:     "unknown node type",
			userID:   "user123",
			nodeType: NodeType("opinion"),
			content:  "something",
			wantErr:  true,
			errMsg:   "node type",
		},
		{
			name:     "whitespace-only content",
			userID:   "user123",
			nodeType: NodeTypeGoal,
			content:  "   ",
			wantErr:  true,
			errMsg:   "content",
		},
		{
			name:     "content over the limit",
			userID:   "user123",
			nodeType: NodeTypeKnowledge,
			content:  strings.Repeat("x", cfg.MaxContentLength+1),
			wantErr:  true,
			errMsg:   "maximum length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := NewMemoryNode(tt.userID, tt.nodeType, tt.content, cfg)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				assert.Nil(t, node)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, node)
			assert.False(t, node.ID().IsZero())
			assert.Equal(t, tt.userID, node.UserID())
			assert.Equal(t, tt.nodeType, node.Type())
			assert.Equal(t, cfg.InitialImportance, node.Importance())
			assert.Equal(t, 0, node.AccessCount())
			assert.Len(t, node.GetUncommittedEvents(), 1)
		})
	}
}

func TestMemoryNode_Touch(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	node, err := NewMemoryNode("user123", NodeTypePreference, "prefers dark mode", cfg)
	require.NoError(t, err)

	before := node.Importance()
	node.Touch(cfg)

	assert.Equal(t, 1, node.AccessCount())
	assert.InDelta(t, before+cfg.ImportanceNudge, node.Importance(), 1e-9)

	// importance saturates at 1 no matter how often the node is touched
	for i := 0; i < 100; i++ {
		node.Touch(cfg)
	}
	assert.Equal(t, 101, node.AccessCount())
	assert.Equal(t, 1.0, node.Importance())
}

func TestMemoryNode_Decay(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	t.Run("recently accessed node does not decay", func(t *testing.T) {
		node, err := NewMemoryNode("user123", NodeTypeFact, "fresh memory", cfg)
		require.NoError(t, err)

		decayed := node.Decay(time.Now(), cfg)
		assert.False(t, decayed)
		assert.Equal(t, cfg.InitialImportance, node.Importance())
	})

	t.Run("stale node loses a fraction of importance", func(t *testing.T) {
		node, err := NewMemoryNode("user123", NodeTypeFact, "stale memory", cfg)
		require.NoError(t, err)

		later := time.Now().Add(cfg.DecayWindow + time.Hour)
		decayed := node.Decay(later, cfg)
		assert.True(t, decayed)
		assert.InDelta(t, cfg.InitialImportance*(1-cfg.DecayRate), node.Importance(), 1e-9)
	})

	t.Run("importance never falls below the floor", func(t *testing.T) {
		node, err := NewMemoryNode("user123", NodeTypeFact, "ancient memory", cfg)
		require.NoError(t, err)

		later := time.Now().Add(cfg.DecayWindow + time.Hour)
		for i := 0; i < 200; i++ {
			node.Decay(later, cfg)
		}
		assert.Equal(t, cfg.ImportanceFloor, node.Importance())
	})
}

func TestMemoryNode_Boost(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	node, err := NewMemoryNode("user123", NodeTypeFact, "newer conflicting fact", cfg)
	require.NoError(t, err)

	node.Boost(cfg.ConflictRecencyBoost, cfg)
	assert.InDelta(t, cfg.InitialImportance+cfg.ConflictRecencyBoost, node.Importance(), 1e-9)

	node.Boost(10, cfg)
	assert.Equal(t, 1.0, node.Importance())

	node.Boost(-10, cfg)
	assert.Equal(t, cfg.ImportanceFloor, node.Importance())
}

func TestMemoryNode_RetrievalScore(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	now := time.Now()

	fresh, err := NewMemoryNode("user123", NodeTypeFact, "fresh", cfg)
	require.NoError(t, err)
	stale, err := ReconstructMemoryNode(
		fresh.ID(), "user123", NodeTypeFact, "stale", nil,
		now.Add(-90*24*time.Hour), now.Add(-90*24*time.Hour),
		cfg.InitialImportance, 0, nil,
	)
	require.NoError(t, err)

	assert.Greater(t, fresh.RetrievalScore(now, cfg), stale.RetrievalScore(now, cfg))

	// access count raises the score, log-scaled
	accessed, err := ReconstructMemoryNode(
		fresh.ID(), "user123", NodeTypeFact, "accessed", nil,
		now, now, cfg.InitialImportance, 50, nil,
	)
	require.NoError(t, err)
	assert.Greater(t, accessed.RetrievalScore(now, cfg), fresh.RetrievalScore(now, cfg))
}

func TestMemoryNode_Tags(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	node, err := NewMemoryNode("user123", NodeTypeFact, "tagged memory", cfg)
	require.NoError(t, err)

	require.NoError(t, node.AddTag("Work", cfg))
	require.NoError(t, node.AddTag("work", cfg)) // duplicate, case-insensitive
	assert.Equal(t, []string{"work"}, node.Tags())
	assert.True(t, node.HasTag("WORK"))

	assert.Error(t, node.AddTag("  ", cfg))

	for i := 0; i < cfg.MaxTagsPerNode; i++ {
		_ = node.AddTag("tag"+string(rune('a'+i)), cfg)
	}
	err = node.AddTag("overflow", cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "maximum tags")
}
