package commands

import (
	"context"
	"testing"
	"time"

	"engram/domain/events"
	memorystore "engram/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type capturingSubscriber struct {
	events []events.DomainEvent
}

func (s *capturingSubscriber) Handle(ctx context.Context, event events.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *capturingSubscriber) CanHandle(eventType string) bool { return true }

func newUpdateProfileFixture(t *testing.T) (*UpdateProfileHandler, *memorystore.GraphRepository, *capturingSubscriber) {
	t.Helper()
	logger := zap.NewNop()
	graphs := memorystore.NewGraphRepository()
	eventBus := memorystore.NewEventBus(logger)
	subscriber := &capturingSubscriber{}
	require.NoError(t, eventBus.Subscribe("profile.updated", subscriber))

	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	handler := NewUpdateProfileHandler(graphs, memorystore.NewUserLocker(), eventBus, clock, logger)
	return handler, graphs, subscriber
}

func TestUpdateProfileHandler_Handle_SetsFields(t *testing.T) {
	handler, graphs, subscriber := newUpdateProfileFixture(t)
	ctx := context.Background()

	name := "Ali"
	changed, err := handler.Handle(ctx, UpdateProfileCommand{
		UserID:         "user-1",
		PreferredName:  &name,
		Interests:      []string{"hiking", "Hiking", "jazz"},
		ExpertiseAreas: []string{"distributed systems"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"preferred_name", "interests", "expertise_areas"}, changed)

	graph, err := graphs.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	profile := graph.Profile()
	assert.Equal(t, "Ali", profile.PreferredName)
	assert.Equal(t, []string{"hiking", "jazz"}, profile.Interests)
	assert.Equal(t, []string{"distributed systems"}, profile.ExpertiseAreas)

	require.Len(t, subscriber.events, 1)
	assert.Equal(t, "profile.updated", subscriber.events[0].GetEventType())
}

func TestUpdateProfileHandler_Handle_ResponsePreferencePatch(t *testing.T) {
	handler, graphs, _ := newUpdateProfileFixture(t)
	ctx := context.Background()

	quick := true
	cmd := UpdateProfileCommand{
		UserID:              "user-1",
		ResponsePreferences: &ResponsePreferencePatch{Quick: &quick},
	}

	changed, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"response_preferences"}, changed)

	graph, err := graphs.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, graph.Profile().ResponsePreferences.Quick)
	assert.False(t, graph.Profile().ResponsePreferences.Detailed)

	// Applying the same patch again is a no-op
	changed, err = handler.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestUpdateProfileHandler_Handle_NoOpReturnsNothing(t *testing.T) {
	handler, _, subscriber := newUpdateProfileFixture(t)
	ctx := context.Background()

	empty := "   "
	changed, err := handler.Handle(ctx, UpdateProfileCommand{
		UserID:        "user-1",
		PreferredName: &empty,
	})
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Empty(t, subscriber.events)
}

func TestUpdateProfileCommand_Validate(t *testing.T) {
	name := "Ali"

	tests := []struct {
		scenario string
		cmd      UpdateProfileCommand
		wantErr  string
	}{
		{
			scenario: "missing user",
			cmd:      UpdateProfileCommand{PreferredName: &name},
			wantErr:  "user ID is required",
		},
		{
			scenario: "no fields",
			cmd:      UpdateProfileCommand{UserID: "user-1"},
			wantErr:  "at least one profile field is required",
		},
		{
			scenario: "valid",
			cmd:      UpdateProfileCommand{UserID: "user-1", Interests: []string{"chess"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.scenario, func(t *testing.T) {
			err := tc.cmd.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.wantErr)
			}
		})
	}
}
