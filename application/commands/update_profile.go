package commands

import (
	"context"
	"errors"
	"strings"

	"engram/application/ports"
	"engram/domain/core/entities"
	"go.uber.org/zap"
)

// ResponsePreferencePatch carries optional response preference switches.
// Nil fields are left untouched.
type ResponsePreferencePatch struct {
	StepByStep *bool `json:"step_by_step,omitempty"`
	Detailed   *bool `json:"detailed,omitempty"`
	Quick      *bool `json:"quick,omitempty"`
	Examples   *bool `json:"examples,omitempty"`
	Autopilot  *bool `json:"autopilot,omitempty"`
}

// UpdateProfileCommand applies an explicit partial edit to the user's
// profile. Unlike the learning pipeline, these are fields the user set
// directly, so they always win over inferred values.
type UpdateProfileCommand struct {
	UserID              string                   `json:"user_id" validate:"required"`
	PreferredName       *string                  `json:"preferred_name,omitempty" validate:"omitempty,max=100"`
	Interests           []string                 `json:"interests,omitempty" validate:"omitempty,max=50,dive,min=1,max=100"`
	ExpertiseAreas      []string                 `json:"expertise_areas,omitempty" validate:"omitempty,max=50,dive,min=1,max=100"`
	ResponsePreferences *ResponsePreferencePatch `json:"response_preferences,omitempty"`
}

// Validate validates the command
func (cmd UpdateProfileCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.PreferredName == nil && len(cmd.Interests) == 0 &&
		len(cmd.ExpertiseAreas) == 0 && cmd.ResponsePreferences == nil {
		return errors.New("at least one profile field is required")
	}
	return nil
}

// UpdateProfileHandler handles the UpdateProfileCommand
type UpdateProfileHandler struct {
	graphRepo ports.GraphRepository
	locker    ports.UserLocker
	eventBus  ports.EventPublisher
	clock     ports.Clock
	logger    *zap.Logger
}

// NewUpdateProfileHandler creates a new handler instance
func NewUpdateProfileHandler(
	graphRepo ports.GraphRepository,
	locker ports.UserLocker,
	eventBus ports.EventPublisher,
	clock ports.Clock,
	logger *zap.Logger,
) *UpdateProfileHandler {
	return &UpdateProfileHandler{
		graphRepo: graphRepo,
		locker:    locker,
		eventBus:  eventBus,
		clock:     clock,
		logger:    logger,
	}
}

// Handle executes the update profile command and returns the names of
// the fields that actually changed.
func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) ([]string, error) {
	if err := h.locker.Lock(ctx, cmd.UserID); err != nil {
		return nil, err
	}
	defer h.locker.Unlock(cmd.UserID)

	graph, err := h.graphRepo.GetOrCreate(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	profile := graph.Profile()
	var changed []string

	if cmd.PreferredName != nil {
		name := strings.TrimSpace(*cmd.PreferredName)
		if name != profile.PreferredName {
			profile.PreferredName = name
			changed = append(changed, "preferred_name")
		}
	}

	before := len(profile.Interests)
	for _, interest := range cmd.Interests {
		profile.AddInterest(interest)
	}
	if len(profile.Interests) != before {
		changed = append(changed, "interests")
	}

	if added := mergeAreas(&profile.ExpertiseAreas, cmd.ExpertiseAreas); added {
		changed = append(changed, "expertise_areas")
	}

	if cmd.ResponsePreferences != nil && applyPreferencePatch(&profile.ResponsePreferences, cmd.ResponsePreferences) {
		changed = append(changed, "response_preferences")
	}

	if len(changed) == 0 {
		return nil, nil
	}

	graph.RecordProfileUpdate(changed, h.clock.Now())
	if err := h.graphRepo.Save(ctx, graph); err != nil {
		return nil, err
	}

	if err := h.eventBus.PublishBatch(ctx, graph.GetUncommittedEvents()); err != nil {
		h.logger.Warn("failed to publish profile events", zap.Error(err))
	}
	graph.MarkEventsAsCommitted()

	h.logger.Info("profile updated",
		zap.String("userID", cmd.UserID),
		zap.Strings("fields", changed),
	)
	return changed, nil
}

// mergeAreas appends new entries case-insensitively and reports whether
// anything was added
func mergeAreas(existing *[]string, incoming []string) bool {
	added := false
	for _, area := range incoming {
		area = strings.TrimSpace(area)
		if area == "" {
			continue
		}
		known := false
		for _, have := range *existing {
			if strings.EqualFold(have, area) {
				known = true
				break
			}
		}
		if !known {
			*existing = append(*existing, area)
			added = true
		}
	}
	return added
}

func applyPreferencePatch(prefs *entities.ResponsePreferences, patch *ResponsePreferencePatch) bool {
	changed := false
	set := func(target *bool, value *bool) {
		if value != nil && *target != *value {
			*target = *value
			changed = true
		}
	}
	set(&prefs.StepByStep, patch.StepByStep)
	set(&prefs.Detailed, patch.Detailed)
	set(&prefs.Quick, patch.Quick)
	set(&prefs.Examples, patch.Examples)
	set(&prefs.Autopilot, patch.Autopilot)
	return changed
}
