package sagas

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Step is one unit of work in a saga. Compensate, when set, undoes the
// step after a later step fails. Steps retry up to MaxRetries times
// with RetryDelay between attempts.
type Step struct {
	Name       string
	Execute    func(ctx context.Context, data interface{}) (interface{}, error)
	Compensate func(ctx context.Context, data interface{}) error
	MaxRetries int
	RetryDelay time.Duration
}

// State tracks where a saga is in its lifecycle.
type State string

const (
	StatePending     State = "PENDING"
	StateRunning     State = "RUNNING"
	StateCompleted   State = "COMPLETED"
	StateFailed      State = "FAILED"
	StateCompensated State = "COMPENSATED"
)

// Saga runs a sequence of steps, feeding each step's result into the
// next. On failure it runs the compensations of completed steps in
// reverse order before returning the original error.
type Saga struct {
	id            string
	name          string
	steps         []Step
	compensations []func(ctx context.Context) error
	state         State
	logger        *zap.Logger
	metadata      map[string]interface{}
}

// NewSaga creates an empty saga.
func NewSaga(name string, logger *zap.Logger) *Saga {
	return &Saga{
		id:       uuid.NewString(),
		name:     name,
		state:    StatePending,
		logger:   logger,
		metadata: make(map[string]interface{}),
	}
}

// AddStep appends a step. Steps run in the order added.
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// SetMetadata attaches a key for log correlation.
func (s *Saga) SetMetadata(key string, value interface{}) *Saga {
	s.metadata[key] = value
	return s
}

// State reports the saga's current lifecycle state.
func (s *Saga) State() State {
	return s.state
}

// Execute runs every step. The returned value is the output of the
// final step.
func (s *Saga) Execute(ctx context.Context, initial interface{}) (interface{}, error) {
	s.state = StateRunning
	s.logger.Info("saga started",
		zap.String("sagaID", s.id),
		zap.String("saga", s.name),
		zap.Int("steps", len(s.steps)),
		zap.Any("metadata", s.metadata),
	)

	data := initial
	completed := 0

	for _, step := range s.steps {
		result, err := s.runStep(ctx, step, data)
		if err != nil {
			s.state = StateFailed
			s.logger.Error("saga step failed",
				zap.String("sagaID", s.id),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			s.compensate(ctx, completed)
			return nil, fmt.Errorf("saga %s failed at step %s: %w", s.name, step.Name, err)
		}

		data = result
		completed++

		if step.Compensate != nil {
			stepData := data
			comp := step.Compensate
			s.compensations = append(s.compensations, func(ctx context.Context) error {
				return comp(ctx, stepData)
			})
		}
	}

	s.state = StateCompleted
	s.logger.Info("saga completed",
		zap.String("sagaID", s.id),
		zap.String("saga", s.name),
	)
	return data, nil
}

func (s *Saga) runStep(ctx context.Context, step Step, data interface{}) (interface{}, error) {
	attempts := step.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := step.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := step.Execute(ctx, data)
		if err == nil {
			return result, nil
		}
		lastErr = err
		s.logger.Warn("saga step attempt failed",
			zap.String("sagaID", s.id),
			zap.String("step", step.Name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return nil, fmt.Errorf("step %s failed after %d attempts: %w", step.Name, attempts, lastErr)
}

// compensate unwinds completed steps in reverse. Compensation failures
// are logged and skipped so the remaining steps still get a chance to
// undo their work.
func (s *Saga) compensate(ctx context.Context, completed int) {
	if len(s.compensations) == 0 {
		s.state = StateCompensated
		return
	}

	s.logger.Info("saga compensating",
		zap.String("sagaID", s.id),
		zap.Int("completedSteps", completed),
	)

	for i := len(s.compensations) - 1; i >= 0; i-- {
		if err := s.compensations[i](ctx); err != nil {
			s.logger.Error("saga compensation failed",
				zap.String("sagaID", s.id),
				zap.Int("step", i+1),
				zap.Error(err),
			)
		}
	}
	s.state = StateCompensated
}

// Builder assembles a saga fluently.
type Builder struct {
	saga *Saga
}

// NewSagaBuilder starts a builder for a named saga.
func NewSagaBuilder(name string, logger *zap.Logger) *Builder {
	return &Builder{saga: NewSaga(name, logger)}
}

// WithStep adds a step that runs once.
func (b *Builder) WithStep(name string, execute func(context.Context, interface{}) (interface{}, error)) *Builder {
	b.saga.AddStep(Step{Name: name, Execute: execute})
	return b
}

// WithRetryableStep adds a step that retries on failure.
func (b *Builder) WithRetryableStep(
	name string,
	execute func(context.Context, interface{}) (interface{}, error),
	maxRetries int,
	retryDelay time.Duration,
) *Builder {
	b.saga.AddStep(Step{
		Name:       name,
		Execute:    execute,
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
	})
	return b
}

// WithMetadata attaches a correlation key to the saga's logs.
func (b *Builder) WithMetadata(key string, value interface{}) *Builder {
	b.saga.SetMetadata(key, value)
	return b
}

// Build returns the assembled saga.
func (b *Builder) Build() *Saga {
	return b.saga
}
