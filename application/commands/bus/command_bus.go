package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"
)

var (
	ErrHandlerNotFound  = errors.New("no handler registered for command")
	ErrDuplicateHandler = errors.New("handler already registered for command")
	ErrValidationFailed = errors.New("command validation failed")
)

// Command is a state-changing request. Validate runs before dispatch,
// so handlers always see a well-formed command.
type Command interface {
	Validate() error
}

// CommandHandler executes one command type.
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
}

// CommandHandlerFunc adapts a function to the CommandHandler interface.
type CommandHandlerFunc func(ctx context.Context, cmd Command) error

func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// Middleware wraps a handler with cross-cutting behavior.
type Middleware func(next CommandHandler) CommandHandler

// Logger is the minimal structured logging surface the bus needs.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CommandBus routes each command to the single handler registered for
// its concrete type.
type CommandBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]CommandHandler
}

func NewCommandBus() *CommandBus {
	return &CommandBus{handlers: make(map[reflect.Type]CommandHandler)}
}

// Register binds a handler to the concrete type of cmdType. Each type
// gets exactly one handler.
func (b *CommandBus) Register(cmdType Command, handler CommandHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(cmdType)
	if _, ok := b.handlers[t]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, t.Name())
	}
	b.handlers[t] = handler
	return nil
}

// Send validates the command and dispatches it to its handler.
func (b *CommandBus) Send(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	b.mu.RLock()
	handler, ok := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %T", ErrHandlerNotFound, cmd)
	}

	return handler.Handle(ctx, cmd)
}

// LoggingMiddleware logs each dispatch with its duration and outcome.
func LoggingMiddleware(logger Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			name := reflect.TypeOf(cmd).Name()
			start := time.Now()

			err := next.Handle(ctx, cmd)
			if err != nil {
				logger.Error("command failed",
					"command", name,
					"duration", time.Since(start).String(),
					"error", err,
				)
				return err
			}

			logger.Info("command handled",
				"command", name,
				"duration", time.Since(start).String(),
			)
			return nil
		})
	}
}
