package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCommand struct {
	Value string
	fail  bool
}

func (c testCommand) Validate() error {
	if c.fail {
		return errors.New("value is required")
	}
	return nil
}

type otherCommand struct{}

func (otherCommand) Validate() error { return nil }

type recordingLogger struct {
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, keysAndValues ...interface{}) {
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) {
	l.errors = append(l.errors, msg)
}

func TestCommandBus_Send_DispatchesToRegisteredHandler(t *testing.T) {
	b := NewCommandBus()

	var received Command
	handler := CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		received = cmd
		return nil
	})
	require.NoError(t, b.Register(testCommand{}, handler))

	err := b.Send(context.Background(), testCommand{Value: "hello"})
	require.NoError(t, err)

	cmd, ok := received.(testCommand)
	require.True(t, ok)
	assert.Equal(t, "hello", cmd.Value)
}

func TestCommandBus_Send_NoHandler(t *testing.T) {
	b := NewCommandBus()

	err := b.Send(context.Background(), testCommand{Value: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestCommandBus_Send_ValidationRunsBeforeDispatch(t *testing.T) {
	b := NewCommandBus()

	called := false
	handler := CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		called = true
		return nil
	})
	require.NoError(t, b.Register(testCommand{}, handler))

	err := b.Send(context.Background(), testCommand{fail: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.False(t, called)
}

func TestCommandBus_Send_PropagatesHandlerError(t *testing.T) {
	b := NewCommandBus()

	handlerErr := errors.New("storage unavailable")
	handler := CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		return handlerErr
	})
	require.NoError(t, b.Register(testCommand{}, handler))

	err := b.Send(context.Background(), testCommand{})
	assert.ErrorIs(t, err, handlerErr)
}

func TestCommandBus_Register_RejectsDuplicate(t *testing.T) {
	b := NewCommandBus()
	handler := CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		return nil
	})

	require.NoError(t, b.Register(testCommand{}, handler))
	err := b.Register(testCommand{}, handler)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateHandler)

	// A different command type is still free
	assert.NoError(t, b.Register(otherCommand{}, handler))
}

func TestLoggingMiddleware(t *testing.T) {
	logger := &recordingLogger{}
	mw := LoggingMiddleware(logger)

	success := mw(CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		return nil
	}))
	require.NoError(t, success.Handle(context.Background(), testCommand{}))
	require.Len(t, logger.infos, 1)
	assert.Equal(t, "command handled", logger.infos[0])

	failure := mw(CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		return errors.New("boom")
	}))
	require.Error(t, failure.Handle(context.Background(), testCommand{}))
	require.Len(t, logger.errors, 1)
	assert.Equal(t, "command failed", logger.errors[0])
}
