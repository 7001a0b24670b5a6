package memory

import (
	"context"
	"sync"

	"engram/application/ports"
)

// UserLocker serializes turn processing per user inside one process.
// Each user gets a buffered channel of size one used as a mutex that
// respects context cancellation.
type UserLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewUserLocker creates an in-process user locker.
func NewUserLocker() *UserLocker {
	return &UserLocker{
		locks: make(map[string]chan struct{}),
	}
}

var _ ports.UserLocker = (*UserLocker)(nil)

func (l *UserLocker) channel(userID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, exists := l.locks[userID]
	if !exists {
		ch = make(chan struct{}, 1)
		l.locks[userID] = ch
	}
	return ch
}

// Lock blocks until the user's lock is held or ctx is done.
func (l *UserLocker) Lock(ctx context.Context, userID string) error {
	select {
	case l.channel(userID) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlock releases the user's lock.
func (l *UserLocker) Unlock(userID string) {
	select {
	case <-l.channel(userID):
	default:
		// Unlock without a matching Lock is a no-op.
	}
}
