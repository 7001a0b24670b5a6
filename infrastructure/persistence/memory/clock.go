package memory

import (
	"time"

	"engram/application/ports"
)

// SystemClock reads wall-clock time.
type SystemClock struct{}

// NewSystemClock returns the wall-clock implementation of ports.Clock.
func NewSystemClock() SystemClock { return SystemClock{} }

var _ ports.Clock = SystemClock{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
