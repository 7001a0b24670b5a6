package services

import (
	"sync"
	"time"

	"engram/application/ports"
)

// UsageMetrics tracks engine-wide counters in process: how many turns
// were processed, how many bytes of memory were persisted, and when
// the engine came up. Counters reset on restart.
type UsageMetrics struct {
	mu           sync.Mutex
	totalQueries uint64
	storageBytes uint64
	uptimeStart  time.Time
}

// NewUsageMetrics creates the counter set, stamping the uptime start
func NewUsageMetrics(clock ports.Clock) *UsageMetrics {
	return &UsageMetrics{uptimeStart: clock.Now()}
}

// RecordQuery counts one processed turn
func (m *UsageMetrics) RecordQuery() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalQueries++
}

// RecordStorage adds freshly persisted bytes to the running total
func (m *UsageMetrics) RecordStorage(bytes uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storageBytes += bytes
}

// Snapshot returns the current counters
func (m *UsageMetrics) Snapshot() (queries, storageBytes uint64, uptimeStart time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalQueries, m.storageBytes, m.uptimeStart
}
