package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter limits request rates per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// SlidingWindowLimiter tracks request timestamps per key and rejects
// requests once the count inside the window reaches the limit.
type SlidingWindowLimiter struct {
	mu         sync.Mutex
	windows    map[string][]time.Time
	limit      int
	windowSize time.Duration
	lastSweep  time.Time
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:    make(map[string][]time.Time),
		limit:      limit,
		windowSize: windowSize,
		lastSweep:  time.Now(),
	}
}

// Allow records a request for the key and reports whether it fits the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.windowSize)

	requests := l.windows[key]
	kept := requests[:0]
	for _, at := range requests {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= l.limit {
		l.windows[key] = kept
		return false, nil
	}

	l.windows[key] = append(kept, now)
	l.sweepLocked(now, cutoff)
	return true, nil
}

// Reset clears the recorded requests for a key.
func (l *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}

// sweepLocked drops keys whose requests have all aged out. Runs at most
// once per window to keep Allow cheap.
func (l *SlidingWindowLimiter) sweepLocked(now time.Time, cutoff time.Time) {
	if now.Sub(l.lastSweep) < l.windowSize {
		return
	}
	l.lastSweep = now
	for key, requests := range l.windows {
		stale := true
		for _, at := range requests {
			if at.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(l.windows, key)
		}
	}
}

// IPRateLimiter rate limits by client IP address.
type IPRateLimiter struct {
	limiter RateLimiter
}

// NewIPRateLimiter creates a per-IP rate limiter with a one minute window.
func NewIPRateLimiter(requestsPerMinute int) *IPRateLimiter {
	return &IPRateLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// Allow reports whether a request from the given IP is allowed.
func (l *IPRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	return l.limiter.Allow(ctx, "ip:"+ip)
}

// Reset clears the recorded requests for an IP.
func (l *IPRateLimiter) Reset(ctx context.Context, ip string) error {
	return l.limiter.Reset(ctx, "ip:"+ip)
}

// UserRateLimiter rate limits by authenticated user ID.
type UserRateLimiter struct {
	limiter RateLimiter
}

// NewUserRateLimiter creates a per-user rate limiter with a one minute window.
func NewUserRateLimiter(requestsPerMinute int) *UserRateLimiter {
	return &UserRateLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// Allow reports whether a request from the given user is allowed.
func (l *UserRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	return l.limiter.Allow(ctx, "user:"+userID)
}

// Reset clears the recorded requests for a user.
func (l *UserRateLimiter) Reset(ctx context.Context, userID string) error {
	return l.limiter.Reset(ctx, "user:"+userID)
}

var _ RateLimiter = (*UserRateLimiter)(nil)
