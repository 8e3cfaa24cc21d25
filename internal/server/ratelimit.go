package server

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig bounds how often a single client may start redaction work.
type RateLimitConfig struct {
	RequestsPerMinute int
	RequestsPerDay    int
}

// DefaultRateLimitConfig returns limits suitable for a small shared
// deployment.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 20,
		RequestsPerDay:    500,
	}
}

// RateLimitError reports which limit was exceeded and when to retry.
type RateLimitError struct {
	LimitType  string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests per %s", e.Limit, e.LimitType)
}

func asLimitError(err error, target **RateLimitError) bool {
	return errors.As(err, target)
}

// clientUsage tracks one client's counters inside the current windows.
type clientUsage struct {
	minuteStart time.Time
	minuteCount int
	dayStart    time.Time
	dayCount    int
}

// RateLimiter enforces per-client request limits over fixed minute and day
// windows. Counters reset when their window rolls over.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu    sync.Mutex
	usage map[string]*clientUsage
}

// NewRateLimiter creates a limiter with the given limits. Non-positive
// limits disable the corresponding window.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg:   cfg,
		now:   time.Now,
		usage: make(map[string]*clientUsage),
	}
}

// Allow records one request for the client and returns a RateLimitError if a
// limit is exceeded. A rejected request is not counted.
func (rl *RateLimiter) Allow(clientID string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u, ok := rl.usage[clientID]
	if !ok {
		u = &clientUsage{minuteStart: now, dayStart: now}
		rl.usage[clientID] = u
	}

	if now.Sub(u.minuteStart) >= time.Minute {
		u.minuteStart, u.minuteCount = now, 0
	}
	if now.Sub(u.dayStart) >= 24*time.Hour {
		u.dayStart, u.dayCount = now, 0
	}

	if rl.cfg.RequestsPerMinute > 0 && u.minuteCount >= rl.cfg.RequestsPerMinute {
		return &RateLimitError{
			LimitType:  "minute",
			Limit:      rl.cfg.RequestsPerMinute,
			RetryAfter: time.Minute - now.Sub(u.minuteStart),
		}
	}
	if rl.cfg.RequestsPerDay > 0 && u.dayCount >= rl.cfg.RequestsPerDay {
		return &RateLimitError{
			LimitType:  "day",
			Limit:      rl.cfg.RequestsPerDay,
			RetryAfter: 24*time.Hour - now.Sub(u.dayStart),
		}
	}

	u.minuteCount++
	u.dayCount++
	return nil
}

// Reset clears all tracked usage.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	rl.usage = make(map[string]*clientUsage)
	rl.mu.Unlock()
}
