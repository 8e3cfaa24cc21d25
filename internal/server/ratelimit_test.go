package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsWithinLimits(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 3, RequestsPerDay: 10})

	for range 3 {
		require.NoError(t, rl.Allow("1.2.3.4"))
	}
}

func TestRateLimiter_RejectsOverMinuteLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 2, RequestsPerDay: 10})

	require.NoError(t, rl.Allow("1.2.3.4"))
	require.NoError(t, rl.Allow("1.2.3.4"))

	err := rl.Allow("1.2.3.4")
	require.Error(t, err)

	var limitErr *RateLimitError
	require.True(t, asLimitError(err, &limitErr))
	assert.Equal(t, "minute", limitErr.LimitType)
	assert.Equal(t, 2, limitErr.Limit)
	assert.Greater(t, limitErr.RetryAfter, time.Duration(0))
}

func TestRateLimiter_MinuteWindowResets(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 1, RequestsPerDay: 10})
	current := time.Now()
	rl.now = func() time.Time { return current }

	require.NoError(t, rl.Allow("1.2.3.4"))
	require.Error(t, rl.Allow("1.2.3.4"))

	current = current.Add(61 * time.Second)
	require.NoError(t, rl.Allow("1.2.3.4"))
}

func TestRateLimiter_DayLimitOutlastsMinuteReset(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 10, RequestsPerDay: 2})
	current := time.Now()
	rl.now = func() time.Time { return current }

	require.NoError(t, rl.Allow("1.2.3.4"))
	require.NoError(t, rl.Allow("1.2.3.4"))

	current = current.Add(2 * time.Minute)
	err := rl.Allow("1.2.3.4")
	require.Error(t, err)

	var limitErr *RateLimitError
	require.True(t, asLimitError(err, &limitErr))
	assert.Equal(t, "day", limitErr.LimitType)
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 1, RequestsPerDay: 10})

	require.NoError(t, rl.Allow("1.1.1.1"))
	require.Error(t, rl.Allow("1.1.1.1"))
	require.NoError(t, rl.Allow("2.2.2.2"))
}

func TestRateLimiter_ZeroLimitDisablesWindow(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 0, RequestsPerDay: 0})

	for range 100 {
		require.NoError(t, rl.Allow("1.2.3.4"))
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 1, RequestsPerDay: 1})

	require.NoError(t, rl.Allow("1.2.3.4"))
	require.Error(t, rl.Allow("1.2.3.4"))

	rl.Reset()
	require.NoError(t, rl.Allow("1.2.3.4"))
}
