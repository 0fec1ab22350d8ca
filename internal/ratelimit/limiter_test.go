package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(perSecond float64, burst int) (*Limiter, *time.Time) {
	clock := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(perSecond, burst)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestLimiter_BurstThenRefill(t *testing.T) {
	l, clock := newTestLimiter(1, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("u1"), "request %d within burst", i)
	}
	assert.False(t, l.Allow("u1"), "burst exhausted")

	*clock = clock.Add(time.Second)
	assert.True(t, l.Allow("u1"), "one token refilled")
	assert.False(t, l.Allow("u1"))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, 1)

	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
	assert.True(t, l.Allow("u2"))

	stats := l.Stats()
	assert.Equal(t, 2, stats.Keys)
	assert.Equal(t, int64(2), stats.Allowed)
	assert.Equal(t, int64(1), stats.Denied)
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(0, 1)
	assert.False(t, l.Enabled())
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("u1"))
	}

	var nilLimiter *Limiter
	assert.True(t, nilLimiter.Allow("u1"))
	assert.Equal(t, 0, nilLimiter.Prune())
}

func TestLimiter_Prune(t *testing.T) {
	l, clock := newTestLimiter(1, 1)

	l.Allow("old")
	*clock = clock.Add(DefaultIdleTTL + time.Second)
	l.Allow("fresh")

	assert.Equal(t, 1, l.Prune())
	assert.Equal(t, 1, l.Stats().Keys)
}

func TestNewLimiter_DefaultBurst(t *testing.T) {
	l := NewLimiter(1, 0)
	assert.Equal(t, DefaultBurst, l.burst)
}
