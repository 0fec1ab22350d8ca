// Package ratelimit provides per-caller rate limiting for bot commands and
// API requests.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Default limits.
const (
	DefaultPerSecond = 2
	DefaultBurst     = 5
	DefaultIdleTTL   = 10 * time.Minute
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key. A zero or negative rate disables
// limiting.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time

	allowed atomic.Int64
	denied  atomic.Int64
}

// Stats is a snapshot of limiter activity.
type Stats struct {
	Keys    int   `json:"keys"`
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

// NewLimiter creates a limiter allowing perSecond events per key with the
// given burst.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &Limiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idleTTL:  DefaultIdleTTL,
		now:      time.Now,
	}
}

// Enabled reports whether the limiter enforces anything.
func (l *Limiter) Enabled() bool {
	return l != nil && l.limit > 0
}

// Limit returns the per-key rate.
func (l *Limiter) Limit() rate.Limit {
	if l == nil {
		return 0
	}
	return l.limit
}

// Allow reports whether an event for key may happen now.
func (l *Limiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}
	now := l.now()
	if l.get(key, now).AllowN(now, 1) {
		l.allowed.Add(1)
		return true
	}
	l.denied.Add(1)
	return false
}

func (l *Limiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Prune drops buckets idle for longer than the idle TTL. It returns the
// number removed.
func (l *Limiter) Prune() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	removed := 0
	for key, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of limiter activity.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	keys := len(l.limiters)
	l.mu.Unlock()

	return Stats{
		Keys:    keys,
		Allowed: l.allowed.Load(),
		Denied:  l.denied.Load(),
	}
}
