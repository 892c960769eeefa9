// Package ratelimit throttles collaborator calls per conversation.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Config struct {
	RequestsPerMinute int
	Burst             int
}

// Enabled reports whether the config limits anything. A non-positive rate
// disables throttling.
func (c Config) Enabled() bool {
	return c.RequestsPerMinute > 0
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per session key.
type Limiter struct {
	mu      sync.Mutex
	config  Config
	entries map[string]*entry
	now     func() time.Time
}

func NewLimiter(config Config) *Limiter {
	return &Limiter{
		config:  config,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		burst := l.config.Burst
		if burst <= 0 {
			burst = 1
		}
		perSecond := rate.Limit(float64(l.config.RequestsPerMinute) / 60.0)
		e = &entry{limiter: rate.NewLimiter(perSecond, burst)}
		l.entries[key] = e
	}
	e.lastSeen = l.now()
	return e.limiter
}

// Allow consumes one token for key and reports whether the call may proceed.
// A nil or disabled limiter always allows.
func (l *Limiter) Allow(key string) bool {
	if l == nil || !l.config.Enabled() {
		return true
	}
	return l.bucket(key).AllowN(l.now(), 1)
}

// Forget drops the bucket of key, e.g. when a session is reset.
func (l *Limiter) Forget(key string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// Cleanup drops buckets idle for longer than maxAge.
func (l *Limiter) Cleanup(maxAge time.Duration) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxAge)
	removed := 0
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
