package chi

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterSweepEntries = 4096
)

// keyedLimiter is a token bucket per key (user id or client IP) refilling
// perMinute tokens a minute with a burst of perMinute.
type keyedLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	entries   map[string]*limiterEntry
	now       func() time.Time
	lastSweep time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// newKeyedLimiter returns nil for perMinute <= 0; a nil limiter allows everything.
func newKeyedLimiter(perMinute int) *keyedLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &keyedLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

// Allow takes one token from key's bucket.
func (l *keyedLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		if len(l.entries) >= limiterSweepEntries && now.Sub(l.lastSweep) > time.Minute {
			l.sweep(now)
		}
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// sweep drops buckets idle long enough to have refilled completely.
func (l *keyedLimiter) sweep(now time.Time) {
	for k, e := range l.entries {
		if now.Sub(e.seen) > limiterIdleTTL {
			delete(l.entries, k)
		}
	}
	l.lastSweep = now
}
