package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a lightweight, in-memory fixed-window rate limiter with
// independent windows per key. All operations are safe for concurrent use
// and never fail; callers pass the limit and window on each call so one
// limiter can serve multiple policies.
type Limiter struct {
	mu        sync.Mutex
	now       func() time.Time
	entries   map[string]*entry
	lastSweep time.Time
}

type entry struct {
	count      int
	windowEnds time.Time
}

// NewLimiter constructs a limiter with zeroed state.
func NewLimiter() *Limiter {
	return NewLimiterWithClock(time.Now)
}

// NewLimiterWithClock constructs a limiter that reads time from now.
// Tests use this to advance windows without sleeping.
func NewLimiterWithClock(now func() time.Time) *Limiter {
	return &Limiter{
		now:       now,
		entries:   make(map[string]*entry),
		lastSweep: now(),
	}
}

// DeriveKey builds the identity key counted by the limiter. Authenticated
// callers are tracked per user id so the quota follows them across
// addresses; anonymous callers fall back to their client IP.
func DeriveKey(userID, clientIP string) string {
	if userID != "" {
		return "user:" + userID
	}
	return "ip:" + clientIP
}

// Allow records an attempt for key and reports whether it fits within
// limit events per window. A fresh window starts on the first attempt for
// a key and on the first attempt after the previous window has ended.
// Rejected attempts are not counted against the window. A limit of zero
// (or less) rejects every attempt.
func (l *Limiter) Allow(key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.entries[key]
	if !ok || !now.Before(b.windowEnds) {
		b = &entry{windowEnds: now.Add(window)}
		l.entries[key] = b
		if !ok {
			l.pruneLocked(now)
		}
	}

	if b.count < limit {
		b.count++
		return true
	}
	return false
}

// Remaining reports how many attempts are left for key under limit.
// It is a pure query: absent and expired keys report the full limit, and
// no window is started or rolled over.
func (l *Limiter) Remaining(key string, limit int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remainingLocked(l.now(), key, limit)
}

func (l *Limiter) remainingLocked(now time.Time, key string, limit int) int {
	b, ok := l.entries[key]
	if !ok || !now.Before(b.windowEnds) {
		return limit
	}
	if remaining := limit - b.count; remaining > 0 {
		return remaining
	}
	return 0
}

// ResetAt reports when the window for key ends. For keys with no tracked
// window it assumes one starting now with the provided duration, so callers
// must pass the same window they pass to Allow. Expired entries keep
// reporting their stored end until Allow next touches the key; queries do
// not roll windows.
func (l *Limiter) ResetAt(key string, window time.Duration) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resetAtLocked(l.now(), key, window)
}

func (l *Limiter) resetAtLocked(now time.Time, key string, window time.Duration) time.Time {
	if b, ok := l.entries[key]; ok {
		return b.windowEnds
	}
	return now.Add(window)
}

// ResetKey discards the tracked window for a single key, restoring its
// full quota immediately.
func (l *Limiter) ResetKey(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Reset clears all tracked state.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*entry)
	l.lastSweep = l.now()
}

// check runs the allow-then-query sequence in one critical section so the
// reported remaining and reset values match the attempt that was just
// recorded.
func (l *Limiter) check(key string, limit int, window time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.entries[key]
	if !ok || !now.Before(b.windowEnds) {
		b = &entry{windowEnds: now.Add(window)}
		l.entries[key] = b
		if !ok {
			l.pruneLocked(now)
		}
	}

	allowed := false
	if b.count < limit {
		b.count++
		allowed = true
	}

	return Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: l.remainingLocked(now, key, limit),
		ResetAt:   l.resetAtLocked(now, key, window),
	}
}

// pruneLocked drops expired entries so abandoned keys do not accumulate.
// Sweeps are throttled to once per minute and only run when a new key is
// inserted; expiry itself stays lazy.
func (l *Limiter) pruneLocked(now time.Time) {
	if len(l.entries) == 0 {
		return
	}

	if now.Sub(l.lastSweep) < time.Minute {
		return
	}

	for key, b := range l.entries {
		if !now.Before(b.windowEnds) {
			delete(l.entries, key)
		}
	}

	l.lastSweep = now
}
