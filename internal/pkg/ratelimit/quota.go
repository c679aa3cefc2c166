package ratelimit

import "time"

// Result describes the outcome of a quota check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter reports how long a rejected caller should wait before the
// window resets. It never returns a negative duration.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Quota binds a limiter to a fixed policy so every call site counts
// against the same limit and window. Handlers go through Quota rather than
// the limiter directly, which keeps the window passed to ResetAt in sync
// with the one passed to Allow.
type Quota struct {
	limiter *Limiter
	limit   int
	window  time.Duration
}

// NewQuota constructs a quota for limit events per window.
func NewQuota(limiter *Limiter, limit int, window time.Duration) *Quota {
	return &Quota{
		limiter: limiter,
		limit:   limit,
		window:  window,
	}
}

// Check records an attempt for the identity derived from userID and
// clientIP and reports the decision together with the remaining quota and
// window end. The attempt is counted only when it is allowed.
func (q *Quota) Check(userID, clientIP string) Result {
	return q.limiter.check(DeriveKey(userID, clientIP), q.limit, q.window)
}

// CheckKey records an attempt for an already-derived key.
func (q *Quota) CheckKey(key string) Result {
	return q.limiter.check(key, q.limit, q.window)
}

// Window reports the policy window.
func (q *Quota) Window() time.Duration {
	return q.window
}
