package ratelimit

import (
	"testing"
	"time"
)

func TestQuotaCheckScenario(t *testing.T) {
	clock := newFakeClock()
	lim := NewLimiterWithClock(clock.Now)
	quota := NewQuota(lim, 5, 5*time.Minute)

	start := clock.Now()

	for i := 0; i < 5; i++ {
		res := quota.Check("7", "203.0.113.9")
		if !res.Allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		if got, want := res.Remaining, 4-i; got != want {
			t.Fatalf("attempt %d remaining = %d, want %d", i+1, got, want)
		}
		if res.Limit != 5 {
			t.Fatalf("attempt %d limit = %d, want 5", i+1, res.Limit)
		}
		if want := start.Add(5 * time.Minute); !res.ResetAt.Equal(want) {
			t.Fatalf("attempt %d reset = %v, want %v", i+1, res.ResetAt, want)
		}
	}

	res := quota.Check("7", "203.0.113.9")
	if res.Allowed {
		t.Fatalf("sixth attempt should be rejected")
	}
	if res.Remaining != 0 {
		t.Fatalf("rejected remaining = %d, want 0", res.Remaining)
	}
	if got, want := res.RetryAfter(clock.Now()), 5*time.Minute; got != want {
		t.Fatalf("retry after = %v, want %v", got, want)
	}

	// A different caller hitting the same quota is tracked separately.
	other := quota.Check("", "198.51.100.4")
	if !other.Allowed || other.Remaining != 4 {
		t.Fatalf("independent caller got allowed=%v remaining=%d", other.Allowed, other.Remaining)
	}

	// The rejected caller recovers once the window ends.
	clock.Advance(5*time.Minute + time.Second)
	recovered := quota.Check("7", "203.0.113.9")
	if !recovered.Allowed || recovered.Remaining != 4 {
		t.Fatalf("recovered caller got allowed=%v remaining=%d", recovered.Allowed, recovered.Remaining)
	}
}

func TestQuotaIdentityFallback(t *testing.T) {
	clock := newFakeClock()
	lim := NewLimiterWithClock(clock.Now)
	quota := NewQuota(lim, 1, time.Minute)

	// Anonymous traffic shares the per-address bucket.
	if res := quota.Check("", "203.0.113.9"); !res.Allowed {
		t.Fatalf("first anonymous attempt should pass")
	}
	if res := quota.Check("", "203.0.113.9"); res.Allowed {
		t.Fatalf("second anonymous attempt from the same address should be rejected")
	}

	// The same address authenticated counts against the user bucket instead.
	if res := quota.Check("7", "203.0.113.9"); !res.Allowed {
		t.Fatalf("authenticated attempt must use the user bucket")
	}
}

func TestQuotaZeroLimitRejectsWithConsistentResult(t *testing.T) {
	clock := newFakeClock()
	lim := NewLimiterWithClock(clock.Now)
	quota := NewQuota(lim, 0, time.Minute)

	res := quota.Check("7", "")
	if res.Allowed {
		t.Fatalf("zero limit must reject")
	}
	if res.Remaining != 0 || res.Limit != 0 {
		t.Fatalf("zero limit result = remaining %d limit %d, want 0/0", res.Remaining, res.Limit)
	}
	if res.RetryAfter(clock.Now()) != time.Minute {
		t.Fatalf("retry after = %v, want full window", res.RetryAfter(clock.Now()))
	}
}

func TestResultRetryAfterFloorsAtZero(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	res := Result{ResetAt: now.Add(-time.Second)}
	if got := res.RetryAfter(now); got != 0 {
		t.Fatalf("retry after past reset = %v, want 0", got)
	}
}
