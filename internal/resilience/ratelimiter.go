// Package resilience implements the two defensive primitives the router
// leans on: a per-(identity,method) token-bucket rate limiter and a
// per-operation circuit breaker (spec.md §4.8, §4.12).
package resilience

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// BucketLimits configures one token bucket: its capacity and its refill
// rate in tokens per second.
type BucketLimits struct {
	Limit      int
	RefillRate float64
}

// Decision is the outcome of one RateLimiter.Check call.
type Decision struct {
	Allowed      bool
	Limit        int
	Remaining    int
	ResetsAt     time.Time
	RetryAfter   time.Duration
	DenialReason string
}

// RateLimiter implements a token bucket per (identity, method) pair over
// golang.org/x/time/rate, created lazily on first access with the limits
// configured for that method (or the default limits). now is injectable for
// deterministic tests; x/time/rate's *N variants accept it directly so no
// wall-clock call is hidden inside the library.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	perMethod map[string]BucketLimits
	def       BucketLimits
	now       func() time.Time
}

// New builds a RateLimiter from the configured per-method and default
// bucket limits.
func New(perMethod map[string]BucketLimits, def BucketLimits) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		perMethod: perMethod,
		def:       def,
		now:       time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

func (r *RateLimiter) limitsFor(method string) BucketLimits {
	if l, ok := r.perMethod[method]; ok {
		return l
	}
	return r.def
}

func (r *RateLimiter) limiterFor(identity, method string, limits BucketLimits) *rate.Limiter {
	key := identity + "\x00" + method
	r.mu.Lock()
	defer r.mu.Unlock()
	lim, ok := r.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(limits.RefillRate), limits.Limit)
		r.limiters[key] = lim
	}
	return lim
}

// Check consumes one token from the (identity, method) bucket, creating it
// first if necessary. The returned Remaining and ResetsAt are always
// consistent with the bucket's state at decision time: Remaining never goes
// negative, and on denial ResetsAt is strictly after now, except for a
// bucket with a zero RefillRate, which never refills and reports ResetsAt
// equal to now.
func (r *RateLimiter) Check(identity, method string) Decision {
	limits := r.limitsFor(method)
	lim := r.limiterFor(identity, method, limits)
	now := r.now()

	if lim.AllowN(now, 1) {
		tokens := lim.TokensAt(now)
		if limits.RefillRate <= 0 {
			// A zero-rate rate.Limiter keeps its remaining capacity in its
			// burst, which AllowN decrements, not in its token count.
			tokens = float64(lim.Burst())
		}
		remaining := int(tokens)
		if remaining < 0 {
			remaining = 0
		}
		return Decision{
			Allowed:   true,
			Limit:     limits.Limit,
			Remaining: remaining,
			ResetsAt:  resetsAt(now, tokens, limits),
		}
	}

	tokens := lim.TokensAt(now)
	var retryAfter time.Duration
	if limits.RefillRate > 0 {
		missing := 1 - tokens
		if missing < 0 {
			missing = 0
		}
		retryAfter = time.Duration(missing / limits.RefillRate * float64(time.Second))
	}
	return Decision{
		Allowed:      false,
		Limit:        limits.Limit,
		Remaining:    0,
		ResetsAt:     now.Add(retryAfter),
		RetryAfter:   retryAfter,
		DenialReason: "rate limit exceeded",
	}
}

func resetsAt(now time.Time, tokens float64, limits BucketLimits) time.Time {
	if limits.RefillRate <= 0 {
		return now
	}
	missing := float64(limits.Limit) - tokens
	if missing <= 0 {
		return now
	}
	return now.Add(time.Duration(missing / limits.RefillRate * float64(time.Second)))
}
