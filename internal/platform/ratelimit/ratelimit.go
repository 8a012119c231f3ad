// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit implements fixed-window request counting.

A window starts on the first request for a key and lasts for the policy
duration. Up to Limit requests are allowed inside it; later requests are
denied with the time left until the window resets. Adjacent windows can
together admit up to twice the limit around a boundary.

Storage:

  - MemoryStore: per-process map guarded by a mutex, swept periodically.
  - RedisStore: shared counters for deployments with several instances.

Every limiter is an owned instance wired by the composition root; there is
no package-level state.
*/
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Decision is the outcome of a single CheckAndIncrement call.
type Decision struct {
	Allowed    bool
	Limit      int
	Count      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, with a minimum of one.
func (decision Decision) RetryAfterSeconds() int {
	seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Store counts hits per key inside fixed windows.
type Store interface {
	// CheckAndIncrement records a hit for key and reports whether it fits
	// inside limit for the current window.
	CheckAndIncrement(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// Observer receives every decision a [Limiter] makes.
type Observer interface {
	ObserveRateLimit(policy string, allowed bool)
}

// Policy names a limit and its window.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Limiter applies one [Policy] on top of a [Store].
type Limiter struct {
	store    Store
	policy   Policy
	observer Observer
}

// New builds a limiter. observer may be nil.
func New(store Store, policy Policy, observer Observer) *Limiter {
	return &Limiter{store: store, policy: policy, observer: observer}
}

// Policy returns the policy this limiter enforces.
func (limiter *Limiter) Policy() Policy {
	return limiter.policy
}

// Allow counts a hit for key under this limiter's policy. Keys are namespaced
// by policy name so different limiters never share a window.
func (limiter *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	decision, err := limiter.store.CheckAndIncrement(ctx,
		limiter.policy.Name+":"+key, limiter.policy.Limit, limiter.policy.Window)
	if err != nil {
		return Decision{}, err
	}

	if limiter.observer != nil {
		limiter.observer.ObserveRateLimit(limiter.policy.Name, decision.Allowed)
	}

	return decision, nil
}

// decide builds a decision from a post-increment count.
func decide(count, limit int, resetAt, now time.Time) Decision {
	decision := Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Count:     count,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
	}
	if !decision.Allowed {
		decision.RetryAfter = resetAt.Sub(now)
	}
	return decision
}
