// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"context"
	"runtime"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// HashObserver receives the wall time of every hash computation.
type HashObserver interface {
	ObserveHash(operation string, elapsed time.Duration)
}

// HashPool runs a [PasswordHasher] with bounded concurrency. Callers wait
// for a slot and give up when their context ends.
type HashPool struct {
	hasher   PasswordHasher
	slots    *semaphore.Weighted
	observer HashObserver
}

// NewHashPool creates a pool allowing at most workers concurrent computations.
// A non-positive workers value defaults to GOMAXPROCS.
func NewHashPool(hasher PasswordHasher, workers int, observer HashObserver) *HashPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &HashPool{
		hasher:   hasher,
		slots:    semaphore.NewWeighted(int64(workers)),
		observer: observer,
	}
}

// Hash hashes password once a slot is free.
func (pool *HashPool) Hash(ctx context.Context, password string) (string, error) {
	if err := pool.slots.Acquire(ctx, 1); err != nil {
		return "", oops.Code("AUTH_HASH_BUSY").Wrap(err)
	}
	defer pool.slots.Release(1)

	start := time.Now()
	encoded, err := pool.hasher.Hash(password)
	pool.observe("hash", start)

	return encoded, err
}

// Verify checks password against encoded once a slot is free. The error is
// non-nil only when the context ended before a slot was acquired.
func (pool *HashPool) Verify(ctx context.Context, password, encoded string) (bool, error) {
	if err := pool.slots.Acquire(ctx, 1); err != nil {
		return false, oops.Code("AUTH_HASH_BUSY").Wrap(err)
	}
	defer pool.slots.Release(1)

	start := time.Now()
	matched := pool.hasher.Verify(password, encoded)
	pool.observe("verify", start)

	return matched, nil
}

func (pool *HashPool) observe(operation string, start time.Time) {
	if pool.observer != nil {
		pool.observer.ObserveHash(operation, time.Since(start))
	}
}
