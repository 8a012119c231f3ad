// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultMaxKeys bounds the number of windows a [MemoryStore] tracks.
const DefaultMaxKeys = 100_000

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps windows in process memory.
//
// A single mutex serialises the read-modify-write of a window. Expired
// windows are removed by [MemoryStore.Sweep], which [MemoryStore.Run] calls
// on an interval, and eagerly when the key cap is reached.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	clock   clockwork.Clock
	maxKeys int
}

// NewMemoryStore creates an empty store. A nil clock uses the wall clock; a
// non-positive maxKeys uses [DefaultMaxKeys].
func NewMemoryStore(clock clockwork.Clock, maxKeys int) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &MemoryStore{
		windows: make(map[string]*window),
		clock:   clock,
		maxKeys: maxKeys,
	}
}

// CheckAndIncrement implements [Store].
func (store *MemoryStore) CheckAndIncrement(_ context.Context, key string, limit int, duration time.Duration) (Decision, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := store.clock.Now()
	current, found := store.windows[key]

	// 1. Fresh or expired window: restart the count at one.
	if !found || !now.Before(current.resetAt) {
		if !found && len(store.windows) >= store.maxKeys {
			store.makeRoomLocked(now)
		}
		current = &window{count: 1, resetAt: now.Add(duration)}
		store.windows[key] = current
		return decide(current.count, limit, current.resetAt, now), nil
	}

	// 2. Room left in the window.
	if current.count < limit {
		current.count++
		return decide(current.count, limit, current.resetAt, now), nil
	}

	// 3. Denied. The count is left as is so the window keeps its ceiling.
	return decide(current.count+1, limit, current.resetAt, now), nil
}

// Sweep deletes every expired window and returns how many were removed.
func (store *MemoryStore) Sweep() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.sweepLocked(store.clock.Now())
}

// Len returns the number of tracked windows.
func (store *MemoryStore) Len() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.windows)
}

// Run sweeps on every interval tick until ctx is cancelled.
func (store *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := store.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			store.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (store *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for key, current := range store.windows {
		if !now.Before(current.resetAt) {
			delete(store.windows, key)
			removed++
		}
	}
	return removed
}

// makeRoomLocked sweeps, and if the map is still full evicts the window
// closest to resetting.
func (store *MemoryStore) makeRoomLocked(now time.Time) {
	if store.sweepLocked(now) > 0 {
		return
	}

	var (
		oldestKey string
		oldestAt  time.Time
	)
	for key, current := range store.windows {
		if oldestKey == "" || current.resetAt.Before(oldestAt) {
			oldestKey, oldestAt = key, current.resetAt
		}
	}
	delete(store.windows, oldestKey)
}
