// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/waitgate/internal/platform/sec"
)

// fastParams keeps argon2id cheap enough for unit tests.
var fastParams = sec.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1}

/*
TestArgon2idHasher_RoundTrip verifies that a hash accepts its own password and nothing else.
*/
func TestArgon2idHasher_RoundTrip(t *testing.T) {
	hasher := sec.NewArgon2idHasher(fastParams)

	tests := []struct {
		name     string
		password string
	}{
		{"short", "secret1"},
		{"unicode", "pässwörd-日本語"},
		{"thousand_chars", strings.Repeat("a", 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := hasher.Hash(tt.password)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))

			assert.True(t, hasher.Verify(tt.password, encoded))
			assert.False(t, hasher.Verify(tt.password+"x", encoded))
		})
	}
}

/*
TestArgon2idHasher_NoTruncation checks that bytes past 72 still matter.
*/
func TestArgon2idHasher_NoTruncation(t *testing.T) {
	hasher := sec.NewArgon2idHasher(fastParams)

	prefix := strings.Repeat("p", 999)
	encoded, err := hasher.Hash(prefix + "a")
	require.NoError(t, err)

	assert.True(t, hasher.Verify(prefix+"a", encoded))
	assert.False(t, hasher.Verify(prefix+"b", encoded))
}

/*
TestArgon2idHasher_SaltedOutput ensures two hashes of one password differ.
*/
func TestArgon2idHasher_SaltedOutput(t *testing.T) {
	hasher := sec.NewArgon2idHasher(fastParams)

	first, err := hasher.Hash("same-password")
	require.NoError(t, err)
	second, err := hasher.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("same-password", first))
	assert.True(t, hasher.Verify("same-password", second))
}

/*
TestArgon2idHasher_EmptyPassword checks the coded rejection.
*/
func TestArgon2idHasher_EmptyPassword(t *testing.T) {
	hasher := sec.NewArgon2idHasher(fastParams)

	_, err := hasher.Hash("")
	require.Error(t, err)

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "AUTH_EMPTY_PASSWORD", oopsErr.Code())
}

/*
TestArgon2idHasher_MalformedRecords verifies that broken hashes never match or panic.
*/
func TestArgon2idHasher_MalformedRecords(t *testing.T) {
	hasher := sec.NewArgon2idHasher(fastParams)

	records := []string{
		"",
		"plaintext",
		"$2a$10$abcdefghijklmnopqrstuu",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=0,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=0$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
	}

	for _, record := range records {
		assert.NotPanics(t, func() {
			assert.False(t, hasher.Verify("anything", record), record)
		})
	}
}

/*
TestArgon2idHasher_EmbeddedParams verifies that hashes made with other parameters still verify.
*/
func TestArgon2idHasher_EmbeddedParams(t *testing.T) {
	legacy := sec.NewArgon2idHasher(sec.HashParams{Memory: 2048, Iterations: 2, Parallelism: 2})
	current := sec.NewArgon2idHasher(fastParams)

	encoded, err := legacy.Hash("rotated-params")
	require.NoError(t, err)

	assert.True(t, current.Verify("rotated-params", encoded))
}

type countingObserver struct {
	calls atomic.Int32
}

func (observer *countingObserver) ObserveHash(string, time.Duration) {
	observer.calls.Add(1)
}

type blockingHasher struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	release  chan struct{}
}

func (hasher *blockingHasher) Hash(string) (string, error) {
	current := hasher.inFlight.Add(1)
	for {
		peak := hasher.peak.Load()
		if current <= peak || hasher.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	<-hasher.release
	hasher.inFlight.Add(-1)
	return "hashed", nil
}

func (hasher *blockingHasher) Verify(string, string) bool { return true }

/*
TestHashPool_BoundsConcurrency checks that no more than the configured number of hashes run at once.
*/
func TestHashPool_BoundsConcurrency(t *testing.T) {
	hasher := &blockingHasher{release: make(chan struct{})}
	observer := &countingObserver{}
	pool := sec.NewHashPool(hasher, 2, observer)

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Hash(context.Background(), "pw")
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return hasher.inFlight.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(hasher.release)
	wg.Wait()

	assert.Equal(t, int32(2), hasher.peak.Load())
	assert.Equal(t, int32(6), observer.calls.Load())
}

/*
TestHashPool_ContextCancelled verifies that a waiting caller gives up with its context.
*/
func TestHashPool_ContextCancelled(t *testing.T) {
	hasher := &blockingHasher{release: make(chan struct{})}
	pool := sec.NewHashPool(hasher, 1, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = pool.Hash(context.Background(), "holder")
	}()
	require.Eventually(t, func() bool { return hasher.inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	matched, err := pool.Verify(ctx, "pw", "hash")
	require.Error(t, err)
	assert.False(t, matched)

	close(hasher.release)
	<-done
}
