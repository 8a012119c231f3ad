// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces rate-limit counters in a shared Redis.
const keyPrefix = "ratelimit:"

// fixedWindowScript increments the counter and starts the window on the
// first hit. A key that lost its TTL is given one again. Returns the count
// and the milliseconds left in the window.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisStore keeps windows in Redis so every instance shares one count.
type RedisStore struct {
	client redis.Scripter
	clock  clockwork.Clock
}

// NewRedisStore wraps a Redis client. A nil clock uses the wall clock.
func NewRedisStore(client redis.Scripter, clock clockwork.Clock) *RedisStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedisStore{client: client, clock: clock}
}

// CheckAndIncrement implements [Store] with a single atomic script call.
func (store *RedisStore) CheckAndIncrement(ctx context.Context, key string, limit int, duration time.Duration) (Decision, error) {
	result, err := fixedWindowScript.Run(ctx, store.client,
		[]string{keyPrefix + key}, duration.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis script failed: %w", err)
	}
	if len(result) != 2 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script result %v", result)
	}

	now := store.clock.Now()
	resetAt := now.Add(time.Duration(result[1]) * time.Millisecond)

	return decide(int(result[0]), limit, resetAt, now), nil
}
