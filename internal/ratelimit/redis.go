// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/samber/oops"
)

// DefaultRedisPrefix namespaces window keys.
const DefaultRedisPrefix = "authcore:ratelimit"

// hitScript applies the fixed-window check and increment atomically.
// KEYS[1] window key; ARGV[1] limit; ARGV[2] window in milliseconds.
// Returns {allowed, count, pttl}.
var hitScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= limit then
  local ttl = redis.call('PTTL', KEYS[1])
  if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], window)
    ttl = window
  end
  return {0, current, ttl}
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], window)
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
return {1, current, ttl}
`)

// RedisStore shares fixed windows across processes. Each window is a
// counter key that expires with the window.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, oops.Code("RATELIMIT_INVALID_DEPENDENCY").Errorf("redis client is required")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, oops.Code("RATELIMIT_REDIS_URL_INVALID").Wrap(err)
	}
	return redis.NewClient(opts), nil
}

// Hit counts one request against key.
func (s *RedisStore) Hit(ctx context.Context, key string, policy Policy) (Decision, error) {
	windowMs := policy.Window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}

	reply, err := hitScript.Run(ctx, s.client, []string{s.prefix + ":" + key}, policy.Limit, windowMs).Result()
	if err != nil {
		return Decision{}, oops.Code("RATELIMIT_REDIS_FAILED").With("key", key).Wrap(err)
	}
	res, ok := reply.([]interface{})
	if !ok || len(res) != 3 {
		return Decision{}, oops.Code("RATELIMIT_REDIS_FAILED").With("key", key).Errorf("unexpected script reply %v", reply)
	}
	allowed, _ := res[0].(int64)
	count, _ := res[1].(int64)
	ttl, _ := res[2].(int64)

	if allowed == 0 {
		return Decision{
			Allowed:    false,
			Limit:      policy.Limit,
			RetryAfter: time.Duration(ttl) * time.Millisecond,
		}, nil
	}
	return Decision{
		Allowed:   true,
		Limit:     policy.Limit,
		Remaining: max(policy.Limit-int(count), 0),
	}, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
