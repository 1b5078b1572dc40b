package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript mirrors MemoryStore.ConsumeTokens on a hash of
// {tokens, refill}. Times are Unix milliseconds taken from the Redis clock
// so that every replica agrees.
var consumeScript = redis.NewScript(`
local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
local want = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'refill')
local tokens = tonumber(state[1])
local refill = tonumber(state[2])
if tokens == nil then
	tokens = capacity
	refill = now
end

local intervals = math.floor((now - refill) / interval)
if intervals > 0 then
	intervals = math.min(intervals, math.floor(capacity / rate) + 1)
	tokens = math.min(tokens + intervals * rate, capacity)
	if tokens == capacity then
		refill = now
	else
		refill = refill + intervals * interval
	end
end

local remaining = tokens - want
if remaining >= 0 then
	tokens = remaining
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'refill', refill)
redis.call('PEXPIRE', KEYS[1], math.ceil(capacity / rate) * interval + interval)
return {remaining, refill + interval}
`)

// RedisStore shares buckets between replicas.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config) (int, time.Time, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.prefix + key},
		tokens, cfg.Capacity, cfg.RefillRate, max(cfg.RefillInterval.Milliseconds(), 1),
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, errors.New("unexpected script reply"))
	}
	return int(res[0]), time.UnixMilli(res[1]), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
